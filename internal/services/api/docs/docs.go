//go:build swag

// Package docs holds the OpenAPI document for the operational endpoints.
// Regenerate with: swag init -g cmd/sword-api/main.go -o internal/services/api/docs --v3.1
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "paths": {
        "/meta/health": {
            "get": {
                "tags": ["Meta"],
                "summary": "Health check",
                "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/HealthResponse"}}}}}
            }
        },
        "/meta/ready": {
            "get": {
                "tags": ["Meta"],
                "summary": "Readiness of the database, audit store and bitstore",
                "responses": {
                    "200": {"description": "ok or degraded", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ReadyResponse"}}}},
                    "503": {"description": "a required probe failed", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ReadyResponse"}}}}
                }
            }
        },
        "/meta/version": {
            "get": {
                "tags": ["Meta"],
                "summary": "Build and version info",
                "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/BuildInfo"}}}}}
            }
        },
        "/meta/service": {
            "get": {
                "tags": ["Meta"],
                "summary": "Service info and uptime",
                "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ServiceResponse"}}}}}
            }
        },
        "/meta/protocol": {
            "get": {
                "tags": ["Meta"],
                "summary": "SWORD protocol version and build",
                "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ProtocolResponse"}}}}}
            }
        }
    },
    "components": {
        "schemas": {
            "HealthResponse": {
                "type": "object",
                "properties": {
                    "ok": {"type": "boolean"},
                    "service": {"type": "string"},
                    "started": {"type": "string"},
                    "now": {"type": "string"}
                }
            },
            "ProbeResult": {
                "type": "object",
                "properties": {
                    "name": {"type": "string"},
                    "status": {"type": "string", "enum": ["ok", "fail", "skipped"]},
                    "required": {"type": "boolean"},
                    "error": {"type": "string"},
                    "ms": {"type": "integer"}
                }
            },
            "ReadyResponse": {
                "type": "object",
                "properties": {
                    "status": {"type": "string", "enum": ["ok", "degraded", "fail"]},
                    "probes": {"type": "array", "items": {"$ref": "#/components/schemas/ProbeResult"}},
                    "now": {"type": "string"}
                }
            },
            "BuildInfo": {
                "type": "object",
                "properties": {
                    "service": {"type": "string"},
                    "version": {"type": "string"},
                    "commit": {"type": "string"},
                    "date": {"type": "string"}
                }
            },
            "ServiceResponse": {
                "type": "object",
                "properties": {
                    "name": {"type": "string"},
                    "started": {"type": "string"},
                    "uptime": {"type": "integer"}
                }
            },
            "ProtocolResponse": {
                "type": "object",
                "properties": {
                    "protocol": {"type": "string"},
                    "build": {"$ref": "#/components/schemas/BuildInfo"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.3.0",
	Title:            "SWORD API",
	Description:      "SWORD 1.3 deposit server: service documents, deposits and media links",
	InfoInstanceName: "api",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
