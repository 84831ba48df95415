package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"sword/internal/platform/config"
)

// the SWORD endpoints speak Atom and are described by the service document itself
const swordNote = "Deposits go to /sword/deposit/{handle} and are described by the " +
	"AtomPub service document at /sword/servicedocument."

// serveDocJSON parses the generated document, shapes it for the UI and serves it
func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(docReader()), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}
		shape(spec, config.New().Prefix("CORE_API_").MayString("DOCS_TITLE_SUFFIX", ""))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

func shape(spec map[string]any, titleSuffix string) {
	// swagger ui renders 3.0 only
	if v, _ := spec["openapi"].(string); v == "" || strings.HasPrefix(v, "3.1") {
		spec["openapi"] = "3.0.3"
	}
	delete(spec, "swagger")
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": "/api/v1"}}
	}

	info, _ := spec["info"].(map[string]any)
	if info == nil {
		info = map[string]any{}
		spec["info"] = info
	}
	if title, ok := info["title"].(string); ok && titleSuffix != "" {
		info["title"] = title + " " + titleSuffix
	}
	if _, ok := info["description"]; !ok {
		info["description"] = swordNote
	}

	schemas := child(child(spec, "components"), "schemas")
	if _, ok := schemas["ErrorResponse"]; !ok {
		schemas["ErrorResponse"] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status_code": map[string]any{"type": "integer", "format": "int32"},
				"status":      map[string]any{"type": "string"},
				"code":        map[string]any{"type": "integer", "format": "int32"},
				"error":       map[string]any{"type": "string"},
				"request_id":  map[string]any{"type": "string"},
			},
			"required": []any{"status_code", "status"},
		}
	}

	paths, _ := spec["paths"].(map[string]any)
	for _, p := range paths {
		node, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, op := range node {
			if op, ok := op.(map[string]any); ok {
				defaultResponse(child(op, "responses"), http.StatusInternalServerError)
			}
		}
	}
}

// child returns m[key] as a map, creating it when missing
func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}

func defaultResponse(responses map[string]any, status int) {
	code := strconv.Itoa(status)
	if _, ok := responses[code]; ok {
		return
	}
	responses[code] = map[string]any{
		"description": http.StatusText(status),
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
			},
		},
	}
}
