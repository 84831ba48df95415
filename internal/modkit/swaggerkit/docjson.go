//go:build swag

package swaggerkit

import docs "sword/internal/services/api/docs"

var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }
