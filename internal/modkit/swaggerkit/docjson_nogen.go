//go:build !swag

package swaggerkit

// without the generated docs the UI still loads an empty document
var docReader = func() string {
	return `{"openapi":"3.1.0","info":{"title":"SWORD API","version":"0.0.0"},"paths":{}}`
}
