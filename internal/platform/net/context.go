// Package net provides utilities for working with request contexts
package net

import (
	"context"

	"sword/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const (
	keyPrincipal  ctxKey = "principal"
	keyOnBehalfOf ctxKey = "on_behalf_of"
)

// WithRequest annotates context with the request id and the authenticated principal
// request logs pick both up through logger.C
func WithRequest(ctx context.Context, reqID, principal string) context.Context {
	ctx = logger.WithRequest(ctx, reqID, principal)
	if reqID != "" {
		// set chi RequestID so chimw.GetReqID can retrieve it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	if principal != "" {
		ctx = context.WithValue(ctx, keyPrincipal, principal)
	}
	return ctx
}

// WithOnBehalfOf annotates context with the mediated depositor
func WithOnBehalfOf(ctx context.Context, obo string) context.Context {
	ctx = logger.WithOnBehalfOf(ctx, obo)
	if obo != "" {
		ctx = context.WithValue(ctx, keyOnBehalfOf, obo)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// Principal returns the authenticated username if present
func Principal(ctx context.Context) string {
	if v, ok := ctx.Value(keyPrincipal).(string); ok {
		return v
	}
	return ""
}

// OnBehalfOf returns the on-behalf-of username if present
func OnBehalfOf(ctx context.Context) string {
	if v, ok := ctx.Value(keyOnBehalfOf).(string); ok {
		return v
	}
	return ""
}
