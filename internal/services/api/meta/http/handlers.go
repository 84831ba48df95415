// Package http serves the operational endpoints under /api/v1/meta
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"sword/internal/core/version"
	"sword/internal/modkit/httpkit"
)

// Pinger is satisfied by the postgres and clickhouse adapters and every bitstore
type Pinger interface {
	Ping(context.Context) error
}

// Probe is one readiness target; a nil Target is reported as skipped
type Probe struct {
	Name   string
	Target Pinger
	// Required probes fail readiness, the rest only degrade it
	Required bool
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Probes      []Probe
	// ProbeTimeout bounds the whole readiness round, 2s when zero
	ProbeTimeout time.Duration
	// Protocol is the SWORD version served
	Protocol string

	now func() time.Time
}

type handlers struct {
	Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.now == nil {
		d.now = time.Now
	}
	if d.ProbeTimeout <= 0 {
		d.ProbeTimeout = 2 * time.Second
	}
	h := &handlers{Deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/protocol", h.protocol)
}

func (h *handlers) stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"sword-api"`
	Started string `json:"started" example:"2026-10-01T09:00:00Z"`
	Now     string `json:"now"     example:"2026-10-01T09:05:00Z"`
}

// ProbeResult is the outcome of one readiness probe
type ProbeResult struct {
	Name     string `json:"name"     example:"bitstore"`
	Status   string `json:"status"   example:"ok"` // ok fail skipped
	Required bool   `json:"required" example:"true"`
	Error    string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432: connect: connection refused"`
	Millis   int64  `json:"ms"       example:"3"`
}

// ReadyResponse summarizes readiness; fail is also signalled with a 503
type ReadyResponse struct {
	Status string        `json:"status" example:"ok"` // ok degraded fail
	Probes []ProbeResult `json:"probes"`
	Now    string        `json:"now"    example:"2026-10-01T09:05:00Z"`
}

// ServiceResponse describes the running process
type ServiceResponse struct {
	Name    string `json:"name"    example:"sword-api"`
	Started string `json:"started" example:"2026-10-01T09:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// ProtocolResponse reports the SWORD protocol version next to the build
type ProtocolResponse struct {
	Protocol string            `json:"protocol" example:"1.3"`
	Build    version.BuildInfo `json:"build"`
}

// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.ServiceName,
		Started: h.stamp(h.StartedAt),
		Now:     h.stamp(h.now()),
	}, nil
}

// @Summary Readiness of the database, audit store and bitstore
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.ProbeTimeout)
	defer cancel()

	results := make([]ProbeResult, len(h.Probes))
	var wg sync.WaitGroup
	for i, p := range h.Probes {
		results[i] = ProbeResult{Name: p.Name, Required: p.Required, Status: "skipped"}
		if p.Target == nil {
			continue
		}
		wg.Add(1)
		go func(res *ProbeResult, target Pinger) {
			defer wg.Done()
			start := time.Now()
			err := target.Ping(ctx)
			res.Millis = time.Since(start).Milliseconds()
			if err != nil {
				res.Status, res.Error = "fail", err.Error()
				return
			}
			res.Status = "ok"
		}(&results[i], p.Target)
	}
	wg.Wait()

	out := ReadyResponse{Status: overall(results), Probes: results, Now: h.stamp(h.now())}
	if out.Status == "fail" {
		return httpkit.WithStatus(http.StatusServiceUnavailable, out), nil
	}
	return out, nil
}

// overall is fail when a required probe is not ok and degraded when an optional one is not
func overall(rs []ProbeResult) string {
	status := "ok"
	for _, r := range rs {
		if r.Status == "ok" {
			continue
		}
		if r.Required {
			return "fail"
		}
		status = "degraded"
	}
	return status
}

// @Summary Build info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

// @Summary Service name and uptime in seconds
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse
// @Router /meta/service [get]
func (h *handlers) service(_ *http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.ServiceName,
		Started: h.stamp(h.StartedAt),
		Uptime:  int64(h.now().Sub(h.StartedAt) / time.Second),
	}, nil
}

// @Summary SWORD protocol version
// @Tags Meta
// @Produce json
// @Success 200 {object} ProtocolResponse
// @Router /meta/protocol [get]
func (h *handlers) protocol(_ *http.Request) (any, error) {
	return ProtocolResponse{Protocol: h.Protocol, Build: version.Info()}, nil
}
