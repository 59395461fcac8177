// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package renderer

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/aileron/services/renderer/flight"
	"github.com/AleutianAI/aileron/services/renderer/observability"
)

// RenderRequest is the JSON body for the flight endpoint.
type RenderRequest struct {
	// Path is the URL path being navigated to.
	Path string `json:"path" binding:"required"`

	// Query is the raw query string, e.g. "tab=new&sort=hot".
	Query string `json:"query"`

	// RouterState is the client's current router state in wire form.
	// Omitted on initial load.
	RouterState jsonRaw `json:"routerState"`

	// Prefetch marks a speculative request.
	Prefetch bool `json:"prefetch"`

	// RouteTreeOnly requests only the router-state shape.
	RouteTreeOnly bool `json:"routeTreeOnly"`
}

// jsonRaw keeps the client's state bytes untouched until the service
// decodes them.
type jsonRaw []byte

func (r *jsonRaw) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

func (r jsonRaw) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// HandleFlight renders flight data for an app.
//
// # Description
//
// POST /v1/apps/:app/flight. Reconciles the app's loader tree against
// the client's router state and returns the missing flight data paths.
//
// Error mapping: unknown app or unroutable path return 404; a redirect
// raised during rendering returns 307/308 with the location in the
// body; anything else is a 500.
func HandleFlight(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		appName := c.Param("app")

		var req RenderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(appName, observability.ErrorCodeBadRequest)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "requestId": requestID})
			return
		}

		query, err := url.ParseQuery(req.Query)
		if err != nil {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(appName, observability.ErrorCodeBadRequest)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query string", "requestId": requestID})
			return
		}

		// Router state starts absent; "null" in the body means absent too.
		stateRaw := []byte(req.RouterState)
		if string(stateRaw) == "null" {
			stateRaw = nil
		}

		opts := RenderOptions{
			App:           appName,
			Path:          req.Path,
			Query:         query,
			RouterState:   stateRaw,
			Prefetch:      req.Prefetch,
			RouteTreeOnly: req.RouteTreeOnly,
		}

		body, err := svc.RenderFlight(c.Request.Context(), opts)
		if err != nil {
			handleRenderError(c, svc.logger, requestID, opts, err)
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(appName, opts.kind(), true)
		}
		c.Data(http.StatusOK, "application/json", body)
	}
}

// handleRenderError maps a render failure to an HTTP response.
func handleRenderError(c *gin.Context, logger *slog.Logger, requestID string, opts RenderOptions, err error) {
	m := observability.DefaultMetrics
	app := opts.App

	var redirect *flight.RedirectError
	switch {
	case errors.As(err, &redirect):
		status := http.StatusTemporaryRedirect
		if redirect.Permanent {
			status = http.StatusPermanentRedirect
		}
		if m != nil {
			m.RecordError(app, observability.ErrorCodeRedirect)
		}
		c.JSON(status, gin.H{"redirect": redirect.Location, "requestId": requestID})

	case errors.Is(err, ErrAppNotFound), errors.Is(err, flight.ErrNotFound):
		if m != nil {
			m.RecordError(app, observability.ErrorCodeNotFound)
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "requestId": requestID})

	default:
		logger.Error("Flight render failed",
			"request_id", requestID,
			"app", app,
			"path", opts.Path,
			"error", err)
		if m != nil {
			m.RecordError(app, observability.ErrorCodeRenderFailed)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Render failed", "requestId": requestID})
	}

	if m != nil {
		m.RecordRequest(app, opts.kind(), false)
	}
}

// HandleListApps lists registered apps with their artifact versions.
func HandleListApps(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := svc.Registry().Names()
		apps := make([]gin.H, 0, len(names))
		for _, name := range names {
			app, ok := svc.Registry().Get(name)
			if !ok {
				continue
			}
			apps = append(apps, gin.H{"name": app.Name, "version": app.Version})
		}
		c.JSON(http.StatusOK, gin.H{"apps": apps})
	}
}

// HandleReloadApp re-reads an app's artifacts from disk.
func HandleReloadApp(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("app")
		app, err := svc.Registry().Reload(name)
		if err != nil {
			svc.logger.Warn("App reload failed",
				"app", name,
				"error", err)
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if m := observability.DefaultMetrics; m != nil {
			m.RecordReload(name)
		}
		if svc.cache != nil {
			if err := svc.cache.InvalidateAll(); err != nil {
				svc.logger.Warn("Render cache invalidation failed after reload",
					"app", name,
					"error", err)
			}
		}
		c.JSON(http.StatusOK, gin.H{"name": app.Name, "version": app.Version})
	}
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReadyCheck reports readiness. The service is ready once at least one
// app's artifacts are loaded.
func ReadyCheck(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(svc.Registry().Names()) == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no apps loaded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
