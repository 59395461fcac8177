// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package renderer

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/aileron/services/renderer/apploader"
	"github.com/AleutianAI/aileron/services/renderer/flight"
)

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	svc := newTestService(t, nil)
	router := gin.New()
	SetupRoutes(router, svc)
	return router
}

func postFlight(t *testing.T, router *gin.Engine, app string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/apps/"+app+"/flight", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleFlight_OK(t *testing.T) {
	router := newTestRouter(t)

	w := postFlight(t, router, "shop", RenderRequest{Path: "/blog/hello"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Paths []json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Paths, 1)
}

func TestHandleFlight_UnknownApp(t *testing.T) {
	router := newTestRouter(t)

	w := postFlight(t, router, "missing", RenderRequest{Path: "/"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleFlight_MissingPath(t *testing.T) {
	router := newTestRouter(t)

	w := postFlight(t, router, "shop", map[string]any{"prefetch": true})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleFlight_InvalidQueryString(t *testing.T) {
	router := newTestRouter(t)

	w := postFlight(t, router, "shop", map[string]any{
		"path":  "/blog/hello",
		"query": "a=%zz",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleFlight_NullRouterState(t *testing.T) {
	router := newTestRouter(t)

	w := postFlight(t, router, "shop", map[string]any{
		"path":        "/blog/hello",
		"routerState": nil,
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleFlight_RouteTreeOnly(t *testing.T) {
	router := newTestRouter(t)

	w := postFlight(t, router, "shop", RenderRequest{
		Path:          "/blog/hello",
		RouteTreeOnly: true,
	})

	require.Equal(t, http.StatusOK, w.Code)
	// Route-tree-only responses carry no rendered seed: the page module
	// path must not appear in the body.
	assert.NotContains(t, w.Body.String(), "app/blog/[slug]/page")
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestHandleRenderError_RedirectMapping(t *testing.T) {
	tests := []struct {
		name       string
		permanent  bool
		wantStatus int
	}{
		{"temporary", false, http.StatusTemporaryRedirect},
		{"permanent", true, http.StatusPermanentRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			opts := RenderOptions{App: "shop", Path: "/account"}
			err := &flight.RedirectError{Location: "/login", Permanent: tt.permanent}
			handleRenderError(c, slog.Default(), "req-1", opts, err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body struct {
				Redirect  string `json:"redirect"`
				RequestID string `json:"requestId"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "/login", body.Redirect)
			assert.Equal(t, "req-1", body.RequestID)
		})
	}
}

func TestHandleRenderError_NotFoundMapping(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	opts := RenderOptions{App: "shop", Path: "/nowhere"}
	handleRenderError(c, slog.Default(), "req-2", opts, flight.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Not found")
}

func TestHandleRenderError_InternalMapping(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	opts := RenderOptions{App: "shop", Path: "/"}
	handleRenderError(c, slog.Default(), "req-3", opts, errors.New("renderer exploded"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Render failed")
	assert.NotContains(t, w.Body.String(), "exploded", "internal detail stays out of the response")
}

func TestReadyCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")
}

func TestReadyCheck_NoApps(t *testing.T) {
	svc, err := NewService(ServiceOptions{Registry: apploader.NewRegistry()})
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, svc)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleListApps(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/apps", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Apps []struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"apps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Apps, 1)
	assert.Equal(t, "shop", resp.Apps[0].Name)
	assert.NotEmpty(t, resp.Apps[0].Version)
}

func TestHandleReloadApp(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/apps/shop/reload", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/apps/missing/reload", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutes_CoreRoutesRegistered(t *testing.T) {
	router := newTestRouter(t)

	coreRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/ready"},
		{"GET", "/metrics"},
		{"GET", "/v1/apps"},
		{"POST", "/v1/apps/:app/flight"},
		{"POST", "/v1/apps/:app/reload"},
	}

	routes := router.Routes()
	for _, expected := range coreRoutes {
		found := false
		for _, r := range routes {
			if r.Method == expected.method && r.Path == expected.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected route %s %s not found", expected.method, expected.path)
		}
	}
}
