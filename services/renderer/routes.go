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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the renderer's endpoints on the router.
func SetupRoutes(router *gin.Engine, svc *Service) {
	router.GET("/health", HealthCheck)
	router.GET("/ready", ReadyCheck(svc))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		apps := v1.Group("/apps")
		{
			apps.GET("", HandleListApps(svc))
			apps.POST("/:app/flight", HandleFlight(svc))
			apps.POST("/:app/reload", HandleReloadApp(svc))
		}
	}
}
