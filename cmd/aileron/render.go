// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aileron/services/renderer"
	"github.com/AleutianAI/aileron/services/renderer/apploader"
)

// runRender loads one app directory, renders a single flight response
// and prints it. Useful for inspecting build artifacts without a
// running server.
func runRender(cmd *cobra.Command, args []string) {
	app, err := apploader.Load(appDir)
	if err != nil {
		log.Fatalf("Error loading app from %s: %v", appDir, err)
	}

	registry := apploader.NewRegistry()
	registry.Put(app)

	svc, err := renderer.NewService(renderer.ServiceOptions{Registry: registry})
	if err != nil {
		log.Fatalf("Error creating renderer service: %v", err)
	}

	query, err := url.ParseQuery(renderQuery)
	if err != nil {
		log.Fatalf("Invalid query string %q: %v", renderQuery, err)
	}

	var state []byte
	if renderState != "" {
		state, err = os.ReadFile(renderState)
		if err != nil {
			log.Fatalf("Error reading router state file: %v", err)
		}
	}

	body, err := svc.RenderFlight(context.Background(), renderer.RenderOptions{
		App:           app.Name,
		Path:          renderPath,
		Query:         query,
		RouterState:   state,
		Prefetch:      prefetchOnly,
		RouteTreeOnly: routeTreeOnly,
	})
	if err != nil {
		log.Fatalf("Render failed: %v", err)
	}

	fmt.Println(string(body))
}
