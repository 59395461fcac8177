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
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// --- Global Command Variables ---
var (
	configPath    string
	appDir        string
	renderPath    string
	renderQuery   string
	renderState   string
	prefetchOnly  bool
	routeTreeOnly bool

	rootCmd = &cobra.Command{
		Use:   "aileron",
		Short: "Flight data renderer for Aleutian app router trees",
		Long: `Aileron serves flight data for app-router style applications:
it reconciles each app's loader tree against the client's router state
and streams back only the subtrees the client is missing.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve flight data over HTTP",
		Run:   runServe, // Defined in serve.go
	}

	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render one flight response from an app directory to stdout",
		Run:   runRender, // Defined in render.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the aileron version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml")

	renderCmd.Flags().StringVar(&appDir, "app-dir", "", "App directory containing loader-tree.json and manifests")
	renderCmd.Flags().StringVar(&renderPath, "path", "/", "URL path to render")
	renderCmd.Flags().StringVar(&renderQuery, "query", "", "Raw query string")
	renderCmd.Flags().StringVar(&renderState, "state", "", "File holding the client router state wire JSON")
	renderCmd.Flags().BoolVar(&prefetchOnly, "prefetch", false, "Render as a prefetch request")
	renderCmd.Flags().BoolVar(&routeTreeOnly, "route-tree-only", false, "Return only the router state shape")
	_ = renderCmd.MarkFlagRequired("app-dir")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}
