// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command resolver starts the DepScout resolver HTTP server.
//
// This is the main entry point for the containerized resolver service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - RESOLVER_PORT: HTTP server port (default: 12310)
//   - LLM_BACKEND_TYPE: advisor provider - none, openai (default: none)
//   - REGISTRY_URL: package registry base URL (default: https://pypi.org)
//   - JOB_STORE_PATH: job store directory (default: ./data/jobs)
//   - JOB_RECORD_TTL_HOURS: finished-record lifetime in hours (default: 24)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: depscout-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o resolver ./cmd/resolver
//
//	# Run
//	./resolver
//
//	# Or via container
//	podman-compose up resolver
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/depscout/services/resolver"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := resolver.Config{
		Port:         getEnvInt("RESOLVER_PORT", 12310),
		LLMBackend:   getEnvString("LLM_BACKEND_TYPE", "none"),
		RegistryURL:  getEnvString("REGISTRY_URL", "https://pypi.org"),
		JobStorePath: getEnvString("JOB_STORE_PATH", "./data/jobs"),
		JobRecordTTL: time.Duration(getEnvInt("JOB_RECORD_TTL_HOURS", 24)) * time.Hour,
		OTelEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "depscout-otel-collector:4317"),
	}

	slog.Info("Starting resolver",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"registry_url", cfg.RegistryURL,
	)

	svc, err := resolver.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create resolver: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Resolver error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
