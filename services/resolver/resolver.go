// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolver provides the dependency resolution service for DepScout.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the package research unit, the version
// assignment engine, the durable job store, and observability
// infrastructure.
//
// # Usage
//
//	cfg := resolver.Config{Port: 12310}
//	svc, err := resolver.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Run()
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/depscout/services/llm"
	"github.com/AleutianAI/depscout/services/resolver/engine"
	"github.com/AleutianAI/depscout/services/resolver/jobs"
	"github.com/AleutianAI/depscout/services/resolver/knowledge"
	"github.com/AleutianAI/depscout/services/resolver/observability"
	"github.com/AleutianAI/depscout/services/resolver/registry"
	"github.com/AleutianAI/depscout/services/resolver/research"
	"github.com/AleutianAI/depscout/services/resolver/routes"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the resolver service.
//
// # Description
//
// Service abstracts the resolver lifecycle, enabling testing and
// alternative implementations. The interface follows the minimal surface
// area principle - only essential lifecycle methods are exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
//
// # Limitations
//
//   - No graceful shutdown method yet (planned for future)
//   - Run() blocks until server error
//
// # Assumptions
//
//   - Service is fully initialized before Run() is called
//   - Run() is called at most once per Service instance
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds the resolver service configuration.
//
// Zero values fall back to defaults in applyConfigDefaults, so
// callers only need to set the fields they care about:
//
//	cfg := resolver.Config{
//	    Port:        12310,
//	    LLMBackend:  "openai",
//	    RegistryURL: "https://pypi.org",
//	}
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// LLMBackend selects the alternative-suggestion advisor.
	// Valid values: "none", "openai"
	// Default: "none" (deprecation analysis still runs, from the
	// embedded knowledge tables; only AI-suggested alternatives are
	// skipped)
	LLMBackend string

	// RegistryURL is the base URL of the package registry.
	// Default: "https://pypi.org"
	RegistryURL string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "depscout-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus metrics endpoint.
	// Default: true
	EnableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// JobStorePath is the on-disk directory for the job store.
	// Default: "./data/jobs"
	JobStorePath string

	// InMemoryStore keeps job records in memory only. Intended for
	// tests and local experimentation; records do not survive a
	// restart.
	InMemoryStore bool

	// JobRecordTTL is how long finished job records stay retrievable.
	// Default: 24 hours
	JobRecordTTL time.Duration

	// CacheTTL is how long registry research results stay fresh.
	// Default: 1 hour
	CacheTTL time.Duration

	// CacheCleanupInterval is how often the research cache janitor
	// sweeps expired entries. Default: 10 minutes
	CacheCleanupInterval time.Duration
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Description
//
// service is the main implementation that coordinates:
//   - HTTP routing via Gin
//   - Per-package research (registry lookups, knowledge tables, cache)
//   - Version assignment and conflict detection
//   - Durable job records in BadgerDB
//   - OpenTelemetry tracing
//   - Prometheus metrics
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
//
// # Limitations
//
//   - No hot-reload of configuration
//   - Single advisor backend per instance
type service struct {
	config        Config
	router        *gin.Engine
	store         jobs.Store
	cache         *research.Cache
	runner        *jobs.Runner
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new resolver Service with the given configuration.
//
// # Description
//
// New initializes all resolver components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Loads the embedded deprecation knowledge tables
//  5. Opens the BadgerDB job store
//  6. Creates the registry client and research cache
//  7. Creates the advisor client based on backend type
//  8. Sets up HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run resolver service
//   - error: Non-nil if initialization fails
//
// # Limitations
//
//   - Advisor creation may fail if credentials are missing
//   - The job store directory must be writable
//
// # Assumptions
//
//   - Environment variables are set for LLM providers (API keys)
//   - Network is available for registry and collector connections
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	// Initialize OpenTelemetry tracer
	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	// Initialize Prometheus metrics
	if s.config.EnableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for resolution pipeline")
	}

	// Load embedded knowledge tables
	table, err := knowledge.Load()
	if err != nil {
		s.cleanupAfterInitFailure()
		return nil, fmt.Errorf("failed to load knowledge tables: %w", err)
	}

	// Open job store
	if err := s.initStore(); err != nil {
		s.cleanupAfterInitFailure()
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}

	// Initialize advisor client (optional)
	advisor, err := s.initAdvisor()
	if err != nil {
		s.cleanupAfterInitFailure()
		return nil, fmt.Errorf("failed to initialize advisor: %w", err)
	}

	// Registry client, research cache, and pipeline
	source := registry.NewClient(s.config.RegistryURL)
	s.cache = research.NewCache(s.config.CacheTTL)
	s.cache.StartJanitor(s.config.CacheCleanupInterval)

	unit := research.NewUnit(source, table, s.cache, advisor)
	eng := engine.NewEngine(table)
	s.runner = jobs.NewRunner(s.store, unit, eng)

	// Setup HTTP router
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting resolver server",
		"port", s.config.Port,
		"registry_url", s.config.RegistryURL,
		"llm_backend", s.config.LLMBackend)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
//
// # Limitations
//
//   - Should not be used to modify routes after construction
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "none"
	}
	if cfg.RegistryURL == "" {
		cfg.RegistryURL = "https://pypi.org"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "depscout-otel-collector:4317"
	}
	// EnableMetrics defaults to true (zero value is false, so we need explicit check)
	// We'll handle this by always enabling unless explicitly disabled via a setter
	cfg.EnableMetrics = true

	if cfg.JobStorePath == "" {
		cfg.JobStorePath = "./data/jobs"
	}
	if cfg.JobRecordTTL == 0 {
		cfg.JobRecordTTL = 24 * time.Hour
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 1 * time.Hour
	}
	if cfg.CacheCleanupInterval == 0 {
		cfg.CacheCleanupInterval = 10 * time.Minute
	}

	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Sets up OTLP trace exporter to send spans to the configured collector.
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown
//   - error: Non-nil if tracer setup fails
//
// # Limitations
//
//   - Uses insecure gRPC connection (appropriate for internal networks)
//
// # Assumptions
//
//   - OTel collector is reachable at configured endpoint
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("resolver-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initStore opens the BadgerDB job store.
//
// # Description
//
// Opens an on-disk store at JobStorePath, or an in-memory store when
// InMemoryStore is set. Finished records expire after JobRecordTTL.
func (s *service) initStore() error {
	if s.config.InMemoryStore {
		store, err := jobs.OpenInMemory()
		if err != nil {
			return err
		}
		s.store = store
		slog.Info("Job store opened in memory; records will not survive restart")
		return nil
	}

	storeCfg := jobs.DefaultConfig()
	storeCfg.Path = s.config.JobStorePath
	storeCfg.RecordTTL = s.config.JobRecordTTL
	storeCfg.Logger = slog.Default()

	store, err := jobs.Open(storeCfg)
	if err != nil {
		return err
	}
	s.store = store

	slog.Info("Job store opened",
		"path", s.config.JobStorePath,
		"record_ttl", s.config.JobRecordTTL.String())
	return nil
}

// initAdvisor creates the alternative-suggestion advisor client.
//
// # Description
//
// Returns a nil client for the "none" backend; the research unit treats
// a nil advisor as "skip AI suggestions" and relies on the embedded
// knowledge tables alone.
//
// # Outputs
//
//   - llm.LLMClient: Advisor client, or nil when disabled
//   - error: Non-nil for unknown backends or missing credentials
func (s *service) initAdvisor() (llm.LLMClient, error) {
	switch s.config.LLMBackend {
	case "none":
		slog.Info("Advisor disabled; alternative suggestions come from knowledge tables only")
		return nil, nil
	case "openai":
		client, err := llm.NewOpenAIClient()
		if err != nil {
			return nil, err
		}
		slog.Info("OpenAI advisor initialized")
		return client, nil
	default:
		return nil, fmt.Errorf("unknown LLM backend: %q", s.config.LLMBackend)
	}
}

// initRouter sets up the Gin HTTP router with all routes.
//
// # Assumptions
//
//   - All dependencies (store, runner) are initialized
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("resolver-service"))

	routes.SetupRoutes(s.router, s.runner)
}

// cleanup releases all resources held by the service.
//
// # Description
//
// Called when Run() exits. Waits briefly for in-flight pipelines so
// their terminal records reach the store, then shuts down the cache
// janitor, the store, and the tracer.
func (s *service) cleanup() {
	if s.runner != nil {
		if err := s.runner.Wait(30 * time.Second); err != nil {
			slog.Warn("Gave up waiting for in-flight resolutions", "error", err)
		}
	}

	if s.cache != nil {
		s.cache.StopJanitor()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Job store close error", "error", err)
		}
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// cleanupAfterInitFailure releases whatever New() managed to acquire
// before failing.
func (s *service) cleanupAfterInitFailure() {
	if s.cache != nil {
		s.cache.StopJanitor()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
