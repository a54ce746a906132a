// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
	"github.com/AleutianAI/depscout/services/resolver/engine"
	"github.com/AleutianAI/depscout/services/resolver/observability"
	"github.com/AleutianAI/depscout/services/resolver/report"
	"github.com/AleutianAI/depscout/services/resolver/research"
)

// ErrNoRequirements is the validation failure for an empty submission.
// Rejected synchronously, before any job record exists.
var ErrNoRequirements = errors.New("requirement list must not be empty")

// Runner owns the background resolution pipelines.
//
// # Description
//
// Submit writes the initial processing record synchronously, then
// launches the three-phase pipeline (research, resolve, compile) in a
// supervised goroutine that the caller never awaits. A panic anywhere
// in the pipeline is recovered and converted to a terminal failed
// record, so a job can end stuck in processing only if the store
// itself stops accepting writes.
//
// # Thread Safety
//
// Safe for concurrent use. Jobs are independent; the only shared
// state between them is the Store and the research cache, both of
// which are internally synchronized.
//
// # Limitations
//
//   - No cancellation path: once launched, a pipeline runs to a
//     terminal state. Callers poll and apply their own give-up
//     threshold.
//   - No retry transition: a failed job must be resubmitted as a new
//     job.
type Runner struct {
	store  Store
	unit   *research.Unit
	engine *engine.Engine

	wg     sync.WaitGroup
	active atomic.Int64
}

// NewRunner creates a pipeline runner.
func NewRunner(store Store, unit *research.Unit, eng *engine.Engine) *Runner {
	return &Runner{store: store, unit: unit, engine: eng}
}

// Submit admits one analysis request.
//
// Validates the requirement list, writes the initial JobRecord in the
// processing state, launches the background pipeline, and returns the
// record immediately. Submission latency is bounded regardless of how
// many packages were requested; the expensive work happens behind the
// returned job ID.
func (r *Runner) Submit(ctx context.Context, req datatypes.ResolveRequest) (*datatypes.JobRecord, error) {
	if len(req.Requirements) == 0 {
		return nil, ErrNoRequirements
	}
	req.ApplyDefaults()

	record := &datatypes.JobRecord{
		ID:              uuid.NewString(),
		Status:          datatypes.JobStatusProcessing,
		CreatedAt:       time.Now().UTC(),
		OriginalRequest: req,
	}
	if err := r.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("admit job: %w", err)
	}

	observability.JobSubmitted()
	r.launch(record)

	slog.Info("Accepted resolution job",
		"job_id", record.ID,
		"requirements", len(req.Requirements),
		"python_version", req.PythonVersion)
	return record, nil
}

// Status reads the current job record by ID.
func (r *Runner) Status(ctx context.Context, id string) (*datatypes.JobRecord, error) {
	return r.store.Get(ctx, id)
}

// Active returns the number of pipelines currently running.
func (r *Runner) Active() int64 {
	return r.active.Load()
}

// Wait blocks until every launched pipeline reaches a terminal state
// or the timeout elapses. Used by tests and graceful shutdown.
func (r *Runner) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%d pipeline(s) still running after %v", r.Active(), timeout)
	}
}

// launch starts the supervised pipeline goroutine for one job.
func (r *Runner) launch(record *datatypes.JobRecord) {
	r.wg.Add(1)
	r.active.Add(1)
	observability.JobStarted()

	go func() {
		defer r.wg.Done()
		defer r.active.Add(-1)
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Resolution pipeline panicked",
					"job_id", record.ID, "panic", rec)
				r.fail(record, fmt.Sprintf("internal error: %v", rec))
			}
		}()
		r.run(record)
	}()
}

// run executes the three phases strictly in sequence. The pipeline is
// deliberately detached from the submitting request's context: the
// caller's HTTP request finishing must not cancel the job.
func (r *Runner) run(record *datatypes.JobRecord) {
	ctx := context.Background()
	start := time.Now()
	req := record.OriginalRequest

	phaseStart := time.Now()
	results := r.unit.ResearchAll(ctx, req.Requirements, req.Options)
	observability.ObservePhase("research", time.Since(phaseStart).Seconds())
	slog.Debug("Research phase finished", "job_id", record.ID,
		"packages", len(results), "duration", time.Since(phaseStart))

	phaseStart = time.Now()
	resolution := r.engine.Resolve(req.Requirements, results)
	observability.ObservePhase("resolve", time.Since(phaseStart).Seconds())

	phaseStart = time.Now()
	rep := report.Compile(record.ID, req, resolution, results, start)
	observability.ObservePhase("compile", time.Since(phaseStart).Seconds())

	completed := *record
	completed.Status = datatypes.JobStatusCompleted
	completed.Report = rep
	if err := r.store.Put(ctx, &completed); err != nil {
		slog.Error("Failed to persist completed job", "job_id", record.ID, "error", err)
		r.fail(record, fmt.Sprintf("persist report: %v", err))
		return
	}

	observability.JobFinished(string(datatypes.JobStatusCompleted))
	slog.Info("Resolution job completed",
		"job_id", record.ID,
		"success", resolution.Success,
		"resolved", len(resolution.ResolvedPackages),
		"conflicts", len(resolution.Conflicts),
		"duration_ms", rep.Metadata.ProcessingTimeMs)
}

// fail writes the terminal failed record, preserving the raw error
// message for caller visibility.
func (r *Runner) fail(record *datatypes.JobRecord, message string) {
	failed := *record
	failed.Status = datatypes.JobStatusFailed
	failed.Error = message
	failed.Report = nil

	if err := r.store.Put(context.Background(), &failed); err != nil {
		// Worst case: the caller keeps seeing "processing" until the
		// record's TTL expires it. Nothing else to do but shout.
		slog.Error("Failed to persist failed job record",
			"job_id", record.ID, "original_error", message, "store_error", err)
	}
	observability.JobFinished(string(datatypes.JobStatusFailed))
}
