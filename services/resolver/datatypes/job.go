// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// ReportMetadata is the summary block attached to every Report.
type ReportMetadata struct {
	PythonVersion    string `json:"python_version"`
	TotalPackages    int    `json:"total_packages"`
	DeprecatedCount  int    `json:"deprecated_count"`
	ConflictCount    int    `json:"conflict_count"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// Report is the persisted output of one completed analysis job: the
// resolution outcome, the generated manifest text, a narrative
// document, and per-package analysis strings.
//
// The Job Store owns a Report from creation until expiry. External
// consumers read this structure verbatim.
type Report struct {
	ID                 string            `json:"id"`
	CreatedAt          time.Time         `json:"created_at"`
	OriginalRequest    ResolveRequest    `json:"original_request"`
	ResolutionResult   ResolutionResult  `json:"resolution_result"`
	ManifestText       string            `json:"manifest_text"`
	NarrativeText      string            `json:"narrative_text"`
	PerPackageAnalysis map[string]string `json:"per_package_analysis,omitempty"`
	Metadata           ReportMetadata    `json:"metadata"`
}

// JobStatus is the lifecycle state of one analysis job.
type JobStatus string

const (
	// JobStatusProcessing means the background pipeline has not finished.
	JobStatusProcessing JobStatus = "processing"

	// JobStatusCompleted means the pipeline finished and a Report exists.
	JobStatusCompleted JobStatus = "completed"

	// JobStatusFailed means the pipeline aborted. Failed is terminal:
	// there is no retry transition, the caller must resubmit.
	JobStatusFailed JobStatus = "failed"
)

// JobRecord is the durable state of one analysis job.
//
// A record is created in the processing state at submission time.
// Transitions are monotonic: once completed or failed, a record never
// reverts to processing. A record may briefly carry both a Report and
// a terminal Error while compilation is being persisted, which is why
// status readers must branch processing, then failed, then completed.
type JobRecord struct {
	ID              string         `json:"id"`
	Status          JobStatus      `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	OriginalRequest ResolveRequest `json:"original_request"`
	Report          *Report        `json:"report,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Terminal reports whether the job can no longer change state.
func (j *JobRecord) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
