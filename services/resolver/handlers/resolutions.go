// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers for the resolver API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
	"github.com/AleutianAI/depscout/services/resolver/jobs"
)

// SubmitResolution accepts a requirement list and admits a new job.
//
// The response returns as soon as the initial record is written; the
// analysis itself runs in the background and can take tens of seconds
// for large requirement sets due to sequential registry calls.
func SubmitResolution(runner *jobs.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ResolveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Info("Rejected malformed submission", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			slog.Info("Rejected invalid submission", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission: " + err.Error()})
			return
		}

		record, err := runner.Submit(c.Request.Context(), req)
		switch {
		case errors.Is(err, jobs.ErrNoRequirements):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			slog.Error("Failed to admit resolution job", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist job record"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"id":      record.ID,
			"status":  string(record.Status),
			"message": "resolution started; poll this job id for the report",
		})
	}
}

// completedResponse is a Report with the terminal status appended.
type completedResponse struct {
	*datatypes.Report
	Status string `json:"status"`
}

// GetResolution serves status/report lookups by job ID.
//
// Returns 404 when the ID is unknown or the record expired; that is a
// distinct outcome from "still processing". The branch order is
// processing, then failed, then completed: a record can carry both a
// partial report and a terminal error while compilation results are
// being persisted, and the status field must win.
func GetResolution(runner *jobs.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		record, err := runner.Status(c.Request.Context(), id)
		switch {
		case errors.Is(err, jobs.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		case err != nil:
			slog.Error("Job store read failed", "job_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job record"})
			return
		}

		switch {
		case record.Status == datatypes.JobStatusProcessing:
			c.JSON(http.StatusOK, gin.H{
				"status":           string(datatypes.JobStatusProcessing),
				"created_at":       record.CreatedAt,
				"original_request": record.OriginalRequest,
			})
		case record.Status == datatypes.JobStatusFailed:
			c.JSON(http.StatusOK, gin.H{
				"status":     string(datatypes.JobStatusFailed),
				"error":      record.Error,
				"created_at": record.CreatedAt,
			})
		case record.Report != nil:
			c.JSON(http.StatusOK, completedResponse{Report: record.Report, Status: string(datatypes.JobStatusCompleted)})
		default:
			slog.Error("Completed job record has no report", "job_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "job record is inconsistent"})
		}
	}
}
