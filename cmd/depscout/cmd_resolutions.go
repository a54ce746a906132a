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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/AleutianAI/depscout/pkg/validation"
	"github.com/AleutianAI/depscout/services/resolver/datatypes"
	"github.com/spf13/cobra"
)

// SubmitResponse is the accepted-job acknowledgement from the resolver.
type SubmitResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JobView is the polling response. Report fields are inlined when the
// job completed; Error is set when it failed.
type JobView struct {
	ID            string                     `json:"id"`
	Status        string                     `json:"status"`
	Error         string                     `json:"error"`
	ManifestText  string                     `json:"manifest_text"`
	NarrativeText string                     `json:"narrative_text"`
	Result        datatypes.ResolutionResult `json:"resolution_result"`
	Metadata      datatypes.ReportMetadata   `json:"metadata"`
}

func runSubmit(cmd *cobra.Command, args []string) {
	reqs, err := validation.ParseRequirements(args)
	if err != nil {
		log.Fatalf("Invalid requirement: %v", err)
	}

	payload := datatypes.ResolveRequest{
		Requirements:  reqs,
		PythonVersion: pythonVersion,
		Options: datatypes.ResolveOptions{
			SuggestAlternatives: suggestAlternatives,
			ExcludeDeprecated:   excludeDeprecated,
		},
	}
	body, _ := json.Marshal(payload)

	logger.Debug("submitting requirements",
		"count", len(reqs),
		"server", serverURL,
		"suggest_alternatives", suggestAlternatives)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(serverURL+"/v1/resolutions", "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Fatalf("Failed to reach the resolver service: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		log.Fatalf("The resolver rejected the submission (%s)", string(raw))
	}

	var ack SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		log.Fatalf("Failed to parse submission response: %v", err)
	}

	fmt.Printf("Job accepted: %s\n", ack.ID)

	if !waitForResult {
		fmt.Printf("Poll with: depscout status %s\n", ack.ID)
		return
	}

	job := pollUntilDone(ack.ID)
	printJob(job)
	if job.Status == "failed" {
		os.Exit(1)
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	job := fetchJob(args[0])
	printJob(job)
}

func runManifest(cmd *cobra.Command, args []string) {
	job := fetchJob(args[0])
	if job.Status != "completed" {
		log.Fatalf("Job %s is %s; no manifest available", args[0], job.Status)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(job.ManifestText), 0o644); err != nil {
			log.Fatalf("Failed to write manifest: %v", err)
		}
		fmt.Printf("Manifest written to %s\n", outputPath)
		return
	}
	fmt.Print(job.ManifestText)
}

// pollUntilDone polls the job until it reaches a terminal state or the
// --timeout threshold passes. The server never cancels a running job;
// giving up here only stops the client from waiting.
func pollUntilDone(id string) JobView {
	deadline := time.Now().Add(time.Duration(waitTimeoutSecs) * time.Second)
	interval := time.Duration(pollIntervalSecs) * time.Second

	for {
		job := fetchJob(id)
		if job.Status != "processing" {
			logger.Debug("job reached terminal state", "job_id", id, "status", job.Status)
			return job
		}
		if time.Now().After(deadline) {
			log.Fatalf("Gave up after %ds; the job keeps running server-side. Poll later with: depscout status %s",
				waitTimeoutSecs, id)
		}
		time.Sleep(interval)
	}
}

func fetchJob(id string) JobView {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(serverURL + "/v1/resolutions/" + id)
	if err != nil {
		log.Fatalf("Failed to reach the resolver service: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		log.Fatalf("No job with ID %s (records expire after the retention window)", id)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		log.Fatalf("The resolver returned an error (%s)", string(raw))
	}

	var job JobView
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		log.Fatalf("Failed to parse job response: %v", err)
	}
	if job.ID == "" {
		job.ID = id
	}
	return job
}

func printJob(job JobView) {
	switch job.Status {
	case "processing":
		fmt.Printf("Job %s is still processing.\n", job.ID)
	case "failed":
		fmt.Printf("Job %s failed: %s\n", job.ID, job.Error)
	case "completed":
		fmt.Println(job.NarrativeText)
		fmt.Println("--- Manifest ---")
		fmt.Print(job.ManifestText)
		fmt.Printf("(analyzed %d packages in %dms)\n",
			job.Metadata.TotalPackages, job.Metadata.ProcessingTimeMs)
	default:
		fmt.Printf("Job %s reported unknown status %q\n", job.ID, job.Status)
	}
}
