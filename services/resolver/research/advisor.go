// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/depscout/services/llm"
	"github.com/AleutianAI/depscout/services/resolver/datatypes"
)

const advisorTimeout = 20 * time.Second

// advisorPrompt asks for a strict, parseable reply. The model tends to
// editorialize otherwise.
const advisorPrompt = `The Python package %q (version %s) is deprecated: %s
List maintained replacement packages from PyPI, best first.
Reply with ONLY a comma-separated list of package names, nothing else.`

// advise runs one AI round trip to enrich the alternatives list of a
// deprecated package. The cached static result is never mutated; a
// copy carries the enrichment. Advisor failures are absorbed: the
// static analysis stands on its own.
func (u *Unit) advise(ctx context.Context, res *datatypes.PackageResearchResult) *datatypes.PackageResearchResult {
	reason := "flagged by the deprecation knowledge table"
	if len(res.Deprecation.Evidence) > 0 {
		reason = res.Deprecation.Evidence[0]
	}
	prompt := fmt.Sprintf(advisorPrompt, res.Name, res.Package.LatestVersion, reason)

	ctx, cancel := context.WithTimeout(ctx, advisorTimeout)
	defer cancel()

	maxTokens := 128
	answer, err := u.advisor.Generate(ctx, prompt, llm.GenerationParams{MaxTokens: &maxTokens})
	if err != nil {
		slog.Warn("AI advisor round trip failed, keeping static analysis", "package", res.Name, "error", err)
		return res
	}

	suggestions := parseAdvisorReply(answer)
	if len(suggestions) == 0 {
		slog.Debug("AI advisor reply contained no usable package names", "package", res.Name)
		return res
	}

	enriched := *res
	enriched.Deprecation.Alternatives = mergeAlternatives(res.Deprecation.Alternatives, suggestions)
	enriched.Deprecation.Evidence = append(
		append([]string(nil), res.Deprecation.Evidence...),
		fmt.Sprintf("AI advisor suggested: %s", strings.Join(suggestions, ", ")),
	)
	return &enriched
}

// parseAdvisorReply extracts package names from a comma-separated
// reply, dropping anything that does not look like a package name.
func parseAdvisorReply(answer string) []string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil
	}
	// Some models wrap the list in a sentence despite instructions;
	// keep only the first line.
	if idx := strings.IndexByte(answer, '\n'); idx >= 0 {
		answer = answer[:idx]
	}

	var names []string
	for _, part := range strings.Split(answer, ",") {
		name := strings.Trim(strings.TrimSpace(part), "`\"'.")
		if name == "" || strings.ContainsAny(name, " \t") {
			continue
		}
		names = append(names, name)
	}
	return names
}

// mergeAlternatives appends new suggestions to the static list,
// preserving order and skipping case-insensitive duplicates.
func mergeAlternatives(static, suggested []string) []string {
	seen := make(map[string]bool, len(static))
	merged := make([]string, 0, len(static)+len(suggested))
	for _, a := range static {
		seen[strings.ToLower(a)] = true
		merged = append(merged, a)
	}
	for _, s := range suggested {
		if !seen[strings.ToLower(s)] {
			seen[strings.ToLower(s)] = true
			merged = append(merged, s)
		}
	}
	return merged
}
