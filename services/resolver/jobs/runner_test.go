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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
	"github.com/AleutianAI/depscout/services/resolver/engine"
	"github.com/AleutianAI/depscout/services/resolver/knowledge"
	"github.com/AleutianAI/depscout/services/resolver/registry"
	"github.com/AleutianAI/depscout/services/resolver/research"
)

// stubSource is a research.MetadataSource with injectable behavior.
type stubSource struct {
	packages map[string]*datatypes.PackageInfo
	delay    time.Duration
	panicMsg string
}

func (s *stubSource) Lookup(_ context.Context, name string) (*datatypes.PackageInfo, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if info, ok := s.packages[name]; ok {
		return info, nil
	}
	return nil, registry.ErrNotFound
}

func newTestRunner(t *testing.T, source research.MetadataSource) (*Runner, Store) {
	t.Helper()
	store := openTestStore(t)
	table, err := knowledge.Load()
	require.NoError(t, err)
	unit := research.NewUnit(source, table, research.NewCache(0), nil)
	return NewRunner(store, unit, engine.NewEngine(table)), store
}

func requestFor(names ...string) datatypes.ResolveRequest {
	var reqs []datatypes.Requirement
	for _, n := range names {
		reqs = append(reqs, datatypes.Requirement{Name: n, OriginalSpec: n})
	}
	return datatypes.ResolveRequest{Requirements: reqs}
}

func awaitTerminal(t *testing.T, runner *Runner, id string) *datatypes.JobRecord {
	t.Helper()
	require.NoError(t, runner.Wait(5*time.Second))
	record, err := runner.Status(context.Background(), id)
	require.NoError(t, err)
	require.True(t, record.Terminal(), "job %s still %s", id, record.Status)
	return record
}

func TestRunner_Submit_RejectsEmptyRequirements(t *testing.T) {
	runner, store := newTestRunner(t, &stubSource{})

	_, err := runner.Submit(context.Background(), datatypes.ResolveRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRequirements))

	// No job record may exist for a rejected submission.
	_, err = store.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestRunner_Submit_ReturnsProcessingImmediately(t *testing.T) {
	source := &stubSource{
		delay: 150 * time.Millisecond,
		packages: map[string]*datatypes.PackageInfo{
			"numpy": {Name: "numpy", LatestVersion: "1.24.3"},
		},
	}
	runner, _ := newTestRunner(t, source)

	begin := time.Now()
	record, err := runner.Submit(context.Background(), requestFor("numpy"))
	elapsed := time.Since(begin)

	require.NoError(t, err)
	assert.Equal(t, datatypes.JobStatusProcessing, record.Status)
	assert.NotEmpty(t, record.ID)
	assert.Less(t, elapsed, 100*time.Millisecond,
		"submission latency must be decoupled from research latency")

	_ = awaitTerminal(t, runner, record.ID)
}

func TestRunner_Pipeline_CompletesWithReport(t *testing.T) {
	source := &stubSource{packages: map[string]*datatypes.PackageInfo{
		"numpy":  {Name: "numpy", LatestVersion: "1.24.3"},
		"pandas": {Name: "pandas", LatestVersion: "2.0.1"},
	}}
	runner, _ := newTestRunner(t, source)

	req := datatypes.ResolveRequest{Requirements: []datatypes.Requirement{
		{Name: "numpy", OriginalSpec: "numpy"},
		{Name: "pandas", Operator: ">=", Version: "1.3.0", OriginalSpec: "pandas>=1.3.0"},
	}}
	record, err := runner.Submit(context.Background(), req)
	require.NoError(t, err)

	final := awaitTerminal(t, runner, record.ID)
	require.Equal(t, datatypes.JobStatusCompleted, final.Status)
	require.NotNil(t, final.Report)

	res := final.Report.ResolutionResult
	assert.True(t, res.Success)
	assert.Equal(t, []datatypes.ResolvedPackage{
		{Name: "numpy", Version: "1.24.3"},
		{Name: "pandas", Version: "2.0.1"},
	}, res.ResolvedPackages)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, "3.9", final.Report.Metadata.PythonVersion, "python version defaults on admission")
	assert.Contains(t, final.Report.ManifestText, "numpy==1.24.3")
}

func TestRunner_Pipeline_PanicBecomesFailedRecord(t *testing.T) {
	runner, _ := newTestRunner(t, &stubSource{panicMsg: "registry client exploded"})

	record, err := runner.Submit(context.Background(), requestFor("numpy"))
	require.NoError(t, err)

	final := awaitTerminal(t, runner, record.ID)
	require.Equal(t, datatypes.JobStatusFailed, final.Status)
	assert.Contains(t, final.Error, "registry client exploded")
	assert.Nil(t, final.Report)

	// Terminal states never revert to processing.
	again, err := runner.Status(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, datatypes.JobStatusFailed, again.Status)
}

func TestRunner_Pipeline_BuiltinOnlyRequest(t *testing.T) {
	runner, _ := newTestRunner(t, &stubSource{})

	record, err := runner.Submit(context.Background(), requestFor("imp"))
	require.NoError(t, err)

	final := awaitTerminal(t, runner, record.ID)
	require.Equal(t, datatypes.JobStatusCompleted, final.Status)

	res := final.Report.ResolutionResult
	require.True(t, res.Success)
	assert.Equal(t, []datatypes.ResolvedPackage{{Name: "imp", Version: "built-in"}}, res.ResolvedPackages)
	require.Len(t, res.DeprecatedPackages, 1)
	assert.Equal(t, "importlib", res.DeprecatedPackages[0].SuggestedAlternative)
}

func TestRunner_Pipeline_UnknownPackageFailsSoftly(t *testing.T) {
	runner, _ := newTestRunner(t, &stubSource{})

	record, err := runner.Submit(context.Background(), requestFor("nonexistent-package-xyz"))
	require.NoError(t, err)

	final := awaitTerminal(t, runner, record.ID)
	// The job completes; the resolution inside it reports failure.
	require.Equal(t, datatypes.JobStatusCompleted, final.Status)
	res := final.Report.ResolutionResult
	assert.False(t, res.Success)
	assert.Empty(t, res.ResolvedPackages)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Could not find")
}

func TestRunner_ConcurrentJobsAreIndependent(t *testing.T) {
	source := &stubSource{packages: map[string]*datatypes.PackageInfo{
		"numpy": {Name: "numpy", LatestVersion: "1.24.3"},
	}}
	runner, _ := newTestRunner(t, source)

	var ids []string
	for i := 0; i < 8; i++ {
		record, err := runner.Submit(context.Background(), requestFor("numpy"))
		require.NoError(t, err)
		ids = append(ids, record.ID)
	}
	require.NoError(t, runner.Wait(5*time.Second))

	for _, id := range ids {
		record, err := runner.Status(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, datatypes.JobStatusCompleted, record.Status)
	}
	assert.Equal(t, int64(0), runner.Active())
}
