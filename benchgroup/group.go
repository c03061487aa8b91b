// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchgroup rolls completed benchmark runs up through a
// four-level grouping hierarchy. Runs sharing (browser, story,
// repetition) form a CacheTemperaturesRunGroup; those groups roll up
// into RepetitionsRunGroups per (browser, story), then
// StoriesRunGroups per browser, under a single BrowsersRunGroup root.
// RepetitionsRunGroups additionally maintain a derived, read-only
// per-temperature view across repetitions.
//
// Each mergeable level exposes MergeProbe, which dispatches to the
// probe's merge capability for that level and caches the produced
// artifact handle per probe.
//
// Groups are built bottom-up from a fully materialized sequence of
// finished runs and hold no synchronization: aggregation is a
// synchronous post-hoc reduction.
package benchgroup

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Safe-Deal/Browser/benchrun"
)

var (
	// ErrEmptyGroupInput reports that a group was constructed
	// from zero children. A benchmark invocation that produced no
	// runs is a configuration bug, not a valid empty result.
	ErrEmptyGroupInput = errors.New("benchgroup: no runs to group")

	// ErrUnsupportedMerge reports a merge attempted on a group
	// kind that does not support merging.
	ErrUnsupportedMerge = errors.New("benchgroup: group kind does not support merging")

	// ErrProbeUnsupported reports that a probe does not implement
	// the merge operation for the requested group level.
	ErrProbeUnsupported = errors.New("benchgroup: probe does not support merging at this level")
)

// A GroupOption configures the groups built by a factory.
type GroupOption func(*runGroup)

// WithLogger sets the logger groups use to report merge activity.
func WithLogger(log logrus.FieldLogger) GroupOption {
	return func(g *runGroup) {
		g.log = log
	}
}

// An InfoEntry is one label/value pair of a group's identity
// description, used as header rows in CSV exports.
type InfoEntry struct {
	Label string
	Value string
}

// runGroup carries the plumbing shared by all group kinds: the
// logger and the per-probe cache of merged results.
type runGroup struct {
	log     logrus.FieldLogger
	results benchrun.ResultMap
}

func newRunGroup(opts []GroupOption) runGroup {
	g := runGroup{
		log:     logrus.StandardLogger(),
		results: make(benchrun.ResultMap),
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// Results returns the merged result handles cached so far, keyed by
// probe name. The caller must not modify the returned map.
func (g *runGroup) Results() benchrun.ResultMap {
	return g.results
}

// merged returns the cached result for probe, computing and caching
// it on first use. Failed merges are not cached.
func (g *runGroup) merged(probe benchrun.Probe, merge func() (benchrun.ProbeResult, error)) (benchrun.ProbeResult, error) {
	if result, ok := g.results[probe.Name()]; ok {
		return result, nil
	}
	result, err := merge()
	if err != nil {
		return benchrun.ProbeResult{}, err
	}
	g.results[probe.Name()] = result
	return result, nil
}

// A RepetitionsMerger is a probe that can merge the results of all
// repetitions of one story under one browser.
type RepetitionsMerger interface {
	benchrun.Probe
	MergeRepetitions(*RepetitionsRunGroup) (benchrun.ProbeResult, error)
}

// A StoriesMerger is a probe that can merge the per-story artifacts
// of one browser.
type StoriesMerger interface {
	benchrun.Probe
	MergeStories(*StoriesRunGroup) (benchrun.ProbeResult, error)
}

// A BrowsersMerger is a probe that can merge the per-browser
// artifacts of the whole invocation.
type BrowsersMerger interface {
	benchrun.Probe
	MergeBrowsers(*BrowsersRunGroup) (benchrun.ProbeResult, error)
}
