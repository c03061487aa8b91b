// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchgroup

import (
	"fmt"

	"github.com/Safe-Deal/Browser/benchrun"
)

// A RepetitionsRunGroup groups the CacheTemperaturesRunGroups that
// share (browser, story): all repetitions of one story under one
// browser, including every cache temperature.
//
// While children are appended it also maintains a secondary index of
// the same runs keyed by cache temperature, materializing one
// CacheTemperatureRepetitionsRunGroup per distinct temperature label.
type RepetitionsRunGroup struct {
	runGroup

	browser string
	story   string
	groups  []*CacheTemperaturesRunGroup

	byTemperature    map[string]*CacheTemperatureRepetitionsRunGroup
	temperatureOrder []string
}

// GroupRepetitions partitions cache-temperature groups by (browser,
// story) in first-seen order of distinct identities.
func GroupRepetitions(groups []*CacheTemperaturesRunGroup, opts ...GroupOption) []*RepetitionsRunGroup {
	type identity struct {
		browser string
		story   string
	}
	return groupBy(groups,
		func(g *CacheTemperaturesRunGroup) identity {
			return identity{g.Browser(), g.Story()}
		},
		func() *RepetitionsRunGroup {
			return &RepetitionsRunGroup{
				runGroup:      newRunGroup(opts),
				byTemperature: make(map[string]*CacheTemperatureRepetitionsRunGroup),
			}
		},
		(*RepetitionsRunGroup).Append)
}

// Append adds a cache-temperatures group. The first child fixes the
// (browser, story) identity; later children must match it or Append
// panics. Every run of the child is also inserted into the
// per-temperature secondary index.
func (g *RepetitionsRunGroup) Append(group *CacheTemperaturesRunGroup) {
	if len(g.groups) == 0 {
		g.browser = group.Browser()
		g.story = group.Story()
	} else if group.Browser() != g.browser || group.Story() != g.story {
		panic(fmt.Sprintf(
			"benchgroup: group %s/%s does not match repetitions identity %s/%s",
			group.Browser(), group.Story(), g.browser, g.story))
	}
	g.groups = append(g.groups, group)
	for _, run := range group.Runs() {
		g.appendRun(run)
	}
}

func (g *RepetitionsRunGroup) appendRun(run *benchrun.Run) {
	group, ok := g.byTemperature[run.Temperature]
	if !ok {
		group = newCacheTemperatureRepetitionsRunGroup(g)
		g.byTemperature[run.Temperature] = group
		g.temperatureOrder = append(g.temperatureOrder, run.Temperature)
	}
	group.append(run)
}

// Browser returns the browser shared by all runs in the group.
func (g *RepetitionsRunGroup) Browser() string { return g.browser }

// Story returns the story shared by all runs in the group.
func (g *RepetitionsRunGroup) Story() string { return g.story }

// CacheTemperaturesGroups returns the child groups in append order.
func (g *RepetitionsRunGroup) CacheTemperaturesGroups() []*CacheTemperaturesRunGroup {
	return g.groups
}

// CacheTemperatureRepetitionsGroups returns the derived
// per-temperature groups, one per distinct temperature label in
// first-seen order.
func (g *RepetitionsRunGroup) CacheTemperatureRepetitionsGroups() []*CacheTemperatureRepetitionsRunGroup {
	out := make([]*CacheTemperatureRepetitionsRunGroup, 0, len(g.temperatureOrder))
	for _, temperature := range g.temperatureOrder {
		out = append(out, g.byTemperature[temperature])
	}
	return out
}

// Runs returns all runs of all repetitions in child order.
func (g *RepetitionsRunGroup) Runs() []*benchrun.Run {
	var runs []*benchrun.Run
	for _, group := range g.groups {
		runs = append(runs, group.Runs()...)
	}
	return runs
}

// Info returns the group's identity as label/value pairs.
func (g *RepetitionsRunGroup) Info() []InfoEntry {
	return []InfoEntry{
		{"story", g.story},
		{"browser", g.browser},
	}
}

// MergeProbe merges the probe's per-run results across all
// repetitions of this story, delegating to the probe's
// RepetitionsMerger capability. The merged artifact is computed once
// per probe and cached.
func (g *RepetitionsRunGroup) MergeProbe(probe benchrun.Probe) (benchrun.ProbeResult, error) {
	merger, ok := probe.(RepetitionsMerger)
	if !ok {
		return benchrun.ProbeResult{}, fmt.Errorf(
			"benchgroup: probe %q at repetitions level: %w", probe.Name(), ErrProbeUnsupported)
	}
	return g.merged(probe, func() (benchrun.ProbeResult, error) {
		return merger.MergeRepetitions(g)
	})
}

// A CacheTemperatureRepetitionsRunGroup is the derived, read-only
// view of all runs sharing (browser, story, temperature) regardless
// of repetition index: the same cache state observed across every
// repetition. It exists purely for probes that need that view, such
// as concatenating cold-cache output across repetitions.
type CacheTemperatureRepetitionsRunGroup struct {
	runGroup

	parent      *RepetitionsRunGroup
	temperature string
	runs        []*benchrun.Run
}

func newCacheTemperatureRepetitionsRunGroup(parent *RepetitionsRunGroup) *CacheTemperatureRepetitionsRunGroup {
	return &CacheTemperatureRepetitionsRunGroup{
		runGroup: runGroup{log: parent.log, results: make(benchrun.ResultMap)},
		parent:   parent,
	}
}

func (g *CacheTemperatureRepetitionsRunGroup) append(run *benchrun.Run) {
	if g.temperature == "" {
		g.temperature = run.Temperature
	} else if run.Temperature != g.temperature {
		panic(fmt.Sprintf(
			"benchgroup: run %s does not match temperature %q", run, g.temperature))
	}
	g.runs = append(g.runs, run)
}

// RepetitionsGroup returns the owning repetitions group.
func (g *CacheTemperatureRepetitionsRunGroup) RepetitionsGroup() *RepetitionsRunGroup {
	return g.parent
}

// Browser returns the browser shared by all runs in the group.
func (g *CacheTemperatureRepetitionsRunGroup) Browser() string { return g.parent.Browser() }

// Story returns the story shared by all runs in the group.
func (g *CacheTemperatureRepetitionsRunGroup) Story() string { return g.parent.Story() }

// CacheTemperature returns the temperature label, preserved exactly
// as supplied on the grouped runs.
func (g *CacheTemperatureRepetitionsRunGroup) CacheTemperature() string {
	return g.temperature
}

// Runs returns the runs in repetition order. The caller must not
// modify the returned slice.
func (g *CacheTemperatureRepetitionsRunGroup) Runs() []*benchrun.Run {
	return g.runs
}

// MergeProbe always fails with ErrUnsupportedMerge: this group is a
// derived read-only view, and merging through it is a programming
// error.
func (g *CacheTemperatureRepetitionsRunGroup) MergeProbe(probe benchrun.Probe) (benchrun.ProbeResult, error) {
	return benchrun.ProbeResult{}, fmt.Errorf(
		"benchgroup: probe %q on cache-temperature repetitions view: %w",
		probe.Name(), ErrUnsupportedMerge)
}
