// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchgroup

import (
	"fmt"

	"github.com/Safe-Deal/Browser/benchrun"
)

// A CacheTemperaturesRunGroup groups the runs that share (browser,
// story, repetition): the consecutive cache-temperature passes of one
// repetition, in pass order. It is the leaf group kind and has no
// merge entrypoint of its own; the repetitions level is the first
// mergeable level.
type CacheTemperaturesRunGroup struct {
	runGroup

	browser    string
	story      string
	repetition int
	runs       []*benchrun.Run
}

// GroupCacheTemperatures partitions runs by (browser, story,
// repetition) in first-seen order of distinct identities.
func GroupCacheTemperatures(runs []*benchrun.Run, opts ...GroupOption) []*CacheTemperaturesRunGroup {
	type identity struct {
		browser    string
		story      string
		repetition int
	}
	return groupBy(runs,
		func(r *benchrun.Run) identity {
			return identity{r.Browser, r.Story, r.Repetition}
		},
		func() *CacheTemperaturesRunGroup {
			return &CacheTemperaturesRunGroup{runGroup: newRunGroup(opts)}
		},
		(*CacheTemperaturesRunGroup).Append)
}

// Append adds a run. The first run fixes the group's identity; every
// later run must match it exactly. A mismatch means the caller
// constructed the run list incorrectly and panics.
func (g *CacheTemperaturesRunGroup) Append(run *benchrun.Run) {
	if len(g.runs) == 0 {
		g.browser = run.Browser
		g.story = run.Story
		g.repetition = run.Repetition
	} else if run.Browser != g.browser || run.Story != g.story || run.Repetition != g.repetition {
		panic(fmt.Sprintf(
			"benchgroup: run %s does not match group identity %s/%s/rep=%d",
			run, g.browser, g.story, g.repetition))
	}
	g.runs = append(g.runs, run)
}

// Browser returns the browser shared by all runs in the group.
func (g *CacheTemperaturesRunGroup) Browser() string { return g.browser }

// Story returns the story shared by all runs in the group.
func (g *CacheTemperaturesRunGroup) Story() string { return g.story }

// Repetition returns the repetition index shared by all runs.
func (g *CacheTemperaturesRunGroup) Repetition() int { return g.repetition }

// Runs returns the runs in temperature-pass order. The caller must
// not modify the returned slice.
func (g *CacheTemperaturesRunGroup) Runs() []*benchrun.Run {
	return g.runs
}
