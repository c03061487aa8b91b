// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchgroup

import (
	"fmt"

	"github.com/Safe-Deal/Browser/benchrun"
)

// A StoriesRunGroup groups the RepetitionsRunGroups that share a
// browser, spanning every story that browser ran.
type StoriesRunGroup struct {
	runGroup

	browser string
	groups  []*RepetitionsRunGroup
}

// GroupStories partitions repetitions groups by browser in
// first-seen order of distinct browsers.
func GroupStories(groups []*RepetitionsRunGroup, opts ...GroupOption) []*StoriesRunGroup {
	return groupBy(groups,
		(*RepetitionsRunGroup).Browser,
		func() *StoriesRunGroup {
			return &StoriesRunGroup{runGroup: newRunGroup(opts)}
		},
		(*StoriesRunGroup).Append)
}

// Append adds a repetitions group. The first child fixes the browser
// identity; later children must match it or Append panics.
func (g *StoriesRunGroup) Append(group *RepetitionsRunGroup) {
	if len(g.groups) == 0 {
		g.browser = group.Browser()
	} else if group.Browser() != g.browser {
		panic(fmt.Sprintf(
			"benchgroup: group browser %q does not match stories identity %q",
			group.Browser(), g.browser))
	}
	g.groups = append(g.groups, group)
}

// Browser returns the browser shared by all runs in the group.
func (g *StoriesRunGroup) Browser() string { return g.browser }

// RepetitionsGroups returns the child groups in append order.
func (g *StoriesRunGroup) RepetitionsGroups() []*RepetitionsRunGroup {
	return g.groups
}

// Stories returns the story names in child order.
func (g *StoriesRunGroup) Stories() []string {
	stories := make([]string, 0, len(g.groups))
	for _, group := range g.groups {
		stories = append(stories, group.Story())
	}
	return stories
}

// Runs returns all runs of all stories in child order.
func (g *StoriesRunGroup) Runs() []*benchrun.Run {
	var runs []*benchrun.Run
	for _, group := range g.groups {
		runs = append(runs, group.Runs()...)
	}
	return runs
}

// Info returns the group's identity as label/value pairs.
func (g *StoriesRunGroup) Info() []InfoEntry {
	return []InfoEntry{{"browser", g.browser}}
}

// MergeProbe merges the probe's per-story artifacts for this
// browser, delegating to the probe's StoriesMerger capability. The
// merged artifact is computed once per probe and cached.
func (g *StoriesRunGroup) MergeProbe(probe benchrun.Probe) (benchrun.ProbeResult, error) {
	merger, ok := probe.(StoriesMerger)
	if !ok {
		return benchrun.ProbeResult{}, fmt.Errorf(
			"benchgroup: probe %q at stories level: %w", probe.Name(), ErrProbeUnsupported)
	}
	return g.merged(probe, func() (benchrun.ProbeResult, error) {
		return merger.MergeStories(g)
	})
}
