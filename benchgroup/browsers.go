// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchgroup

import (
	"fmt"

	"github.com/Safe-Deal/Browser/benchrun"
)

// A BrowsersRunGroup is the single root group spanning every
// StoriesRunGroup of the invocation.
type BrowsersRunGroup struct {
	runGroup

	groups []*StoriesRunGroup
}

// NewBrowsersRunGroup builds the root group. Zero story groups is a
// configuration error: an invocation that produced no runs is a bug,
// not a valid empty result.
func NewBrowsersRunGroup(storyGroups []*StoriesRunGroup, opts ...GroupOption) (*BrowsersRunGroup, error) {
	if len(storyGroups) == 0 {
		return nil, fmt.Errorf("benchgroup: browsers group: %w", ErrEmptyGroupInput)
	}
	return &BrowsersRunGroup{
		runGroup: newRunGroup(opts),
		groups:   storyGroups,
	}, nil
}

// StoryGroups returns the per-browser child groups in input order.
func (g *BrowsersRunGroup) StoryGroups() []*StoriesRunGroup {
	return g.groups
}

// Browsers returns the browser names in child order.
func (g *BrowsersRunGroup) Browsers() []string {
	browsers := make([]string, 0, len(g.groups))
	for _, group := range g.groups {
		browsers = append(browsers, group.Browser())
	}
	return browsers
}

// Runs returns every run of the invocation in child order.
func (g *BrowsersRunGroup) Runs() []*benchrun.Run {
	var runs []*benchrun.Run
	for _, group := range g.groups {
		runs = append(runs, group.Runs()...)
	}
	return runs
}

// MergeProbe merges the probe's per-browser artifacts across the
// whole invocation, delegating to the probe's BrowsersMerger
// capability. The merged artifact is computed once per probe and
// cached.
func (g *BrowsersRunGroup) MergeProbe(probe benchrun.Probe) (benchrun.ProbeResult, error) {
	merger, ok := probe.(BrowsersMerger)
	if !ok {
		return benchrun.ProbeResult{}, fmt.Errorf(
			"benchgroup: probe %q at browsers level: %w", probe.Name(), ErrProbeUnsupported)
	}
	return g.merged(probe, func() (benchrun.ProbeResult, error) {
		return merger.MergeBrowsers(g)
	})
}
