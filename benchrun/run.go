// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchrun defines the completed benchmark trial consumed by
// the aggregation stage: a Run's identity, the per-probe result
// handles it produced, and the probe naming contract.
//
// Runs are created by the runner while driving the browser and are
// immutable once execution finishes; aggregation only reads them.
package benchrun

import "fmt"

// A Run is one executed benchmark trial, identified by the browser
// that ran it, the story it exercised, its repetition index, and the
// cache-temperature pass it belongs to.
type Run struct {
	// Browser names the browser variant, e.g. "chrome-stable".
	Browser string

	// Story names the benchmarked page or scenario.
	Story string

	// Repetition is the zero-based repetition index.
	Repetition int

	// Temperature labels the cache state this pass exercises,
	// e.g. "cold" or "warm".
	Temperature string

	// Results maps probe name to the result handle the probe
	// produced for this run.
	Results ResultMap
}

// String returns the run identity in a stable, log-friendly form.
func (r *Run) String() string {
	return fmt.Sprintf("%s/%s/rep=%d/%s", r.Browser, r.Story, r.Repetition, r.Temperature)
}

// A ResultMap holds the result handles of a run or group, keyed by
// probe name.
type ResultMap map[string]ProbeResult

// Get returns the result handle for the named probe.
func (m ResultMap) Get(probe string) (ProbeResult, bool) {
	result, ok := m[probe]
	return result, ok
}

// A Probe is an external measurement collaborator. The aggregation
// stage only needs its identity; the capability to merge results at a
// given group level is expressed by the merger interfaces in package
// benchgroup.
type Probe interface {
	// Name returns the probe identifier used to key result
	// handles and artifact file names.
	Name() string
}
