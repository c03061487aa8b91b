// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchrun

// A ProbeResult is the handle to the artifact files a probe produced
// for one run or one merged group: optional JSON, CSV, and generic
// file paths. The zero value is the empty result.
type ProbeResult struct {
	JSONPaths []string
	CSVPaths  []string
	FilePaths []string
}

// JSONResult returns a handle to a single JSON artifact.
func JSONResult(path string) ProbeResult {
	return ProbeResult{JSONPaths: []string{path}}
}

// CSVResult returns a handle to a single CSV artifact.
func CSVResult(path string) ProbeResult {
	return ProbeResult{CSVPaths: []string{path}}
}

// LocalResult returns a handle to generic artifact files that are
// neither JSON nor CSV, such as trace dumps or screenshots.
func LocalResult(paths ...string) ProbeResult {
	return ProbeResult{FilePaths: paths}
}

// IsEmpty reports whether the result references no artifacts.
func (r ProbeResult) IsEmpty() bool {
	return len(r.JSONPaths) == 0 && len(r.CSVPaths) == 0 && len(r.FilePaths) == 0
}

// JSON returns the result's JSON artifact path.
func (r ProbeResult) JSON() (string, bool) {
	if len(r.JSONPaths) == 0 {
		return "", false
	}
	return r.JSONPaths[0], true
}

// CSV returns the result's CSV artifact path.
func (r ProbeResult) CSV() (string, bool) {
	if len(r.CSVPaths) == 0 {
		return "", false
	}
	return r.CSVPaths[0], true
}
