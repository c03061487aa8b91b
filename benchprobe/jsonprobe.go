// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchprobe implements the merge side of probes whose
// per-run artifact is a JSON measurement record. A JSONMergeProbe
// combines run artifacts level by level through the benchgroup
// hierarchy, producing one merged JSON file with a companion
// tab-delimited CSV per group.
package benchprobe

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Safe-Deal/Browser/benchgroup"
	"github.com/Safe-Deal/Browser/benchrun"
	"github.com/Safe-Deal/Browser/benchval"
)

// ErrNoProbeData reports that an expected constituent run carries no
// result for the merging probe. It aborts only that probe's merge for
// that group; other probes and groups are unaffected.
var ErrNoProbeData = errors.New("benchprobe: run has no data for probe")

// A JSONMergeProbe merges the JSON artifacts of a probe across the
// repetitions, stories, and browsers group levels. The zero value is
// not usable; construct with NewJSONMergeProbe.
type JSONMergeProbe struct {
	name   string
	outDir string
	log    logrus.FieldLogger

	keyFn               benchval.KeyFn
	valueFn             benchval.ValueFn
	mergeDuplicatePaths bool
	sortKeys            bool
}

// A ProbeOption configures a JSONMergeProbe.
type ProbeOption func(*JSONMergeProbe)

// WithLogger sets the probe's logger.
func WithLogger(log logrus.FieldLogger) ProbeOption {
	return func(p *JSONMergeProbe) {
		p.log = log
	}
}

// WithKeyFn sets the path key function used when merging, changing
// aggregation granularity or excluding subtrees.
func WithKeyFn(fn benchval.KeyFn) ProbeOption {
	return func(p *JSONMergeProbe) {
		p.keyFn = fn
	}
}

// WithValueFn sets the per-metric value transform for CSV exports.
// The default exports each metric's geometric mean.
func WithValueFn(fn benchval.ValueFn) ProbeOption {
	return func(p *JSONMergeProbe) {
		p.valueFn = fn
	}
}

// WithMergeDuplicatePaths controls how re-merged serialized artifacts
// treat a path present in more than one source: concatenate the
// values (true, the default) or drop the path entirely (false).
func WithMergeDuplicatePaths(merge bool) ProbeOption {
	return func(p *JSONMergeProbe) {
		p.mergeDuplicatePaths = merge
	}
}

// WithUnsortedKeys keeps merged output in encounter order instead of
// sorting keys alphabetically.
func WithUnsortedKeys() ProbeOption {
	return func(p *JSONMergeProbe) {
		p.sortKeys = false
	}
}

// NewJSONMergeProbe returns a merge probe named name that writes its
// merged artifacts under outDir, laid out as
// outDir/<browser>/<story>/<name>.json for repetitions merges,
// outDir/<browser>/<name>.json for stories merges, and
// outDir/<name>.json at the browsers root. Every JSON artifact gets a
// companion .csv file.
func NewJSONMergeProbe(name, outDir string, opts ...ProbeOption) *JSONMergeProbe {
	p := &JSONMergeProbe{
		name:                name,
		outDir:              outDir,
		log:                 logrus.StandardLogger(),
		keyFn:               benchval.DefaultKeyFn,
		valueFn:             benchval.GeomeanValue,
		mergeDuplicatePaths: true,
		sortKeys:            true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the probe identifier.
func (p *JSONMergeProbe) Name() string {
	return p.name
}

var _ benchgroup.RepetitionsMerger = (*JSONMergeProbe)(nil)
var _ benchgroup.StoriesMerger = (*JSONMergeProbe)(nil)
var _ benchgroup.BrowsersMerger = (*JSONMergeProbe)(nil)

// MergeRepetitions merges the raw per-run JSON artifacts of every
// repetition of one story into a single flattened artifact. A run
// without this probe's result aborts the merge; all such runs are
// reported together.
func (p *JSONMergeProbe) MergeRepetitions(g *benchgroup.RepetitionsRunGroup) (benchrun.ProbeResult, error) {
	merger := benchval.NewMerger(benchval.WithKeyFn(p.keyFn), benchval.WithLogger(p.log))
	var merr *multierror.Error
	for _, run := range g.Runs() {
		result, ok := run.Results.Get(p.name)
		if !ok {
			merr = multierror.Append(merr, fmt.Errorf("%w %q: run %s", ErrNoProbeData, p.name, run))
			continue
		}
		jsonPath, ok := result.JSON()
		if !ok {
			merr = multierror.Append(merr, fmt.Errorf("%w %q: run %s has no JSON artifact", ErrNoProbeData, p.name, run))
			continue
		}
		raw, err := os.ReadFile(jsonPath)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("benchprobe: run %s: %w", run, err))
			continue
		}
		var data any
		if err := json.Unmarshal(raw, &data); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("benchprobe: %s: %w", jsonPath, err))
			continue
		}
		if err := merger.Add(data); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("benchprobe: %s: %w", jsonPath, err))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return benchrun.ProbeResult{}, err
	}
	path := filepath.Join(p.outDir, g.Browser(), g.Story(), p.name+".json")
	return p.writeGroupResult(path, g.Info(), merger)
}

// MergeStories re-merges the serialized repetitions artifacts of
// every story one browser ran. Child artifacts are computed through
// the repetitions groups' own merge entrypoint, so already-merged
// artifacts are reused.
func (p *JSONMergeProbe) MergeStories(g *benchgroup.StoriesRunGroup) (benchrun.ProbeResult, error) {
	var files []string
	for _, group := range g.RepetitionsGroups() {
		result, err := group.MergeProbe(p)
		if err != nil {
			return benchrun.ProbeResult{}, fmt.Errorf("benchprobe: story %q: %w", group.Story(), err)
		}
		jsonPath, ok := result.JSON()
		if !ok {
			return benchrun.ProbeResult{}, fmt.Errorf("%w %q: story group %q has no JSON artifact",
				ErrNoProbeData, p.name, group.Story())
		}
		files = append(files, jsonPath)
	}
	merger, err := benchval.MergeJSONFiles(files, p.mergeDuplicatePaths,
		benchval.WithKeyFn(p.keyFn), benchval.WithLogger(p.log))
	if err != nil {
		return benchrun.ProbeResult{}, err
	}
	path := filepath.Join(p.outDir, g.Browser(), p.name+".json")
	return p.writeGroupResult(path, g.Info(), merger)
}

// MergeBrowsers combines the per-browser artifacts of the whole
// invocation: a JSON object from browser name to that browser's group
// info and merged data, plus a CSV holding all browsers' tables side
// by side aligned on the metric path column.
func (p *JSONMergeProbe) MergeBrowsers(g *benchgroup.BrowsersRunGroup) (benchrun.ProbeResult, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var tables [][][]string
	for i, group := range g.StoryGroups() {
		result, err := group.MergeProbe(p)
		if err != nil {
			return benchrun.ProbeResult{}, fmt.Errorf("benchprobe: browser %q: %w", group.Browser(), err)
		}
		jsonPath, ok := result.JSON()
		if !ok {
			return benchrun.ProbeResult{}, fmt.Errorf("%w %q: browser group %q has no JSON artifact",
				ErrNoProbeData, p.name, group.Browser())
		}
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return benchrun.ProbeResult{}, fmt.Errorf("benchprobe: %w", err)
		}
		entry, err := json.Marshal(struct {
			Info map[string]string `json:"info"`
			Data json.RawMessage   `json:"data"`
		}{infoMap(group.Info()), data})
		if err != nil {
			return benchrun.ProbeResult{}, fmt.Errorf("benchprobe: browser %q: %w", group.Browser(), err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(group.Browser())
		if err != nil {
			return benchrun.ProbeResult{}, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(entry)

		if csvPath, ok := result.CSV(); ok {
			table, err := readTabFile(csvPath)
			if err != nil {
				return benchrun.ProbeResult{}, err
			}
			tables = append(tables, table)
		}
	}
	buf.WriteByte('}')

	jsonPath := filepath.Join(p.outDir, p.name+".json")
	if err := writeNewFile(jsonPath, buf.Bytes()); err != nil {
		return benchrun.ProbeResult{}, err
	}
	if len(tables) == 0 {
		return benchrun.ProbeResult{JSONPaths: []string{jsonPath}}, nil
	}
	csvPath := strings.TrimSuffix(jsonPath, ".json") + ".csv"
	merged := MergeCSVRows(tables)
	var csvBuf bytes.Buffer
	if err := writeTabStrings(&csvBuf, merged); err != nil {
		return benchrun.ProbeResult{}, err
	}
	if err := writeNewFile(csvPath, csvBuf.Bytes()); err != nil {
		return benchrun.ProbeResult{}, err
	}
	return benchrun.ProbeResult{JSONPaths: []string{jsonPath}, CSVPaths: []string{csvPath}}, nil
}

// writeGroupResult persists a merged group artifact as a JSON file
// with a companion tab-delimited CSV whose header rows carry the
// group's identity labels.
func (p *JSONMergeProbe) writeGroupResult(jsonPath string, info []benchgroup.InfoEntry, merger *benchval.MetricsMerger) (benchrun.ProbeResult, error) {
	data, err := merger.ToJSON(nil, p.sortKeys)
	if err != nil {
		return benchrun.ProbeResult{}, fmt.Errorf("benchprobe: %w", err)
	}
	if err := writeNewFile(jsonPath, data); err != nil {
		return benchrun.ProbeResult{}, err
	}

	headers := make([][]any, 0, len(info))
	for _, entry := range info {
		headers = append(headers, []any{entry.Label, entry.Value})
	}
	formatter := benchval.NewCSVFormatter(merger, p.valueFn, headers, true, p.sortKeys)
	var buf bytes.Buffer
	if err := formatter.WriteTab(&buf); err != nil {
		return benchrun.ProbeResult{}, fmt.Errorf("benchprobe: %w", err)
	}
	csvPath := strings.TrimSuffix(jsonPath, ".json") + ".csv"
	if err := writeNewFile(csvPath, buf.Bytes()); err != nil {
		return benchrun.ProbeResult{}, err
	}
	return benchrun.ProbeResult{JSONPaths: []string{jsonPath}, CSVPaths: []string{csvPath}}, nil
}

// writeNewFile writes data to path, creating parent directories.
// Overwriting an existing merge artifact is refused: each group's
// artifact is computed once and two writers for one path mean the
// caller merged the same group twice.
func writeNewFile(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("benchprobe: result exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("benchprobe: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("benchprobe: %w", err)
	}
	return nil
}

func infoMap(info []benchgroup.InfoEntry) map[string]string {
	out := make(map[string]string, len(info))
	for _, entry := range info {
		out[entry.Label] = entry.Value
	}
	return out
}
