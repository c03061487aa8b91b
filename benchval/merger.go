// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchval

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// A KeyFn maps the path of a value in a hierarchical record to the
// merge key that identifies it in the flattened result. Returning
// ok=false drops the value and, for interior paths, the whole
// subtree below it.
type KeyFn func(path []string) (key string, ok bool)

// PathSeparator joins the segments of a flattened metric path.
const PathSeparator = "/"

// DefaultKeyFn joins path segments with PathSeparator.
func DefaultKeyFn(path []string) (string, bool) {
	return strings.Join(path, PathSeparator), true
}

// A MetricsMerger merges hierarchical measurement records into a flat
// mapping from path key to Metric.
//
// Input:
//
//	data1 = {"a": {"aa": 1.1, "ab": 2}, "b": 2.1}
//	data2 = {"a": {"aa": 1.2}, "b": 2.2, "c": 2}
//
// Merged:
//
//	"a/aa" -> Metric(1.1, 1.2)
//	"a/ab" -> Metric(2)
//	"b"    -> Metric(2.1, 2.2)
//	"c"    -> Metric(2)
//
// Keys are ordered by first encounter across all merged sources; the
// keys of a single record are visited in sorted order since Go maps
// carry no insertion order of their own.
type MetricsMerger struct {
	keys    []string
	data    map[string]*Metric
	keyFn   KeyFn
	ignored map[string]struct{}
	log     logrus.FieldLogger
}

// A MergerOption configures a MetricsMerger.
type MergerOption func(*MetricsMerger)

// WithKeyFn replaces the default path key function.
func WithKeyFn(fn KeyFn) MergerOption {
	return func(m *MetricsMerger) {
		m.keyFn = fn
	}
}

// WithLogger sets the logger used to report dropped duplicate paths.
func WithLogger(log logrus.FieldLogger) MergerOption {
	return func(m *MetricsMerger) {
		m.log = log
	}
}

// NewMerger returns an empty MetricsMerger.
func NewMerger(opts ...MergerOption) *MetricsMerger {
	m := &MetricsMerger{
		data:    make(map[string]*Metric),
		keyFn:   DefaultKeyFn,
		ignored: make(map[string]struct{}),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMergerFrom returns a MetricsMerger over the given hierarchical
// records, merged in argument order.
func NewMergerFrom(datas ...map[string]any) *MetricsMerger {
	m := NewMerger()
	for _, data := range datas {
		m.merge(data, nil)
	}
	return m
}

// Len returns the number of merged keys.
func (m *MetricsMerger) Len() int {
	return len(m.keys)
}

// Keys returns the merged keys in first-encounter order.
func (m *MetricsMerger) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Metric returns the Metric merged under key.
func (m *MetricsMerger) Metric(key string) (*Metric, bool) {
	metric, ok := m.data[key]
	return metric, ok
}

// Data returns the key to Metric mapping. The caller must not modify
// the returned map; key order is available from Keys.
func (m *MetricsMerger) Data() map[string]*Metric {
	return m.data
}

// Add merges a raw hierarchical record whose leaves are primitive
// values. A top-level array is treated as independent repetitions of
// the same record and merged one entry at a time. Nested objects
// extend the path, array leaves are spread element-wise into the
// target Metric, and any other value is appended singly.
func (m *MetricsMerger) Add(data any) error {
	switch d := data.(type) {
	case []any:
		for _, item := range d {
			obj, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("benchval: repetition entry is %T, want object", item)
			}
			m.merge(obj, nil)
		}
	case []map[string]any:
		for _, item := range d {
			m.merge(item, nil)
		}
	case map[string]any:
		m.merge(d, nil)
	default:
		return fmt.Errorf("benchval: cannot merge %T, want object or array of objects", data)
	}
	return nil
}

func (m *MetricsMerger) merge(data map[string]any, parent []string) {
	for _, name := range sortedKeys(data) {
		value := data[name]
		path := childPath(parent, name)
		key, ok := m.keyFn(path)
		if !ok {
			continue
		}
		if sub, isObject := value.(map[string]any); isObject {
			m.merge(sub, path)
			continue
		}
		metric := m.metricFor(key)
		if list, isList := value.([]any); isList {
			for _, v := range list {
				metric.Append(v)
			}
		} else {
			metric.Append(value)
		}
	}
}

// MergeValues re-ingests an already-aggregated record, the output of
// a prior ToJSON, whose top-level values are {"values": [...]} leaf
// records. prefixPath is prepended to every key's path.
//
// When a key has already been merged and mergeDuplicatePaths is set,
// the incoming values extend the existing Metric. Without it the key
// is deleted and permanently blacklisted in this merger: a duplicate
// source would produce a silently wrong aggregate, so the conflict is
// logged and the key dropped instead. Blacklisted keys are never
// revived by later merges.
func (m *MetricsMerger) MergeValues(data map[string]any, prefixPath []string, mergeDuplicatePaths bool) error {
	for _, name := range sortedKeys(data) {
		item := data[name]
		path := childPath(prefixPath, name)
		key, ok := m.keyFn(path)
		if !ok {
			continue
		}
		if _, dropped := m.ignored[key]; dropped {
			continue
		}
		existing, seen := m.data[key]
		if !seen {
			metric, err := FromJSONRecord(item)
			if err != nil {
				return fmt.Errorf("benchval: path %q: %w", strings.Join(path, PathSeparator), err)
			}
			m.data[key] = metric
			m.keys = append(m.keys, key)
			continue
		}
		if !mergeDuplicatePaths {
			m.log.WithFields(logrus.Fields{
				"path": strings.Join(path, PathSeparator),
				"key":  key,
			}).Debug("dropping metric merged from multiple sources under the same key")
			m.remove(key)
			m.ignored[key] = struct{}{}
			continue
		}
		incoming, err := FromJSONRecord(item)
		if err != nil {
			return fmt.Errorf("benchval: path %q: %w", strings.Join(path, PathSeparator), err)
		}
		for _, v := range incoming.Values() {
			existing.Append(v)
		}
	}
	return nil
}

// MergeJSONFiles builds a MetricsMerger from serialized merger
// outputs, feeding each file through MergeValues in file order.
func MergeJSONFiles(files []string, mergeDuplicatePaths bool, opts ...MergerOption) (*MetricsMerger, error) {
	m := NewMerger(opts...)
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("benchval: %w", err)
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("benchval: %s: %w", file, err)
		}
		if err := m.MergeValues(data, nil, mergeDuplicatePaths); err != nil {
			return nil, fmt.Errorf("benchval: %s: %w", file, err)
		}
	}
	return m, nil
}

func (m *MetricsMerger) metricFor(key string) *Metric {
	if metric, ok := m.data[key]; ok {
		return metric
	}
	metric := New()
	m.data[key] = metric
	m.keys = append(m.keys, key)
	return metric
}

func (m *MetricsMerger) remove(key string) {
	delete(m.data, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			return
		}
	}
}

// A ValueFn transforms a Metric into its exported value. A nil
// ValueFn exports the Metric's serialized form.
type ValueFn func(*Metric) any

// A MergedItem is one key/value pair of an exported merger snapshot.
type MergedItem struct {
	Key   string
	Value any
}

// Items returns the merged entries with valueFn applied, sorted
// alphabetically by key when sorted is set so the output is
// reproducible independent of insertion order, and in
// first-encounter order otherwise.
func (m *MetricsMerger) Items(valueFn ValueFn, sorted bool) []MergedItem {
	keys := m.Keys()
	if sorted {
		sort.Strings(keys)
	}
	items := make([]MergedItem, 0, len(keys))
	for _, key := range keys {
		metric := m.data[key]
		var value any
		if valueFn == nil {
			value = metric.JSON()
		} else {
			value = valueFn(metric)
		}
		items = append(items, MergedItem{key, value})
	}
	return items
}

// ToJSON serializes the merged data as a JSON object from key to
// exported value, preserving the item order chosen by sorted.
func (m *MetricsMerger) ToJSON(valueFn ValueFn, sorted bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range m.Items(valueFn, sorted) {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(item.Value)
		if err != nil {
			return nil, fmt.Errorf("benchval: key %q: %w", item.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func sortedKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func childPath(parent []string, name string) []string {
	path := make([]string, len(parent)+1)
	copy(path, parent)
	path[len(parent)] = name
	return path
}
