// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchprobe

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/Safe-Deal/Browser/benchgroup"
	"github.com/Safe-Deal/Browser/benchrun"
)

const probeName = "metrics"

// writeRunArtifact persists a raw per-run measurement record and
// attaches its handle to the run.
func writeRunArtifact(t *testing.T, dir string, run *benchrun.Run, data map[string]any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, run.Browser, run.Story,
		strings.ReplaceAll(run.String(), "/", "_")+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	run.Results[probeName] = benchrun.JSONResult(path)
}

func newMeasuredRun(t *testing.T, dir, browser, story string, repetition int, temperature string, score float64) *benchrun.Run {
	t.Helper()
	run := &benchrun.Run{
		Browser:     browser,
		Story:       story,
		Repetition:  repetition,
		Temperature: temperature,
		Results:     make(benchrun.ResultMap),
	}
	writeRunArtifact(t, dir, run, map[string]any{
		"benchmark": map[string]any{"score": score},
		"total":     score * 2,
	})
	return run
}

func buildBrowserGroup(t *testing.T, runs []*benchrun.Run) *benchgroup.BrowsersRunGroup {
	t.Helper()
	storyGroups := benchgroup.GroupStories(
		benchgroup.GroupRepetitions(
			benchgroup.GroupCacheTemperatures(runs)))
	browserGroup, err := benchgroup.NewBrowsersRunGroup(storyGroups)
	if err != nil {
		t.Fatal(err)
	}
	return browserGroup
}

func TestMergeRepetitions(t *testing.T) {
	dir := t.TempDir()
	runs := []*benchrun.Run{
		newMeasuredRun(t, dir, "chrome", "story 0", 0, "default", 10),
		newMeasuredRun(t, dir, "chrome", "story 0", 1, "default", 20),
	}
	browserGroup := buildBrowserGroup(t, runs)
	group := browserGroup.StoryGroups()[0].RepetitionsGroups()[0]

	probe := NewJSONMergeProbe(probeName, filepath.Join(dir, "out"))
	result, err := group.MergeProbe(probe)
	if err != nil {
		t.Fatal(err)
	}

	jsonPath, ok := result.JSON()
	if !ok {
		t.Fatal("merged result has no JSON artifact")
	}
	merged := readJSONObject(t, jsonPath)
	record, ok := merged["benchmark/score"].(map[string]any)
	if !ok {
		t.Fatalf("no benchmark/score record in %v", merged)
	}
	if got, want := record["values"], []any{10.0, 20.0}; !reflect.DeepEqual(got, want) {
		t.Errorf("values = %v, want %v", got, want)
	}
	if got, want := record["average"].(float64), 15.0; got != want {
		t.Errorf("average = %v, want %v", got, want)
	}

	csvPath, ok := result.CSV()
	if !ok {
		t.Fatal("merged result has no CSV artifact")
	}
	rows := readTab(t, csvPath)
	// Two info headers plus one row per merged path.
	if got, want := len(rows), 2+len(merged); got != want {
		t.Errorf("got %d CSV rows, want %d", got, want)
	}
	if got, want := rows[0], []string{"story", "", "", "story 0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("header row = %v, want %v", got, want)
	}
}

func TestMergeRepetitionsMissingData(t *testing.T) {
	dir := t.TempDir()
	runs := []*benchrun.Run{
		newMeasuredRun(t, dir, "chrome", "story 0", 0, "default", 10),
		newMeasuredRun(t, dir, "chrome", "story 0", 1, "default", 20),
	}
	// The second run lost this probe's artifact.
	delete(runs[1].Results, probeName)

	browserGroup := buildBrowserGroup(t, runs)
	group := browserGroup.StoryGroups()[0].RepetitionsGroups()[0]
	probe := NewJSONMergeProbe(probeName, filepath.Join(dir, "out"))
	_, err := group.MergeProbe(probe)
	if !errors.Is(err, ErrNoProbeData) {
		t.Errorf("got %v, want ErrNoProbeData", err)
	}
	// The failure must not leave a partial artifact behind.
	if _, err := os.Stat(filepath.Join(dir, "out", "chrome", "story 0", probeName+".json")); err == nil {
		t.Errorf("partial artifact written despite merge failure")
	}
}

func TestMergeStories(t *testing.T) {
	dir := t.TempDir()
	runs := []*benchrun.Run{
		newMeasuredRun(t, dir, "chrome", "story 0", 0, "default", 10),
		newMeasuredRun(t, dir, "chrome", "story 0", 1, "default", 20),
		newMeasuredRun(t, dir, "chrome", "story 1", 0, "default", 30),
		newMeasuredRun(t, dir, "chrome", "story 1", 1, "default", 40),
	}
	browserGroup := buildBrowserGroup(t, runs)
	storyGroup := browserGroup.StoryGroups()[0]

	probe := NewJSONMergeProbe(probeName, filepath.Join(dir, "out"))
	result, err := storyGroup.MergeProbe(probe)
	if err != nil {
		t.Fatal(err)
	}
	jsonPath, ok := result.JSON()
	if !ok {
		t.Fatal("merged result has no JSON artifact")
	}
	merged := readJSONObject(t, jsonPath)
	record, ok := merged["benchmark/score"].(map[string]any)
	if !ok {
		t.Fatalf("no benchmark/score record in %v", merged)
	}
	// Duplicate paths across stories concatenate in file order.
	if got, want := record["values"], []any{10.0, 20.0, 30.0, 40.0}; !reflect.DeepEqual(got, want) {
		t.Errorf("values = %v, want %v", got, want)
	}
}

func TestMergeBrowsers(t *testing.T) {
	dir := t.TempDir()
	runs := []*benchrun.Run{
		newMeasuredRun(t, dir, "chrome", "story 0", 0, "default", 10),
		newMeasuredRun(t, dir, "firefox", "story 0", 0, "default", 30),
	}
	browserGroup := buildBrowserGroup(t, runs)
	probe := NewJSONMergeProbe(probeName, filepath.Join(dir, "out"))

	result, err := browserGroup.MergeProbe(probe)
	if err != nil {
		t.Fatal(err)
	}
	jsonPath, ok := result.JSON()
	if !ok {
		t.Fatal("merged result has no JSON artifact")
	}
	merged := readJSONObject(t, jsonPath)
	for _, browser := range []string{"chrome", "firefox"} {
		entry, ok := merged[browser].(map[string]any)
		if !ok {
			t.Fatalf("no entry for %q in %v", browser, merged)
		}
		info, ok := entry["info"].(map[string]any)
		if !ok || info["browser"] != browser {
			t.Errorf("info for %q = %v", browser, entry["info"])
		}
		if _, ok := entry["data"].(map[string]any); !ok {
			t.Errorf("data for %q = %T", browser, entry["data"])
		}
	}

	csvPath, ok := result.CSV()
	if !ok {
		t.Fatal("merged result has no CSV artifact")
	}
	rows := readTab(t, csvPath)
	if len(rows) == 0 {
		t.Fatal("merged CSV is empty")
	}
	// Each browser contributes its own value columns to shared rows.
	var scoreRow []string
	for _, row := range rows {
		if row[0] == "benchmark/score" {
			scoreRow = row
		}
	}
	if scoreRow == nil {
		t.Fatalf("no benchmark/score row in %v", rows)
	}
	if !contains(scoreRow, "10") || !contains(scoreRow, "30") {
		t.Errorf("score row %v is missing per-browser values", scoreRow)
	}
}

func TestMergeCached(t *testing.T) {
	dir := t.TempDir()
	runs := []*benchrun.Run{
		newMeasuredRun(t, dir, "chrome", "story 0", 0, "default", 10),
	}
	browserGroup := buildBrowserGroup(t, runs)
	group := browserGroup.StoryGroups()[0].RepetitionsGroups()[0]
	probe := NewJSONMergeProbe(probeName, filepath.Join(dir, "out"))

	first, err := group.MergeProbe(probe)
	if err != nil {
		t.Fatal(err)
	}
	// A second merge returns the cached artifact instead of failing
	// on the already-written file.
	second, err := group.MergeProbe(probe)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %v != %v", first, second)
	}
}

func TestMergeCSVRows(t *testing.T) {
	tableA := [][]string{
		{"label", "chrome"},
		{"a/a", "1", "2"},
		{"b", "3"},
	}
	tableB := [][]string{
		{"label", "firefox"},
		{"a/a", "4", "5"},
		{"c", "6"},
	}
	got := MergeCSVRows([][][]string{tableA, tableB})
	want := [][]string{
		{"label", "chrome", "", "firefox", ""},
		{"a/a", "1", "2", "4", "5"},
		{"b", "3", "", "", ""},
		{"c", "", "", "6", ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merged rows = %v, want %v", got, want)
	}
}

func readJSONObject(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatal(err)
	}
	return data
}

func readTab(t *testing.T, path string) [][]string {
	t.Helper()
	rows, err := readTabFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func contains(row []string, cell string) bool {
	for _, c := range row {
		if c == cell {
			return true
		}
	}
	return false
}
