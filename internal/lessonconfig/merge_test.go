package lessonconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMergeObjectsRecursively(t *testing.T) {
	global := map[string]any{
		"editor": map[string]any{"theme": "dark", "tabSize": 4.0},
		"title":  "Global",
	}
	template := map[string]any{
		"editor": map[string]any{"tabSize": 2.0},
	}
	lesson := map[string]any{
		"title": "Lesson",
	}

	got := Merge(global, template, lesson)

	want := map[string]any{
		"editor": map[string]any{"theme": "dark", "tabSize": 2.0},
		"title":  "Lesson",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %#v, want %#v", got, want)
	}
}

func TestMergeArraysAndScalarsOverrideWholesale(t *testing.T) {
	global := map[string]any{
		"steps": []any{"a", "b", "c"},
		"limit": 10.0,
	}
	lesson := map[string]any{
		"steps": []any{"x"},
		"limit": 1.0,
	}

	got := Merge(global, nil, lesson)

	steps, ok := got["steps"].([]any)
	if !ok || len(steps) != 1 || steps[0] != "x" {
		t.Errorf("steps = %#v, want [x] (replaced wholesale, not merged)", got["steps"])
	}
	if got["limit"] != 1.0 {
		t.Errorf("limit = %v, want 1", got["limit"])
	}
}

func TestMergePriorityIsAssociative(t *testing.T) {
	global := map[string]any{"a": 1.0, "b": 1.0, "c": 1.0}
	template := map[string]any{"b": 2.0, "c": 2.0}
	lesson := map[string]any{"c": 3.0}

	allAtOnce := Merge(global, template, lesson)
	pairwise := Merge(Merge(global, template), lesson)

	if !reflect.DeepEqual(allAtOnce, pairwise) {
		t.Errorf("Merge(g,t,l) = %#v, Merge(Merge(g,t),l) = %#v", allAtOnce, pairwise)
	}
	if allAtOnce["a"] != 1.0 || allAtOnce["b"] != 2.0 || allAtOnce["c"] != 3.0 {
		t.Errorf("priorities wrong: %#v", allAtOnce)
	}
}

func TestMergeDoesNotMutateTiers(t *testing.T) {
	global := map[string]any{"editor": map[string]any{"theme": "dark"}}
	lesson := map[string]any{"editor": map[string]any{"theme": "light"}}

	_ = Merge(global, lesson)

	if global["editor"].(map[string]any)["theme"] != "dark" {
		t.Error("Merge mutated the global tier")
	}
}

func TestLoadFileMissingIsNil(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg != nil {
		t.Errorf("cfg = %#v, want nil", cfg)
	}
}

func TestLoadFileParsesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"title":"Intro"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg["title"] != "Intro" {
		t.Errorf("title = %v, want Intro", cfg["title"])
	}
}

func TestLoadFileMalformedJSONFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile succeeded on malformed JSON")
	}
}
