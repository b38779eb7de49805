package loaders

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTitleCase(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"company-logo", "Company Logo"},
		{"icon_set", "Icon Set"},
		{"simple", "Simple"},
		{"UPPER-case", "Upper Case"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := titleCase(tc.input)
			if result != tc.expected {
				t.Errorf("titleCase(%q) = %q, want %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestDiscoverSVG(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b-icon.svg": `<svg><title> Fancy
  Icon </title><rect/></svg>`,
		"a.SVG":     `<svg><rect/></svg>`,
		"notes.txt": "not an svg",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.svg"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	found, err := DiscoverSVG(dir)
	if err != nil {
		t.Fatalf("DiscoverSVG failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Expected 2 files, got %d: %+v", len(found), found)
	}

	if found[0].Name != "a" || found[0].DisplayName != "A" {
		t.Errorf("Unexpected first entry %+v", found[0])
	}
	if found[1].Name != "b-icon" || found[1].DisplayName != "Fancy Icon" {
		t.Errorf("Expected title from <title>, got %+v", found[1])
	}
}

func TestDiscoverSVG_MissingDir(t *testing.T) {
	if _, err := DiscoverSVG(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}
