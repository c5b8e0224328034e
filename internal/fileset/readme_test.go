package fileset

import (
	"errors"
	"testing"

	"github.com/bianoble/course-sync/internal/assets"
)

func testTable() *assets.Table {
	return assets.NewTable(map[string]assets.Asset{
		"diagram": {ID: "F1", Format: "png", Width: 640, Height: 480},
		"icon":    {ID: "F2", Format: "gif"},
	})
}

func TestExpandReadmesRendersImageTags(t *testing.T) {
	files := map[string]string{
		"README.md": "Intro\n\n$$IMAGE diagram the flow$$\n",
	}

	if err := ExpandReadmes(files, testTable(), "https://cdn.example.com"); err != nil {
		t.Fatalf("ExpandReadmes: %v", err)
	}

	want := "Intro\n\n![the flow 640x480](https://cdn.example.com/userfiles/img/F1.png)\n"
	if files["README.md"] != want {
		t.Errorf("README.md = %q, want %q", files["README.md"], want)
	}
}

func TestExpandReadmesOmitsSizeWhenUnknown(t *testing.T) {
	files := map[string]string{
		"README.md": "$$IMAGE icon$$",
	}

	if err := ExpandReadmes(files, testTable(), "https://cdn.example.com/"); err != nil {
		t.Fatalf("ExpandReadmes: %v", err)
	}

	want := "![](https://cdn.example.com/userfiles/img/F2.gif)"
	if files["README.md"] != want {
		t.Errorf("README.md = %q, want %q", files["README.md"], want)
	}
}

func TestExpandReadmesOnlyTouchesReadmes(t *testing.T) {
	files := map[string]string{
		"notes.md": "$$IMAGE missing$$",
	}

	if err := ExpandReadmes(files, testTable(), "https://cdn.example.com"); err != nil {
		t.Fatalf("ExpandReadmes: %v", err)
	}
	if files["notes.md"] != "$$IMAGE missing$$" {
		t.Errorf("notes.md was rewritten: %q", files["notes.md"])
	}
}

func TestExpandReadmesNestedReadme(t *testing.T) {
	files := map[string]string{
		"docs/README.md": "$$IMAGE icon$$",
	}

	if err := ExpandReadmes(files, testTable(), "https://cdn.example.com"); err != nil {
		t.Fatalf("ExpandReadmes: %v", err)
	}
	if files["docs/README.md"] == "$$IMAGE icon$$" {
		t.Error("nested README.md was not rewritten")
	}
}

func TestExpandReadmesNoTableConfigured(t *testing.T) {
	files := map[string]string{"README.md": "$$IMAGE diagram$$"}

	err := ExpandReadmes(files, nil, "https://cdn.example.com")
	var notConfigured *ImageNotConfiguredError
	if !errors.As(err, &notConfigured) {
		t.Fatalf("err = %v, want *ImageNotConfiguredError", err)
	}
}

func TestExpandReadmesUnknownImage(t *testing.T) {
	files := map[string]string{"README.md": "$$IMAGE nope$$"}

	err := ExpandReadmes(files, testTable(), "https://cdn.example.com")
	var notFound *ImageNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want *ImageNotFoundError", err)
	}
	if notFound.Name != "nope" {
		t.Errorf("Name = %q, want %q", notFound.Name, "nope")
	}
}
