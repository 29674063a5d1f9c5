package controller

import (
	"strings"

	"image-compressor-go/internal/compressor"
)

// FileFilter is one entry of a file dialog's type selector.
type FileFilter struct {
	Name       string
	Extensions []string
}

// Matches reports whether path carries one of the filter's extensions.
func (f FileFilter) Matches(path string) bool {
	ext := compressor.Extension(path)
	for _, e := range f.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (f FileFilter) String() string {
	return f.Name + ": " + strings.Join(f.Extensions, ", ")
}

var (
	// InputFilters restrict the open dialog to decodable images.
	InputFilters = []FileFilter{
		{Name: "Images", Extensions: []string{"png", "jpg", "jpeg", "webp"}},
	}

	// OutputFilters are offered, in order, by the save dialog.
	OutputFilters = []FileFilter{
		{Name: "JPEG", Extensions: []string{"jpg", "jpeg"}},
		{Name: "PNG", Extensions: []string{"png"}},
		{Name: "WebP", Extensions: []string{"webp"}},
	}
)

// MatchesAny reports whether any filter accepts path.
func MatchesAny(filters []FileFilter, path string) bool {
	for _, f := range filters {
		if f.Matches(path) {
			return true
		}
	}
	return false
}

// FileDialog is the toolkit's native file chooser.
// Both methods return ok=false when the user cancels.
type FileDialog interface {
	OpenFile(filters []FileFilter) (path string, ok bool)
	SaveFile(filters []FileFilter) (path string, ok bool)
}

// StaticDialog answers dialogs with fixed paths, e.g. taken from the
// command line. OpenFile enforces the filters like a native dialog would;
// SaveFile accepts any name since save dialogs let users type one.
type StaticDialog struct {
	OpenPath string
	SavePath string
}

func (d StaticDialog) OpenFile(filters []FileFilter) (string, bool) {
	if d.OpenPath == "" || !MatchesAny(filters, d.OpenPath) {
		return "", false
	}
	return d.OpenPath, true
}

func (d StaticDialog) SaveFile([]FileFilter) (string, bool) {
	return d.SavePath, d.SavePath != ""
}
