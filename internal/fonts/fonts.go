// Package fonts provides the read-only font registry backing watermark
// text rendering: the built-in Go font family plus optional fonts loaded
// from a directory at startup.
package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shinnn23/watermark-tool/internal/compositor"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
)

// DefaultFont is used when a request leaves the font field empty.
const DefaultFont = "go-regular"

var ErrUnknownFont = errors.New("unknown font")

// Library maps font names to parsed font data. It is populated once at
// startup and read-only afterwards, so concurrent lookups need no locking.
type Library struct {
	fonts map[string]*opentype.Font
}

// NewLibrary returns a library pre-filled with the built-in Go fonts.
func NewLibrary() *Library {
	l := &Library{fonts: make(map[string]*opentype.Font)}

	builtin := map[string][]byte{
		DefaultFont:      goregular.TTF,
		"go-bold":        gobold.TTF,
		"go-italic":      goitalic.TTF,
		"go-bold-italic": gobolditalic.TTF,
		"go-medium":      gomedium.TTF,
		"go-mono":        gomono.TTF,
		"go-smallcaps":   gosmallcaps.TTF,
	}
	for name, data := range builtin {
		// built-in TTFs always parse
		_ = l.Register(name, data)
	}

	return l
}

// Register parses raw TTF/OTF data and stores it under name.
func (l *Library) Register(name string, data []byte) error {
	fnt, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse font %q: %w", name, err)
	}
	l.fonts[name] = fnt
	return nil
}

// LoadDir registers every .ttf/.otf file found in dir, keyed by the file
// name without extension. Returns the number of fonts added.
func (l *Library) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read fonts dir %q: %w", dir, err)
	}

	added := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".ttf" && ext != ".otf" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return added, fmt.Errorf("failed to read font file %q: %w", e.Name(), err)
		}

		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if err := l.Register(name, data); err != nil {
			return added, err
		}
		added++
	}

	return added, nil
}

// Names lists all registered fonts, sorted for a stable UI dropdown.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.fonts))
	for name := range l.fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered. Empty name maps to DefaultFont.
func (l *Library) Has(name string) bool {
	if name == "" {
		name = DefaultFont
	}
	_, ok := l.fonts[name]
	return ok
}

// Source returns a compositor.FontSource for the named font. Faces are
// minted per call, so one source can serve concurrent composites.
func (l *Library) Source(name string) (compositor.FontSource, error) {
	if name == "" {
		name = DefaultFont
	}
	fnt, ok := l.fonts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFont, name)
	}
	return &faceSource{fnt: fnt}, nil
}

type faceSource struct {
	fnt *opentype.Font
}

func (s *faceSource) NewFace(size float64) (font.Face, error) {
	return opentype.NewFace(s.fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
