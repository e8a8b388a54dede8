// Package archive packs watermarked outputs into a single ZIP download.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

type Entry struct {
	Name string
	Data []byte
}

// Pack writes all entries into an in-memory ZIP and returns it ready for
// streaming. Colliding names get a numeric suffix so no output is lost.
func Pack(entries []Entry) (io.Reader, int64, error) {
	if len(entries) == 0 {
		return nil, 0, errors.New("no entries to pack")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		name := e.Name
		if n := seen[name]; n > 0 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n+1, ext)
		}
		seen[e.Name]++

		w, err := zw.Create(name)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create zip entry %q: %w", name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, 0, fmt.Errorf("failed to write zip entry %q: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize zip: %w", err)
	}

	return &buf, int64(buf.Len()), nil
}

// ResultName derives the entry name for one watermarked image:
// "<base>_watermarked<ext>" with the extension matching the output format.
func ResultName(original string, format imaging.Format) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if base == "" || base == "." {
		base = "image"
	}

	ext := ".jpg"
	switch format {
	case imaging.PNG:
		ext = ".png"
	case imaging.GIF:
		ext = ".gif"
	}

	return base + "_watermarked" + ext
}
