package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// renderTextLayer draws text into a fresh transparent buffer sized to the
// glyph-run bounding box. Metrics come entirely from the face.
func renderTextLayer(text string, face font.Face, fill color.NRGBA) (*image.NRGBA, error) {
	bounds, _ := font.BoundString(face, text)
	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()
	if w <= 0 || h <= 0 {
		return nil, &FontRenderError{Text: text, Err: errors.New("text bounds are empty")}
	}

	layer := image.NewNRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(fill),
		Face: face,
		Dot: fixed.Point26_6{
			X: -bounds.Min.X,
			Y: -bounds.Min.Y,
		},
	}
	d.DrawString(text)

	return layer, nil
}

func parseHexColor(s string) (color.NRGBA, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return color.NRGBA{}, errors.New("color must not be empty")
	}
	str = strings.TrimPrefix(str, "#")
	switch len(str) {
	case 3:
		str = fmt.Sprintf("%c%c%c%c%c%c", str[0], str[0], str[1], str[1], str[2], str[2])
	case 6:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color format: %q", s)
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(str, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color format: %q", s)
	}

	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
