// Package compositor renders a configured text watermark onto a raster
// image. It is a pure function of its inputs: the source image is never
// mutated, no state is shared between calls, and identical inputs produce
// pixel-identical output.
package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
)

type (
	Mode   string
	Anchor string
)

const (
	ModeSingle Mode = "single"
	ModeTiled  Mode = "tiled"
)

const (
	AnchorCenter      Anchor = "center"
	AnchorTopLeft     Anchor = "top_left"
	AnchorTopRight    Anchor = "top_right"
	AnchorBottomLeft  Anchor = "bottom_left"
	AnchorBottomRight Anchor = "bottom_right"
)

// Distance from the canvas edge for the corner anchors.
const anchorPadding = 20

// Spec is the immutable watermark configuration for one composite call.
type Spec struct {
	Text     string
	Size     int     // font size in pixels, > 0
	Color    string  // hex fill color, e.g. "#FF0000"
	Opacity  float64 // [0,1]
	Rotation float64 // degrees, normalized mod 360
	Mode     Mode
	SpacingX int // horizontal gap between tiles, > 0 in tiled mode
	SpacingY int // vertical gap between tiles, > 0 in tiled mode
	Anchor   Anchor
}

// FontSource mints glyph-rendering faces for the compositor. Every call
// must return a fresh face so concurrent composites never share one.
type FontSource interface {
	NewFace(size float64) (font.Face, error)
}

// Validate checks the spec without rendering anything. Out-of-range values
// are rejected, never clamped.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return &InvalidSpecError{Reason: "text must not be empty"}
	}
	if s.Size <= 0 {
		return &InvalidSpecError{Reason: fmt.Sprintf("font size %d must be positive", s.Size)}
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		return &InvalidSpecError{Reason: fmt.Sprintf("opacity %v is out of range [0,1]", s.Opacity)}
	}
	if _, err := parseHexColor(s.Color); err != nil {
		return &InvalidSpecError{Reason: err.Error()}
	}
	switch s.Mode {
	case ModeSingle, ModeTiled:
	default:
		return &InvalidSpecError{Reason: fmt.Sprintf("unknown placement mode %q", s.Mode)}
	}
	if s.Mode == ModeTiled && (s.SpacingX <= 0 || s.SpacingY <= 0) {
		return &InvalidSpecError{Reason: "tiled mode requires positive spacing"}
	}
	switch s.Anchor {
	case "", AnchorCenter, AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight:
	default:
		return &InvalidSpecError{Reason: fmt.Sprintf("unknown anchor %q", s.Anchor)}
	}
	return nil
}

// Composite returns a new image of the same dimensions as src with the
// watermark applied. The prepared layer (rendered text, rotated, with
// opacity-scaled alpha) is placed once at the anchor in single mode, or
// repeated on a top-left-origin grid in tiled mode with partial tiles
// clipped at the canvas edge.
func Composite(src image.Image, spec Spec, fonts FontSource) (*image.NRGBA, error) {
	if src == nil {
		return nil, &InvalidSpecError{Reason: "nil source image"}
	}
	if fonts == nil {
		return nil, &InvalidSpecError{Reason: "nil font source"}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	fill, _ := parseHexColor(spec.Color)

	face, err := fonts.NewFace(float64(spec.Size))
	if err != nil {
		return nil, &FontRenderError{Text: spec.Text, Err: err}
	}
	if c, ok := face.(io.Closer); ok {
		defer c.Close()
	}

	layer, err := renderTextLayer(spec.Text, face, fill)
	if err != nil {
		return nil, err
	}

	if angle := normalizeAngle(spec.Rotation); angle != 0 {
		layer = imaging.Rotate(layer, angle, color.NRGBA{})
	}
	applyOpacity(layer, spec.Opacity)

	out := imaging.Clone(src)
	switch spec.Mode {
	case ModeTiled:
		tile(out, layer, spec.SpacingX, spec.SpacingY)
	default:
		place(out, layer, spec.Anchor)
	}
	return out, nil
}

func place(dst, layer *image.NRGBA, anchor Anchor) {
	bw, bh := dst.Bounds().Dx(), dst.Bounds().Dy()
	lw, lh := layer.Bounds().Dx(), layer.Bounds().Dy()

	var pos image.Point
	switch anchor {
	case AnchorTopLeft:
		pos = image.Pt(anchorPadding, anchorPadding)
	case AnchorTopRight:
		pos = image.Pt(bw-lw-anchorPadding, anchorPadding)
	case AnchorBottomLeft:
		pos = image.Pt(anchorPadding, bh-lh-anchorPadding)
	case AnchorBottomRight:
		pos = image.Pt(bw-lw-anchorPadding, bh-lh-anchorPadding)
	default:
		pos = image.Pt((bw-lw)/2, (bh-lh)/2)
	}

	// keep the layer inside the canvas even when it barely fits
	pos.X = max(0, min(pos.X, bw-lw))
	pos.Y = max(0, min(pos.Y, bh-lh))

	overlay(dst, layer, pos)
}

func tile(dst, layer *image.NRGBA, spacingX, spacingY int) {
	bw, bh := dst.Bounds().Dx(), dst.Bounds().Dy()
	cw := layer.Bounds().Dx() + spacingX
	ch := layer.Bounds().Dy() + spacingY

	for y := 0; y < bh; y += ch {
		for x := 0; x < bw; x += cw {
			overlay(dst, layer, image.Pt(x, y))
		}
	}
}

func overlay(dst, layer *image.NRGBA, at image.Point) {
	r := image.Rect(at.X, at.Y, at.X+layer.Bounds().Dx(), at.Y+layer.Bounds().Dy())
	draw.Draw(dst, r, layer, layer.Bounds().Min, draw.Over)
}

func applyOpacity(layer *image.NRGBA, opacity float64) {
	if opacity == 1 {
		return
	}
	for i := 3; i < len(layer.Pix); i += 4 {
		layer.Pix[i] = uint8(math.Round(float64(layer.Pix[i]) * opacity))
	}
}

func normalizeAngle(deg float64) float64 {
	m := math.Mod(deg, 360)
	if m < 0 {
		m += 360
	}
	return m
}
