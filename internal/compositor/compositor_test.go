package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var testFont = func() *opentype.Font {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	return fnt
}()

type testFontSource struct{}

func (testFontSource) NewFace(size float64) (font.Face, error) {
	return opentype.NewFace(testFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

type brokenFontSource struct{}

func (brokenFontSource) NewFace(size float64) (font.Face, error) {
	return nil, errors.New("face unavailable")
}

func testCanvas(t *testing.T, w, h int, fill color.NRGBA) *image.NRGBA {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
	return img
}

func measureLayer(t *testing.T, text string, size int) (int, int) {
	t.Helper()

	face, err := testFontSource{}.NewFace(float64(size))
	require.NoError(t, err)
	defer face.Close()

	bounds, _ := font.BoundString(face, text)
	return (bounds.Max.X - bounds.Min.X).Ceil(), (bounds.Max.Y - bounds.Min.Y).Ceil()
}

func singleSpec() Spec {
	return Spec{
		Text:    "SAMPLE",
		Size:    40,
		Color:   "#FF0000",
		Opacity: 0.5,
		Mode:    ModeSingle,
		Anchor:  AnchorCenter,
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr bool
	}{
		{"valid single", func(s *Spec) {}, false},
		{"valid tiled", func(s *Spec) { s.Mode = ModeTiled; s.SpacingX = 20; s.SpacingY = 20 }, false},
		{"opacity lower edge", func(s *Spec) { s.Opacity = 0 }, false},
		{"opacity upper edge", func(s *Spec) { s.Opacity = 1 }, false},
		{"short hex color", func(s *Spec) { s.Color = "#f00" }, false},
		{"empty anchor", func(s *Spec) { s.Anchor = "" }, false},
		{"empty text", func(s *Spec) { s.Text = "" }, true},
		{"whitespace text", func(s *Spec) { s.Text = "   " }, true},
		{"zero size", func(s *Spec) { s.Size = 0 }, true},
		{"negative size", func(s *Spec) { s.Size = -10 }, true},
		{"opacity below range", func(s *Spec) { s.Opacity = -0.01 }, true},
		{"opacity above range", func(s *Spec) { s.Opacity = 1.01 }, true},
		{"named color", func(s *Spec) { s.Color = "red" }, true},
		{"unknown mode", func(s *Spec) { s.Mode = "scatter" }, true},
		{"tiled without spacing", func(s *Spec) { s.Mode = ModeTiled }, true},
		{"unknown anchor", func(s *Spec) { s.Anchor = "middle" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := singleSpec()
			tt.mutate(&spec)

			err := spec.Validate()
			if tt.wantErr {
				var specErr *InvalidSpecError
				require.ErrorAs(t, err, &specErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestComposite_KeepsDimensionsAndSource(t *testing.T) {
	src := testCanvas(t, 800, 600, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	snapshot := append([]uint8(nil), src.Pix...)

	out, err := Composite(src, singleSpec(), testFontSource{})
	require.NoError(t, err)
	require.Equal(t, 800, out.Bounds().Dx())
	require.Equal(t, 600, out.Bounds().Dy())

	// the source must come back untouched
	require.True(t, bytes.Equal(snapshot, src.Pix))

	// identical inputs produce identical output
	again, err := Composite(src, singleSpec(), testFontSource{})
	require.NoError(t, err)
	require.True(t, bytes.Equal(out.Pix, again.Pix))
}

func TestComposite_OpacityZeroIsIdentity(t *testing.T) {
	src := testCanvas(t, 200, 150, color.NRGBA{R: 40, G: 90, B: 160, A: 255})

	spec := singleSpec()
	spec.Opacity = 0

	out, err := Composite(src, spec, testFontSource{})
	require.NoError(t, err)
	require.True(t, bytes.Equal(src.Pix, out.Pix))
}

func TestComposite_OpacityMonotonic(t *testing.T) {
	src := testCanvas(t, 400, 300, color.NRGBA{A: 255})

	spec := singleSpec()
	spec.Color = "#FFFFFF"

	brightness := func(opacity float64) int {
		spec.Opacity = opacity
		out, err := Composite(src, spec, testFontSource{})
		require.NoError(t, err)

		sum := 0
		for i := 0; i < len(out.Pix); i += 4 {
			sum += int(out.Pix[i])
		}
		return sum
	}

	require.Greater(t, brightness(0.7), brightness(0.3))
}

func TestComposite_HalfOpacityBlend(t *testing.T) {
	src := testCanvas(t, 800, 600, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out, err := Composite(src, singleSpec(), testFontSource{})
	require.NoError(t, err)

	// a fully covered glyph pixel of red at 0.5 over white reads pink
	found := false
	for i := 0; i < len(out.Pix); i += 4 {
		r, g, b := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
		if r == 255 && g >= 120 && g <= 134 && b >= 120 && b <= 134 {
			found = true
			break
		}
	}
	require.True(t, found, "no half-blended watermark pixel found")
}

func TestComposite_RotationFullTurn(t *testing.T) {
	src := testCanvas(t, 400, 300, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	render := func(deg float64) []uint8 {
		spec := singleSpec()
		spec.Rotation = deg
		out, err := Composite(src, spec, testFontSource{})
		require.NoError(t, err)
		return out.Pix
	}

	require.True(t, bytes.Equal(render(0), render(360)))
	require.True(t, bytes.Equal(render(-90), render(270)))
}

func TestComposite_TiledGridOffsets(t *testing.T) {
	const bw, bh = 800, 600
	src := testCanvas(t, bw, bh, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	spec := Spec{
		Text:     "WM",
		Size:     30,
		Color:    "#FF0000",
		Opacity:  1,
		Mode:     ModeTiled,
		SpacingX: 20,
		SpacingY: 20,
	}

	lw, lh := measureLayer(t, spec.Text, spec.Size)
	cw, ch := lw+spec.SpacingX, lh+spec.SpacingY

	out, err := Composite(src, spec, testFontSource{})
	require.NoError(t, err)

	// ink may only appear inside a cell's layer box, never in the spacing gaps
	inked := make(map[image.Point]bool)
	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			if out.NRGBAAt(x, y) == src.NRGBAAt(x, y) {
				continue
			}
			require.Less(t, x%cw, lw, "ink in horizontal gap at (%d,%d)", x, y)
			require.Less(t, y%ch, lh, "ink in vertical gap at (%d,%d)", x, y)
			inked[image.Pt(x/cw, y/ch)] = true
		}
	}

	// every cell whose layer box fits fully on the canvas must carry ink
	for y := 0; y+lh <= bh; y += ch {
		for x := 0; x+lw <= bw; x += cw {
			require.True(t, inked[image.Pt(x/cw, y/ch)], "cell at (%d,%d) is blank", x, y)
		}
	}
}

func TestComposite_TiledPartialEdgeTiles(t *testing.T) {
	spec := Spec{
		Text:     "WM",
		Size:     30,
		Color:    "#FF0000",
		Opacity:  1,
		Mode:     ModeTiled,
		SpacingX: 20,
		SpacingY: 20,
	}

	lw, lh := measureLayer(t, spec.Text, spec.Size)
	cw, ch := lw+spec.SpacingX, lh+spec.SpacingY

	// canvas barely larger than one cell: a 2x2 grid where the second
	// row and column only fit half a layer, clipped at the edge
	bw, bh := cw+lw/2, ch+lh/2
	src := testCanvas(t, bw, bh, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out, err := Composite(src, spec, testFontSource{})
	require.NoError(t, err)

	inked := make(map[image.Point]bool)
	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			if out.NRGBAAt(x, y) != src.NRGBAAt(x, y) {
				inked[image.Pt(x/cw, y/ch)] = true
			}
		}
	}

	// ceil(W/cw) * ceil(H/ch) cells, partial ones included
	require.Len(t, inked, 4)
	for _, cell := range []image.Point{image.Pt(0, 0), image.Pt(1, 0), image.Pt(0, 1), image.Pt(1, 1)} {
		require.True(t, inked[cell], "cell %v carries no ink", cell)
	}
}

func TestComposite_CornerAnchors(t *testing.T) {
	const bw, bh = 800, 600

	spec := singleSpec()
	spec.Opacity = 1
	lw, lh := measureLayer(t, spec.Text, spec.Size)

	tests := []struct {
		name   string
		anchor Anchor
		box    image.Rectangle
	}{
		{"top left", AnchorTopLeft, image.Rect(20, 20, 20+lw, 20+lh)},
		{"top right", AnchorTopRight, image.Rect(bw-lw-20, 20, bw-20, 20+lh)},
		{"bottom left", AnchorBottomLeft, image.Rect(20, bh-lh-20, 20+lw, bh-20)},
		{"bottom right", AnchorBottomRight, image.Rect(bw-lw-20, bh-lh-20, bw-20, bh-20)},
		{"center", AnchorCenter, image.Rect((bw-lw)/2, (bh-lh)/2, (bw-lw)/2+lw, (bh-lh)/2+lh)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testCanvas(t, bw, bh, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			spec.Anchor = tt.anchor

			out, err := Composite(src, spec, testFontSource{})
			require.NoError(t, err)

			found := false
			for y := 0; y < bh; y++ {
				for x := 0; x < bw; x++ {
					if out.NRGBAAt(x, y) == src.NRGBAAt(x, y) {
						continue
					}
					found = true
					require.True(t, image.Pt(x, y).In(tt.box), "ink outside anchor box at (%d,%d)", x, y)
				}
			}
			require.True(t, found, "no watermark ink on the canvas")
		})
	}
}

func TestComposite_Errors(t *testing.T) {
	src := testCanvas(t, 100, 100, color.NRGBA{A: 255})

	t.Run("nil source", func(t *testing.T) {
		_, err := Composite(nil, singleSpec(), testFontSource{})
		require.Error(t, err)
	})

	t.Run("nil font source", func(t *testing.T) {
		_, err := Composite(src, singleSpec(), nil)
		require.Error(t, err)
	})

	t.Run("invalid spec", func(t *testing.T) {
		spec := singleSpec()
		spec.Opacity = 2

		var specErr *InvalidSpecError
		_, err := Composite(src, spec, testFontSource{})
		require.ErrorAs(t, err, &specErr)
	})

	t.Run("font failure", func(t *testing.T) {
		var fontErr *FontRenderError
		_, err := Composite(src, singleSpec(), brokenFontSource{})
		require.ErrorAs(t, err, &fontErr)
	})
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    color.NRGBA
		wantErr bool
	}{
		{"full form", "#FF8000", color.NRGBA{R: 255, G: 128, A: 255}, false},
		{"short form", "#f00", color.NRGBA{R: 255, A: 255}, false},
		{"no hash", "00FF00", color.NRGBA{G: 255, A: 255}, false},
		{"empty", "", color.NRGBA{}, true},
		{"named", "red", color.NRGBA{}, true},
		{"five digits", "#12345", color.NRGBA{}, true},
		{"non-hex", "#GGHHII", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHexColor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAngle(t *testing.T) {
	require.Equal(t, 0.0, normalizeAngle(0))
	require.Equal(t, 0.0, normalizeAngle(360))
	require.Equal(t, 90.0, normalizeAngle(450))
	require.Equal(t, 270.0, normalizeAngle(-90))
}
