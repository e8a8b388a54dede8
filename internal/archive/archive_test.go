package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func unpack(t *testing.T, r io.Reader, size int64) map[string][]byte {
	t.Helper()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, size, int64(len(data)))

	zr, err := zip.NewReader(bytes.NewReader(data), size)
	require.NoError(t, err)

	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = content
	}
	return out
}

func TestPack(t *testing.T) {
	entries := []Entry{
		{Name: "a_watermarked.png", Data: []byte("aaa")},
		{Name: "b_watermarked.jpg", Data: []byte("bbb")},
	}

	r, size, err := Pack(entries)
	require.NoError(t, err)
	require.Greater(t, size, int64(0))

	files := unpack(t, r, size)
	require.Len(t, files, 2)
	require.Equal(t, []byte("aaa"), files["a_watermarked.png"])
	require.Equal(t, []byte("bbb"), files["b_watermarked.jpg"])
}

func TestPack_Empty(t *testing.T) {
	_, _, err := Pack(nil)
	require.Error(t, err)
}

func TestPack_CollidingNames(t *testing.T) {
	entries := []Entry{
		{Name: "img_watermarked.png", Data: []byte("first")},
		{Name: "img_watermarked.png", Data: []byte("second")},
		{Name: "img_watermarked.png", Data: []byte("third")},
	}

	r, size, err := Pack(entries)
	require.NoError(t, err)

	files := unpack(t, r, size)
	require.Len(t, files, 3)
	require.Equal(t, []byte("first"), files["img_watermarked.png"])
	require.Equal(t, []byte("second"), files["img_watermarked_2.png"])
	require.Equal(t, []byte("third"), files["img_watermarked_3.png"])
}

func TestResultName(t *testing.T) {
	tests := []struct {
		name     string
		original string
		format   imaging.Format
		want     string
	}{
		{"png keeps png", "photo.png", imaging.PNG, "photo_watermarked.png"},
		{"jpeg gets jpg", "photo.jpeg", imaging.JPEG, "photo_watermarked.jpg"},
		{"gif keeps gif", "anim.gif", imaging.GIF, "anim_watermarked.gif"},
		{"path is stripped", "dir/sub/pic.png", imaging.PNG, "pic_watermarked.png"},
		{"empty base falls back", ".png", imaging.PNG, "image_watermarked.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ResultName(tt.original, tt.format))
		})
	}
}
