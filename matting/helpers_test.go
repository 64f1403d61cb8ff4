package matting

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chaos-io/cutout/segment"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

// halfMask 左半边背景，右半边前景
func halfMask(w, h int) *segment.Mask {
	m := segment.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			m.Set(x, y, true)
		}
	}
	return m
}

func fullMask(w, h int) *segment.Mask {
	m := segment.NewMask(w, h)
	for i := range m.Data {
		m.Data[i] = 1
	}
	return m
}
