package matting

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

const (
	// DownloadName 导出文件名
	DownloadName = "background-removed.png"
	PNGMime      = "image/png"
)

// EncodePNG 原样导出画布
func EncodePNG(canvas *image.NRGBA) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(buf, canvas); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}
