package matting

import (
	"errors"
	"fmt"
	"image"

	"github.com/chaos-io/cutout/segment"
)

var ErrMaskMismatch = errors.New("segmentation mask does not match image")

// Composite 把背景像素的 alpha 置 0，生成透明背景画布
//
// 画布是 img 的拷贝，只修改 alpha 通道：前景像素保持原样（包括原有 alpha），
// RGB 数据全部保留。掩码与图片像素数不一致时直接失败。
func Composite(img *image.NRGBA, mask *segment.Mask) (*image.NRGBA, error) {
	if mask == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrMaskMismatch)
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	if mask.Len() != w*h {
		return nil, fmt.Errorf("%w: mask has %d values, image has %dx%d pixels",
			ErrMaskMismatch, mask.Len(), w, h)
	}
	if (mask.Width != 0 || mask.Height != 0) && (mask.Width != w || mask.Height != h) {
		return nil, fmt.Errorf("%w: mask is %dx%d, image is %dx%d",
			ErrMaskMismatch, mask.Width, mask.Height, w, h)
	}

	canvas := cloneNRGBA(img)
	for p := 0; p < w*h; p++ {
		if !mask.Foreground(p) {
			y, x := p/w, p%w
			canvas.Pix[y*canvas.Stride+x*4+3] = 0
		}
	}
	return canvas, nil
}
