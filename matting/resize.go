package matting

import (
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"
)

// DefaultMaxWidth 分割前缩放到的固定宽度
const DefaultMaxWidth = 500

// ResizedSize 计算缩放后的尺寸：宽固定为 maxWidth，高按比例四舍五入（至少 1）
func ResizedSize(w, h, maxWidth int) (int, int) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	scale := float64(maxWidth) / float64(w)
	nh := int(math.Round(float64(h) * scale))
	return maxWidth, max(1, nh)
}

// Resize 单次无滤波缩放到 maxWidth 宽
// 比 maxWidth 窄的图片同样会被放大，结果超过 maxPixels 时拒绝
func Resize(img image.Image, maxWidth, maxPixels int) (*image.NRGBA, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrImageDecode)
	}

	nw, nh := ResizedSize(b.Dx(), b.Dy(), maxWidth)
	if err := checkPixels(nw, nh, maxPixels); err != nil {
		return nil, err
	}
	if nw == b.Dx() && nh == b.Dy() {
		if nrgba, ok := img.(*image.NRGBA); ok {
			return cloneNRGBA(nrgba), nil
		}
		return toNRGBA(img), nil
	}

	resized := resize.Resize(uint(nw), uint(nh), img, resize.NearestNeighbor)
	return toNRGBA(resized), nil
}
