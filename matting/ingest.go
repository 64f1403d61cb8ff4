// Package matting 实现去背景的图像流水线：解码、缩放、合成、导出
package matting

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrImageDecode   = errors.New("image decode failed")
	ErrImageTooLarge = fmt.Errorf("%w: too many pixels", ErrImageDecode)
)

// DefaultMaxPixels 解码和缩放允许的最大像素数
const DefaultMaxPixels = 40_000_000

// Source 用户上传的原始图片，解码后不再修改
type Source struct {
	Image *image.NRGBA
	MIME  string
	Bytes []byte
}

func (s *Source) Width() int {
	return s.Image.Bounds().Dx()
}

func (s *Source) Height() int {
	return s.Image.Bounds().Dy()
}

// DataURI 原图的 data: 引用，用于“原图”视图
func (s *Source) DataURI() string {
	return "data:" + s.MIME + ";base64," + base64.StdEncoding.EncodeToString(s.Bytes)
}

// IsImageType 声明的类型是否属于 image/*
func IsImageType(contentType string) bool {
	mediaType := strings.TrimSpace(strings.ToLower(strings.SplitN(contentType, ";", 2)[0]))
	return strings.HasPrefix(mediaType, "image/") && len(mediaType) > len("image/")
}

// Decode 把上传的字节解码为 NRGBA
// 按内容嗅探类型，声明类型只在嗅探结果不够具体时使用
// 解码前先读取尺寸，像素数超过 maxPixels（<= 0 使用默认值）直接拒绝
func Decode(data []byte, declared string, maxPixels int) (*Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrImageDecode)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: unsupported content %s (declared %s)", ErrImageDecode, mt.String(), declared)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, err
	}

	// 与浏览器一致，按 EXIF 方向摆正
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrImageDecode)
	}

	return &Source{
		Image: toNRGBA(img),
		MIME:  mt.String(),
		Bytes: data,
	}, nil
}

func checkPixels(w, h, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	if int64(w)*int64(h) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrImageTooLarge, w, h, maxPixels)
	}
	return nil
}
