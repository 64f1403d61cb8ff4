// Package segment 对接外部的人像分割模型
package segment

import (
	"context"
	"errors"
	"image"
)

var (
	ErrModelLoad     = errors.New("segmentation model failed to load")
	ErrModelNotReady = errors.New("segmentation model is not ready")
	ErrSegmentation  = errors.New("person segmentation failed")
)

//go:generate mockgen -destination=mocks/segment.go -package=mocks . Segmenter,Backend
type Segmenter interface {
	SegmentPerson(ctx context.Context, img image.Image, opts Options) (*Mask, error)
}

// Backend 负责获取一个可用的模型句柄
type Backend interface {
	Load(ctx context.Context, cfg ModelConfig) (Segmenter, error)
}

// SegmenterFunc 便于用函数实现 Segmenter
type SegmenterFunc func(ctx context.Context, img image.Image, opts Options) (*Mask, error)

func (f SegmenterFunc) SegmentPerson(ctx context.Context, img image.Image, opts Options) (*Mask, error) {
	return f(ctx, img, opts)
}

const (
	ResolutionLow    = "low"
	ResolutionMedium = "medium"
	ResolutionHigh   = "high"
)

// Options 单次推理参数
type Options struct {
	FlipHorizontal        bool    `json:"flip_horizontal"`
	InternalResolution    string  `json:"internal_resolution"`
	SegmentationThreshold float64 `json:"segmentation_threshold"`
}

// DefaultOptions 固定的推理参数
func DefaultOptions() Options {
	return Options{
		FlipHorizontal:        false,
		InternalResolution:    ResolutionHigh,
		SegmentationThreshold: 0.7,
	}
}

// ModelConfig 加载模型时透传给后端的参数
type ModelConfig struct {
	Architecture string  `json:"architecture" mapstructure:"architecture"`
	OutputStride int     `json:"output_stride" mapstructure:"output_stride"`
	Multiplier   float64 `json:"multiplier" mapstructure:"multiplier"`
	QuantBytes   int     `json:"quant_bytes" mapstructure:"quant_bytes"`
}

func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Architecture: "MobileNetV1",
		OutputStride: 16,
		Multiplier:   0.75,
		QuantBytes:   2,
	}
}

// Mask 逐像素的前景/背景分类
// Data[i] 对应像素 (i % Width, i / Width)，非 0 表示前景
type Mask struct {
	Width  int
	Height int
	Data   []byte
}

func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Data: make([]byte, width*height)}
}

func (m *Mask) Len() int {
	return len(m.Data)
}

func (m *Mask) Foreground(i int) bool {
	return m.Data[i] != 0
}

// Set 设置 (x, y) 的分类
func (m *Mask) Set(x, y int, foreground bool) {
	var v byte
	if foreground {
		v = 1
	}
	m.Data[y*m.Width+x] = v
}

// Coverage 前景像素占比
func (m *Mask) Coverage() float64 {
	if len(m.Data) == 0 {
		return 0
	}
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return float64(n) / float64(len(m.Data))
}
