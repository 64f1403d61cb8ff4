package matting

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/chaos-io/cutout/segment"
	"github.com/chaos-io/cutout/util"
	"go.uber.org/zap"
)

// Result 一次处理的产物
type Result struct {
	Source *Source
	Canvas *image.NRGBA
}

func (r *Result) Width() int {
	return r.Canvas.Bounds().Dx()
}

func (r *Result) Height() int {
	return r.Canvas.Bounds().Dy()
}

type Processor struct {
	Segmenter segment.Segmenter
	MaxWidth  int
	MaxPixels int
	Options   segment.Options
}

func NewProcessor(seg segment.Segmenter) *Processor {
	return &Processor{
		Segmenter: seg,
		MaxWidth:  DefaultMaxWidth,
		MaxPixels: DefaultMaxPixels,
		Options:   segment.DefaultOptions(),
	}
}

// Process 解码 -> 缩放 -> 分割 -> 合成
func (p *Processor) Process(ctx context.Context, data []byte, declared string) (*Result, error) {
	done := util.Trace("decode", zap.Int("bytes", len(data)))
	src, err := Decode(data, declared, p.MaxPixels)
	done()
	if err != nil {
		return nil, err
	}
	return p.Render(ctx, src)
}

// Render 对已解码的图片执行缩放、分割与合成，缩放后的中间图用完即弃
func (p *Processor) Render(ctx context.Context, src *Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := util.Trace("resize", zap.Int("width", src.Width()), zap.Int("height", src.Height()))
	resized, err := Resize(src.Image, p.MaxWidth, p.MaxPixels)
	done()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = util.Trace("segment person")
	mask, err := p.Segmenter.SegmentPerson(ctx, resized, p.Options)
	done()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, segment.ErrSegmentation) || errors.Is(err, segment.ErrModelNotReady) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", segment.ErrSegmentation, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = util.Trace("composite")
	canvas, err := Composite(resized, mask)
	done()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", segment.ErrSegmentation, err)
	}

	util.Logger.Debug("image processed",
		zap.Int("width", canvas.Rect.Dx()),
		zap.Int("height", canvas.Rect.Dy()),
		zap.Float64("foreground", mask.Coverage()))

	return &Result{Source: src, Canvas: canvas}, nil
}
