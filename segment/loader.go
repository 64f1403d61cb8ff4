package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/chaos-io/cutout/util"
	"go.uber.org/zap"
)

type LoaderState int

const (
	LoaderLoading LoaderState = iota
	LoaderReady
	LoaderFailed
)

func (s LoaderState) String() string {
	switch s {
	case LoaderLoading:
		return "loading"
	case LoaderReady:
		return "ready"
	case LoaderFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoaderState(%d)", int(s))
	}
}

// Loader 启动时异步获取一次模型，失败后不重试
type Loader struct {
	backend Backend
	cfg     ModelConfig
	timeout time.Duration

	once sync.Once
	done chan struct{}

	mu        sync.RWMutex
	state     LoaderState
	segmenter Segmenter
	err       error
}

func NewLoader(backend Backend, cfg ModelConfig, timeout time.Duration) *Loader {
	return &Loader{
		backend: backend,
		cfg:     cfg,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Start 在后台加载模型，重复调用无效
func (l *Loader) Start(ctx context.Context) {
	l.once.Do(func() {
		go l.load(ctx)
	})
}

// Run 同步加载，供 errgroup 使用；加载失败不作为错误返回
func (l *Loader) Run(ctx context.Context) error {
	l.Start(ctx)
	select {
	case <-l.done:
	case <-ctx.Done():
	}
	return nil
}

func (l *Loader) load(ctx context.Context) {
	defer close(l.done)
	defer util.Trace("load model", zap.String("architecture", l.cfg.Architecture))()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	seg, err := l.backend.Load(ctx, l.cfg)
	switch {
	case err == nil && seg == nil:
		err = fmt.Errorf("%w: backend returned no model", ErrModelLoad)
	case err != nil && !errors.Is(err, ErrModelLoad):
		err = fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = LoaderFailed
		l.err = err
		util.Logger.Error("failed to load segmentation model", zap.Error(err))
		return
	}
	l.state = LoaderReady
	l.segmenter = seg
	util.Logger.Info("segmentation model ready",
		zap.String("architecture", l.cfg.Architecture),
		zap.Int("output_stride", l.cfg.OutputStride),
		zap.Int("quant_bytes", l.cfg.QuantBytes))
}

func (l *Loader) State() LoaderState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Loader) Ready() bool {
	return l.State() == LoaderReady
}

// Err 加载失败的原因
func (l *Loader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Done 加载结束（成功或失败）后关闭
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Wait 等待加载结束并返回可用的 Segmenter
func (l *Loader) Wait(ctx context.Context) (Segmenter, error) {
	select {
	case <-l.done:
		return l.Segmenter()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) Segmenter() (Segmenter, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch l.state {
	case LoaderReady:
		return l.segmenter, nil
	case LoaderFailed:
		return nil, l.err
	default:
		return nil, ErrModelNotReady
	}
}

// SegmentPerson 未就绪时直接拒绝
func (l *Loader) SegmentPerson(ctx context.Context, img image.Image, opts Options) (*Mask, error) {
	seg, err := l.Segmenter()
	if err != nil {
		return nil, err
	}
	return seg.SegmentPerson(ctx, img, opts)
}
