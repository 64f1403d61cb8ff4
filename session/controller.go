package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chaos-io/cutout/matting"
	"github.com/chaos-io/cutout/segment"
	"github.com/chaos-io/cutout/util"
	"go.uber.org/zap"
)

// ModelState 模型就绪状态，由 segment.Loader 实现
type ModelState interface {
	State() segment.LoaderState
}

// Processor 图像流水线，由 matting.Processor 实现
type Processor interface {
	Process(ctx context.Context, data []byte, declared string) (*matting.Result, error)
}

// Upload 一次拖放的单个文件
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Layer 当前展示层的字节
type Layer struct {
	Name        string
	ContentType string
	Data        []byte
}

type Snapshot struct {
	ID             string    `json:"id"`
	State          State     `json:"state"`
	View           *View     `json:"view,omitempty"`
	Processing     bool      `json:"processing"`
	ModelReady     bool      `json:"model_ready"`
	Width          int       `json:"width,omitempty"`
	Height         int       `json:"height,omitempty"`
	OriginalWidth  int       `json:"original_width,omitempty"`
	OriginalHeight int       `json:"original_height,omitempty"`
	OriginalMIME   string    `json:"original_mime,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Controller 单个会话，所有状态修改都经过 Transition
type Controller struct {
	id    string
	model ModelState
	proc  Processor
	now   func() time.Time

	mu         sync.Mutex
	status     Status
	gen        uint64
	cancel     context.CancelFunc
	result     *matting.Result
	lastActive time.Time
}

func NewController(id string, model ModelState, proc Processor) *Controller {
	c := &Controller{
		id:     id,
		model:  model,
		proc:   proc,
		now:    time.Now,
		status: Status{State: StateModelLoading},
	}
	c.lastActive = c.now()
	c.mu.Lock()
	c.syncModel()
	c.mu.Unlock()
	return c
}

func (c *Controller) ID() string {
	return c.id
}

// Drop 处理一次上传；处理失败只记录日志，返回 Idle 快照
// 处理中再次上传会取消旧任务，旧任务返回 ErrSuperseded
func (c *Controller) Drop(ctx context.Context, up Upload) (Snapshot, error) {
	c.mu.Lock()
	c.touch()
	c.syncModel()
	if _, err := c.apply(EventDrop, nil, nil); err != nil {
		snap := c.snapshot()
		c.mu.Unlock()
		return snap, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.mu.Unlock()

	util.Logger.Info("processing upload",
		zap.String("session", c.id),
		zap.String("filename", up.Filename),
		zap.String("content_type", up.ContentType),
		zap.Int("size", len(up.Data)))

	res, err := c.run(runCtx, up)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	if gen != c.gen {
		util.Logger.Debug("discarding superseded result", zap.String("session", c.id))
		return c.snapshot(), ErrSuperseded
	}
	c.cancel = nil
	if err != nil {
		_, _ = c.apply(EventFailed, nil, err)
	} else {
		_, _ = c.apply(EventSucceeded, res, nil)
	}
	return c.snapshot(), nil
}

// run 执行流水线，panic 也转为错误，保证 processing 一定被清除
func (c *Controller) run(ctx context.Context, up Upload) (res *matting.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return c.proc.Process(ctx, up.Data, up.ContentType)
}

// Toggle 切换原图/结果视图，只读已有产物
func (c *Controller) Toggle() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.syncModel()
	_, err := c.apply(EventToggle, nil, nil)
	return c.snapshot(), err
}

// Reset 丢弃本次会话的全部产物
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.syncModel()
	_, _ = c.apply(EventReset, nil, nil)
	return c.snapshot()
}

// Download 原样导出合成画布为 PNG，不改变状态
func (c *Controller) Download() ([]byte, error) {
	c.mu.Lock()
	c.touch()
	if _, err := c.apply(EventDownload, nil, nil); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.result == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no result to export", ErrInvalidTransition)
	}
	canvas := c.result.Canvas
	c.mu.Unlock()

	// 画布发布后只读，可在锁外编码
	return matting.EncodePNG(canvas)
}

// View 返回当前展示层
func (c *Controller) View() (Layer, error) {
	c.mu.Lock()
	c.touch()
	if c.status.State != StateDisplaying || c.result == nil {
		state := c.status.State
		c.mu.Unlock()
		return Layer{}, fmt.Errorf("%w: nothing displayed in %s", ErrInvalidTransition, state)
	}
	view, res := c.status.View, c.result
	c.mu.Unlock()

	if view == ViewOriginal {
		return Layer{Name: "original", ContentType: res.Source.MIME, Data: res.Source.Bytes}, nil
	}
	data, err := matting.EncodePNG(res.Canvas)
	if err != nil {
		return Layer{}, err
	}
	return Layer{Name: matting.DownloadName, ContentType: matting.PNGMime, Data: data}, nil
}

// OriginalDataURI 原图的 data URI
func (c *Controller) OriginalDataURI() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	if c.status.State != StateDisplaying || c.result == nil {
		return "", fmt.Errorf("%w: no original in %s", ErrInvalidTransition, c.status.State)
	}
	return c.result.Source.DataURI(), nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncModel()
	return c.snapshot()
}

// Close 取消进行中的任务并丢弃产物，会话回到 Idle
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status.State {
	case StateProcessing, StateDisplaying:
		_, _ = c.apply(EventReset, nil, nil)
	}
	c.cancelRun()
	c.result = nil
}

// IdleSince 最后一次操作的时间
func (c *Controller) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Controller) touch() {
	c.lastActive = c.now()
}

func (c *Controller) syncModel() {
	if c.status.State != StateModelLoading || c.model == nil {
		return
	}
	switch c.model.State() {
	case segment.LoaderReady:
		_, _ = c.apply(EventModelReady, nil, nil)
	case segment.LoaderFailed:
		_, _ = c.apply(EventModelFailed, nil, nil)
	}
}

// apply 在持锁状态下执行迁移及副作用，EffectStartPipeline/EffectExport 由调用方处理
func (c *Controller) apply(ev Event, res *matting.Result, cause error) ([]Effect, error) {
	next, effects, err := Transition(c.status, ev)
	if err != nil {
		return nil, err
	}

	util.Logger.Debug("session transition",
		zap.String("session", c.id),
		zap.Stringer("event", ev),
		zap.Stringer("from", c.status.State),
		zap.Stringer("to", next.State))
	c.status = next

	for _, effect := range effects {
		switch effect {
		case EffectCancelPipeline:
			c.cancelRun()
		case EffectDiscardArtifacts:
			c.result = nil
		case EffectPublishArtifacts:
			c.result = res
		case EffectLogError:
			util.Logger.Error("failed to process image", zap.String("session", c.id), zap.Error(cause))
		}
	}
	return effects, nil
}

// cancelRun 取消进行中的任务，并使其结果失效
func (c *Controller) cancelRun() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		ID:         c.id,
		State:      c.status.State,
		Processing: c.status.State == StateProcessing,
		ModelReady: c.model != nil && c.model.State() == segment.LoaderReady,
		UpdatedAt:  c.lastActive,
	}
	if c.status.State == StateDisplaying && c.result != nil {
		view := c.status.View
		snap.View = &view
		snap.Width = c.result.Width()
		snap.Height = c.result.Height()
		snap.OriginalWidth = c.result.Source.Width()
		snap.OriginalHeight = c.result.Source.Height()
		snap.OriginalMIME = c.result.Source.MIME
	}
	return snap
}
