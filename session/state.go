// Package session 管理单次上传-处理-展示会话的状态机
package session

import (
	"errors"
	"fmt"

	"github.com/chaos-io/cutout/segment"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrSuperseded        = errors.New("processing superseded by a newer upload")
	ErrSessionNotFound   = errors.New("session not found")
)

type State int

const (
	StateModelLoading State = iota
	StateIdle
	StateProcessing
	StateDisplaying
	// StateUnavailable 模型加载失败，整个进程生命周期内不再处理
	StateUnavailable
)

var stateNames = map[State]string{
	StateModelLoading: "model_loading",
	StateIdle:         "idle",
	StateProcessing:   "processing",
	StateDisplaying:   "displaying",
	StateUnavailable:  "unavailable",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type View int

const (
	ViewProcessed View = iota
	ViewOriginal
)

func (v View) String() string {
	if v == ViewOriginal {
		return "original"
	}
	return "processed"
}

func (v View) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

type Event int

const (
	EventModelReady Event = iota
	EventModelFailed
	EventDrop
	EventSucceeded
	EventFailed
	EventToggle
	EventReset
	EventDownload
)

var eventNames = map[Event]string{
	EventModelReady:  "model_ready",
	EventModelFailed: "model_failed",
	EventDrop:        "drop",
	EventSucceeded:   "succeeded",
	EventFailed:      "failed",
	EventToggle:      "toggle",
	EventReset:       "reset",
	EventDownload:    "download",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Effect 状态迁移要求控制器执行的副作用
type Effect int

const (
	EffectStartPipeline Effect = iota
	EffectCancelPipeline
	EffectDiscardArtifacts
	EffectPublishArtifacts
	EffectLogError
	EffectExport
)

// Status 状态 + 当前视图，视图只在 Displaying 下有意义
type Status struct {
	State State
	View  View
}

// Transition 纯函数：(当前状态, 事件) -> (新状态, 副作用)
// 不允许的事件返回错误，状态保持不变
func Transition(cur Status, ev Event) (Status, []Effect, error) {
	switch ev {
	case EventModelReady:
		if cur.State == StateModelLoading {
			return Status{State: StateIdle}, nil, nil
		}
	case EventModelFailed:
		if cur.State == StateModelLoading {
			return Status{State: StateUnavailable}, nil, nil
		}
	case EventDrop:
		switch cur.State {
		case StateModelLoading, StateUnavailable:
			return cur, nil, segment.ErrModelNotReady
		case StateIdle:
			return Status{State: StateProcessing}, []Effect{EffectStartPipeline}, nil
		case StateProcessing:
			// 取消旧任务后重新开始
			return Status{State: StateProcessing},
				[]Effect{EffectCancelPipeline, EffectDiscardArtifacts, EffectStartPipeline}, nil
		case StateDisplaying:
			return Status{State: StateProcessing},
				[]Effect{EffectDiscardArtifacts, EffectStartPipeline}, nil
		}
	case EventSucceeded:
		if cur.State == StateProcessing {
			return Status{State: StateDisplaying, View: ViewProcessed}, []Effect{EffectPublishArtifacts}, nil
		}
	case EventFailed:
		if cur.State == StateProcessing {
			return Status{State: StateIdle}, []Effect{EffectDiscardArtifacts, EffectLogError}, nil
		}
	case EventToggle:
		if cur.State == StateDisplaying {
			next := cur
			if cur.View == ViewProcessed {
				next.View = ViewOriginal
			} else {
				next.View = ViewProcessed
			}
			return next, nil, nil
		}
	case EventReset:
		switch cur.State {
		case StateIdle:
			return cur, nil, nil
		case StateProcessing:
			return Status{State: StateIdle}, []Effect{EffectCancelPipeline, EffectDiscardArtifacts}, nil
		case StateDisplaying:
			return Status{State: StateIdle}, []Effect{EffectDiscardArtifacts}, nil
		}
	case EventDownload:
		if cur.State == StateDisplaying {
			return cur, []Effect{EffectExport}, nil
		}
	}
	return cur, nil, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, cur.State)
}
