package session

import (
	"context"
	"sync"
	"time"

	"github.com/chaos-io/cutout/util"
	"github.com/robfig/cron/v3"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// Manager 管理所有会话，并定期清理长时间无操作的会话
type Manager struct {
	model   ModelState
	proc    Processor
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Controller

	cron *cron.Cron
}

func NewManager(model ModelState, proc Processor, idleTTL time.Duration) *Manager {
	return &Manager{
		model:    model,
		proc:     proc,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*Controller),
	}
}

func (m *Manager) Create() *Controller {
	c := NewController(ksuid.New().String(), m.model, m.proc)
	c.now = m.now
	c.lastActive = m.now()

	m.mu.Lock()
	m.sessions[c.ID()] = c
	m.mu.Unlock()

	util.Logger.Debug("session created", zap.String("session", c.ID()))
	return c
}

func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	c.Close()
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep 删除空闲超过 idleTTL 的会话，返回删除数量
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	deadline := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Controller
	for id, c := range m.sessions {
		if c.IdleSince().Before(deadline) {
			expired = append(expired, c)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	return len(expired)
}

// StartSweeper 按 cron 表达式定期执行 Sweep
func (m *Manager) StartSweeper(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := m.Sweep(); n > 0 {
			util.Logger.Info("idle sessions swept", zap.Int("count", n), zap.Int("remaining", m.Len()))
		}
	})
	if err != nil {
		return err
	}
	m.cron = c
	c.Start()
	return nil
}

// Stop 停止清理任务并关闭所有会话
func (m *Manager) Stop() context.Context {
	var ctx context.Context
	if m.cron != nil {
		ctx = m.cron.Stop()
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		cancel()
	}

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
	return ctx
}
