package axapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
)

// MockClient 用于测试：按 host 预设结果并记录调用
type MockClient struct {
	mu      sync.Mutex
	scripts map[string]MockResult // key: host
	calls   []string
	active  int
	peak    int
}

type MockResult struct {
	Payload    string
	StatusCode int
	AuthErr    bool   // 登录阶段失败
	DeployErr  bool   // clideploy 传输失败
	Panic      string // 非空时直接 panic
	DelayMs    int
}

func NewMockClient() *MockClient { return &MockClient{scripts: map[string]MockResult{}} }

func (m *MockClient) Set(host string, res MockResult) {
	m.mu.Lock()
	m.scripts[host] = res
	m.mu.Unlock()
}

// Calls 返回被调用过的 host (按调用顺序)
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Peak 同时执行中的会话数峰值
func (m *MockClient) Peak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

func (m *MockClient) Run(ctx context.Context, t domain.Target, cred domain.Credential, batch domain.CommandBatch) domain.SessionResult {
	m.mu.Lock()
	m.calls = append(m.calls, t.Host)
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	r, ok := m.scripts[t.Host]
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	res := domain.SessionResult{Target: t, StartedAt: time.Now()}
	if !ok {
		// 未预设：回显命令列表
		r = MockResult{Payload: fmt.Sprintf("%s %s", t.Host, batch), StatusCode: 200}
	}
	if r.DelayMs > 0 {
		select {
		case <-ctx.Done():
			res.Err = fmt.Errorf("%w: %s: %v", domain.ErrAuth, t.Host, ctx.Err())
			res.FailedAt = domain.StateAuthenticating
			res.FinishedAt = time.Now()
			return res
		case <-time.After(time.Duration(r.DelayMs) * time.Millisecond):
		}
	}
	if r.Panic != "" {
		panic(r.Panic)
	}
	switch {
	case r.AuthErr:
		res.Err = fmt.Errorf("%w: %s: mock", domain.ErrAuth, t.Host)
		res.FailedAt = domain.StateAuthenticating
	case r.DeployErr:
		res.Err = fmt.Errorf("%w: %s: mock", domain.ErrDeploy, t.Host)
		res.FailedAt = domain.StateDeploying
	default:
		res.Payload = []byte(r.Payload)
		res.StatusCode = r.StatusCode
		res.FailedAt = domain.StateDone
	}
	res.FinishedAt = time.Now()
	return res
}
