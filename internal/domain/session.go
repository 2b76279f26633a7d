package domain

import "time"

// SessionState 单台设备会话所处阶段
// IDLE -> AUTHENTICATING -> AUTHENTICATED -> DEPLOYING -> DEPLOYED -> LOGGING_OFF -> DONE
type SessionState int

const (
	StateIdle SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateDeploying
	StateDeployed
	StateLoggingOff
	StateDone
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateDeploying:
		return "deploying"
	case StateDeployed:
		return "deployed"
	case StateLoggingOff:
		return "logging_off"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// SessionResult 一次 auth -> clideploy -> logoff 的结果
type SessionResult struct {
	Target     Target
	Payload    []byte       // clideploy 原始响应体 (Result Record)
	StatusCode int          // clideploy HTTP 状态码，任何状态都视为完成
	Err        error        // nil 表示成功
	FailedAt   SessionState // 失败时所处阶段；成功为 StateDone
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r SessionResult) OK() bool { return r.Err == nil }

func (r SessionResult) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
