package domain

import "errors"

// ErrSetup 输出目录不存在/不可读或无法清理，运行在派发前中止
var ErrSetup = errors.New("setup failed")

// ErrAuth 登录失败、超时或响应中没有 signature
var ErrAuth = errors.New("authentication failed")

// ErrDeploy clideploy 调用传输层失败 (任何 HTTP 状态码都不算失败)
var ErrDeploy = errors.New("deploy failed")

// ErrLogoff logoff 失败，仅记录，不影响设备结果
var ErrLogoff = errors.New("logoff failed")

// ErrSession 会话过程中 panic，被 worker 恢复并记为失败
var ErrSession = errors.New("session aborted")
