package domain

import "strings"

// Target 一台待下发配置的设备 (主机名或 IP，可带端口)
type Target struct {
	Host string `json:"host"`
}

func (t Target) String() string { return t.Host }

// Targets 把主机列表转为 Target 列表，顺序不变
func Targets(hosts []string) []Target {
	out := make([]Target, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, Target{Host: h})
	}
	return out
}

// CommandBatch 一次 clideploy 调用下发的完整命令列表；运行期间只读
type CommandBatch []string

func (b CommandBatch) String() string { return "[" + strings.Join(b, ", ") + "]" }

// Credential aXAPI 登录凭据，整个运行期间只读，不落盘也不打印
type Credential struct {
	Username string
	Password string `json:"-"`
}

func (c Credential) String() string { return c.Username + ":******" }

// GoString 防止 %#v 泄露密码
func (c Credential) GoString() string {
	return `domain.Credential{Username:"` + c.Username + `", Password:"******"}`
}
