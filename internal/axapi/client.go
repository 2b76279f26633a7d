// Package axapi 实现对 A10 设备 aXAPI v3 的单设备会话：
// auth -> clideploy -> logoff。
package axapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"resty.dev/v3"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
)

// aXAPI v3 端点与默认单次调用超时
const (
	AuthPath   = "/axapi/v3/auth"
	DeployPath = "/axapi/v3/clideploy/"
	LogoffPath = "/axapi/v3/logoff"

	// AuthScheme Authorization 头的前缀: "A10 <signature>"
	AuthScheme = "A10"

	DefaultTimeout = 30 * time.Second
)

// Options 客户端参数
type Options struct {
	Timeout time.Duration // 单次调用超时，<=0 使用 DefaultTimeout
	// InsecureSkipVerify 跳过设备证书校验。设备普遍使用自签证书，默认开启；
	// 这是已知的安全弱点，可通过配置关闭。
	InsecureSkipVerify bool
	Scheme             string // 默认 https
	Log                logrus.FieldLogger
}

// Client 所有 worker 共享一个 Client (连接池、TLS 配置、超时)
type Client struct {
	rc       *resty.Client
	scheme   string
	insecure bool
	log      logrus.FieldLogger
}

func NewClient(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Scheme == "" {
		o.Scheme = "https"
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	rc := resty.New().
		SetLogger(o.Log).
		SetTimeout(o.Timeout).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: o.InsecureSkipVerify}) //nolint:gosec // 由配置显式控制
	return &Client{rc: rc, scheme: o.Scheme, insecure: o.InsecureSkipVerify, log: o.Log}
}

// InsecureSkipVerify 是否跳过证书校验
func (c *Client) InsecureSkipVerify() bool { return c.insecure }

// Close 关闭空闲连接并释放 resty 客户端，只能调用一次
func (c *Client) Close() error {
	c.rc.Client().CloseIdleConnections()
	return c.rc.Close()
}

type authRequest struct {
	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"credentials"`
}

type authResponse struct {
	AuthResponse *struct {
		Signature string `json:"signature"`
	} `json:"authresponse"`
}

type deployRequest struct {
	CommandList []string `json:"commandList"`
}

// Run 对一台设备执行完整会话。任何预期内的失败都通过 SessionResult.Err 返回，不会 panic。
// signature 只存在于本次调用的局部变量中。
func (c *Client) Run(ctx context.Context, t domain.Target, cred domain.Credential, batch domain.CommandBatch) domain.SessionResult {
	log := c.log.WithField("host", t.Host)
	res := domain.SessionResult{Target: t, StartedAt: time.Now(), FailedAt: domain.StateIdle}
	finish := func(state domain.SessionState, err error) domain.SessionResult {
		res.FailedAt = state
		res.Err = err
		res.FinishedAt = time.Now()
		return res
	}

	log.Infof("Connecting to %s.", t.Host)
	log.Debugf("session %s", domain.StateAuthenticating)
	sig, err := c.login(ctx, t, cred)
	if err != nil {
		return finish(domain.StateAuthenticating, err)
	}
	log.Debugf("session %s", domain.StateAuthenticated)

	log.Debugf("session %s", domain.StateDeploying)
	body, code, err := c.deploy(ctx, t, sig, batch)
	if err != nil {
		return finish(domain.StateDeploying, err)
	}
	res.Payload = body
	res.StatusCode = code
	log.Debugf("session %s (status %d)", domain.StateDeployed, code)

	log.Debugf("session %s", domain.StateLoggingOff)
	log.Info("Log off")
	if err := c.logoff(ctx, t, sig); err != nil {
		log.WithError(err).Warn("logoff failed, ignored")
	}
	return finish(domain.StateDone, nil)
}

func (c *Client) url(t domain.Target, path string) string {
	return c.scheme + "://" + strings.TrimRight(t.Host, "/") + path
}

func (c *Client) login(ctx context.Context, t domain.Target, cred domain.Credential) (string, error) {
	var body authRequest
	body.Credentials.Username = cred.Username
	body.Credentials.Password = cred.Password
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.url(t, AuthPath))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrAuth, t.Host, err)
	}
	var ar authResponse
	if err := json.Unmarshal(resp.Bytes(), &ar); err != nil {
		return "", fmt.Errorf("%w: %s: status %d, unparseable response: %v", domain.ErrAuth, t.Host, resp.StatusCode(), err)
	}
	if ar.AuthResponse == nil || ar.AuthResponse.Signature == "" {
		return "", fmt.Errorf("%w: %s: status %d, no signature in response", domain.ErrAuth, t.Host, resp.StatusCode())
	}
	return ar.AuthResponse.Signature, nil
}

func (c *Client) deploy(ctx context.Context, t domain.Target, sig string, batch domain.CommandBatch) ([]byte, int, error) {
	cmds := []string(batch)
	if cmds == nil {
		cmds = []string{}
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", AuthScheme+" "+sig).
		SetBody(deployRequest{CommandList: cmds}).
		Post(c.url(t, DeployPath))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", domain.ErrDeploy, t.Host, err)
	}
	return resp.Bytes(), resp.StatusCode(), nil
}

func (c *Client) logoff(ctx context.Context, t domain.Target, sig string) error {
	_, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", AuthScheme+" "+sig).
		Post(c.url(t, LogoffPath))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrLogoff, t.Host, err)
	}
	return nil
}
