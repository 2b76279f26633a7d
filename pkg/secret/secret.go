// Package secret 负责获取 aXAPI 登录凭据：用户名来自配置或当前系统用户，
// 密码来自环境变量或终端无回显输入。凭据只存在于内存中。
package secret

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"golang.org/x/term"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
)

// PasswordEnv 非交互运行时从该变量读取密码
const PasswordEnv = "A10_PASSWORD"

// ErrNoPassword 没有拿到密码
var ErrNoPassword = errors.New("no password provided")

// Prompter 读取凭据所需的输入输出。零值字段使用进程的 stdin/stderr。
type Prompter struct {
	In     io.Reader
	Out    io.Writer
	Getenv func(string) string
	// IsTerminal / ReadPassword 可替换，测试时不依赖真实终端
	IsTerminal   func(fd int) bool
	ReadPassword func(fd int) ([]byte, error)
	CurrentUser  func() (string, error)
}

func (p *Prompter) defaults() {
	if p.In == nil {
		p.In = os.Stdin
	}
	if p.Out == nil {
		p.Out = os.Stderr
	}
	if p.Getenv == nil {
		p.Getenv = os.Getenv
	}
	if p.IsTerminal == nil {
		p.IsTerminal = term.IsTerminal
	}
	if p.ReadPassword == nil {
		p.ReadPassword = term.ReadPassword
	}
	if p.CurrentUser == nil {
		p.CurrentUser = currentUser
	}
}

// Username 计算登录用户名。domain 非空时为 DOMAIN\user。
func (p *Prompter) Username(name, domainName string) (string, error) {
	p.defaults()
	if strings.TrimSpace(name) == "" {
		u, err := p.CurrentUser()
		if err != nil {
			return "", fmt.Errorf("lookup current user: %w", err)
		}
		name = u
	}
	// Windows 上 os/user 返回 DOMAIN\user，已带前缀时不再重复
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}
	if domainName == "" {
		return name, nil
	}
	return domainName + `\` + name, nil
}

// Password 优先环境变量；否则终端无回显读取，stdin 不是终端时按行读取。
func (p *Prompter) Password(username string) (string, error) {
	p.defaults()
	if v := p.Getenv(PasswordEnv); v != "" {
		return v, nil
	}
	fmt.Fprintf(p.Out, "Password for %s: ", username)
	if f, ok := p.In.(*os.File); ok && p.IsTerminal(int(f.Fd())) {
		b, err := p.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if len(b) == 0 {
			return "", ErrNoPassword
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", ErrNoPassword
	}
	return line, nil
}

// Credential 组合用户名与密码
func (p *Prompter) Credential(name, domainName string) (domain.Credential, error) {
	u, err := p.Username(name, domainName)
	if err != nil {
		return domain.Credential{}, err
	}
	pw, err := p.Password(u)
	if err != nil {
		return domain.Credential{}, err
	}
	return domain.Credential{Username: u, Password: pw}, nil
}

func currentUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}
