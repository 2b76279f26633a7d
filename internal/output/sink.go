// Package output 管理结果目录：运行前清空，运行中按设备追加写入 <host>.txt。
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
)

// Sink 结果目录。所有路径都相对固定的工作根目录解析。
type Sink struct {
	dir string // 绝对路径
	log logrus.FieldLogger
}

// NewSink 把 dir 相对 root 解析为绝对路径；dir 本身为绝对路径时直接使用
func NewSink(root, dir string, log logrus.FieldLogger) (*Sink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: output dir empty", domain.ErrSetup)
	}
	if root == "" {
		root = "."
	}
	p := dir
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, dir)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", domain.ErrSetup, dir, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sink{dir: abs, log: log}, nil
}

// Dir 结果目录的绝对路径
func (s *Sink) Dir() string { return s.dir }

// Clear 删除结果目录下的全部内容。目录不存在或任一文件删除失败都返回 ErrSetup。
func (s *Sink) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("%w: read output dir: %v", domain.ErrSetup, err)
	}
	for _, e := range entries {
		p := filepath.Join(s.dir, e.Name())
		s.log.Infof("Cleaning up %s.", p)
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("%w: remove %s: %v", domain.ErrSetup, p, err)
		}
	}
	return nil
}

// Path 返回 name 对应的结果文件路径，保证落在结果目录内
func (s *Sink) Path(name string) string {
	return filepath.Join(s.dir, safeName(name)+".txt")
}

// Write 以追加方式写入 <name>.txt，文件不存在则创建，返回文件绝对路径
func (s *Sink) Write(name string, payload []byte) (string, error) {
	p := s.Path(name)
	if filepath.Dir(p) != s.dir {
		return "", fmt.Errorf("result path %s escapes %s", p, s.dir)
	}
	f, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", p, err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", p, err)
	}
	return p, nil
}

// safeName 把设备名里的路径分隔符和 ".." 替换掉，避免写出结果目录
func safeName(name string) string {
	r := strings.NewReplacer("/", "_", `\`, "_", "..", "__")
	n := r.Replace(name)
	if n == "" || n == "." {
		n = "_"
	}
	return n
}
