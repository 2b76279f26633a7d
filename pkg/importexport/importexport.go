// Package importexport 读取主机列表与命令列表这类按行组织的文本文件。
package importexport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
)

// LoadLines 读取文件并按行拆分，每行去掉行尾空白。
// 文件不存在时返回空列表而不是错误；空行原样保留。
func LoadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseLines(data), nil
}

// ParseLines 拆分文本，单行长度不设上限。末尾换行不会产生额外的空行。
func ParseLines(data []byte) []string {
	out := []string{}
	r := bufio.NewReader(bytes.NewReader(data))
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			out = append(out, strings.TrimRight(line, " \t\r\n\v\f"))
		}
		if err != nil {
			// bytes.Reader 只会返回 io.EOF
			return out
		}
	}
}

// LoadTargets 读取主机列表
func LoadTargets(path string) ([]domain.Target, error) {
	lines, err := LoadLines(path)
	if err != nil {
		return nil, err
	}
	return domain.Targets(lines), nil
}

// LoadBatch 读取命令列表
func LoadBatch(path string) (domain.CommandBatch, error) {
	lines, err := LoadLines(path)
	if err != nil {
		return nil, err
	}
	return domain.CommandBatch(lines), nil
}

// DuplicateHosts 返回重复出现的主机 (每个只出现一次)
func DuplicateHosts(ts []domain.Target) []string {
	return lo.FindDuplicates(lo.Map(ts, func(t domain.Target, _ int) string { return t.Host }))
}
