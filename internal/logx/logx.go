// Package logx 创建项目统一使用的 logrus 日志器。
package logx

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New 按 level / format 创建独立的日志器，不修改全局 logger
func New(levelStr, formatStr string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if formatStr == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	}
	return l
}
