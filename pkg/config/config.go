package config

// 统一配置加载：默认值 -> TOML 文件 (可选) -> 环境变量 A10_*；
// main 解析 flag 后再覆盖个别字段。

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config 保存一次运行的全部参数。
type Config struct {
	HostsFile    string   `toml:"hosts_file"`    // 设备列表，每行一个
	CommandsFile string   `toml:"commands_file"` // 命令列表，每行一条
	WorkDir      string   `toml:"work_dir"`      // 固定工作根目录，相对路径都以此解析
	OutputDir    string   `toml:"output_dir"`    // 结果目录 (相对 WorkDir)
	Workers      int      `toml:"workers"`       // 并发 worker 数
	Timeout      Duration `toml:"timeout"`       // 单次 aXAPI 调用超时
	// InsecureSkipVerify 跳过设备证书校验 (默认 true，与旧脚本行为一致)
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	Username           string `toml:"username"` // 为空使用当前系统用户
	Domain             string `toml:"domain"`   // 非空时用户名为 DOMAIN\user

	DataDir              string   `toml:"data_dir"`               // 历史库目录
	History              bool     `toml:"history"`                // 是否记录运行历史 (sqlite)
	HistoryFlushInterval Duration `toml:"history_flush_interval"` // 历史批量写入间隔
	HistoryBatchSize     int      `toml:"history_batch_size"`
	HistoryRetentionDays int      `toml:"history_retention_days"`
	HistoryMaxRows       int      `toml:"history_max_rows"`

	MetricsFile string `toml:"metrics_file"` // 非空时运行结束写出 Prometheus textfile
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"` // text | json
}

// Duration 让 TOML 可以写 "30s" 这种字符串
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.Duration.String()), nil }

// Default 返回默认配置
func Default() *Config {
	return &Config{
		HostsFile:            "hosts.txt",
		CommandsFile:         "commands.txt",
		WorkDir:              ".",
		OutputDir:            "output",
		Workers:              5,
		Timeout:              Duration{30 * time.Second},
		InsecureSkipVerify:   true,
		DataDir:              "data",
		HistoryFlushInterval: Duration{2 * time.Second},
		HistoryBatchSize:     20,
		HistoryRetentionDays: 30,
		HistoryMaxRows:       10000,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// Load 读取配置。path 为空或文件不存在时只使用默认值与环境变量。
// 环境变量：
//
//	A10_HOSTS_FILE / A10_COMMANDS_FILE / A10_WORK_DIR / A10_OUTPUT_DIR
//	A10_WORKERS              并发数 (整数，默认 5)
//	A10_TIMEOUT              单次调用超时 (如 30s)
//	A10_INSECURE             true|false
//	A10_USERNAME / A10_DOMAIN
//	A10_DATA_DIR / A10_HISTORY / A10_METRICS_FILE
//	A10_LOG_LEVEL / A10_LOG_FORMAT
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	c.HostsFile = envOr("A10_HOSTS_FILE", c.HostsFile)
	c.CommandsFile = envOr("A10_COMMANDS_FILE", c.CommandsFile)
	c.WorkDir = envOr("A10_WORK_DIR", c.WorkDir)
	c.OutputDir = envOr("A10_OUTPUT_DIR", c.OutputDir)
	c.Workers = envInt("A10_WORKERS", c.Workers)
	c.Timeout.Duration = envDuration("A10_TIMEOUT", c.Timeout.Duration)
	c.InsecureSkipVerify = envBool("A10_INSECURE", c.InsecureSkipVerify)
	c.Username = envOr("A10_USERNAME", c.Username)
	c.Domain = envOr("A10_DOMAIN", c.Domain)
	c.DataDir = envOr("A10_DATA_DIR", c.DataDir)
	c.History = envBool("A10_HISTORY", c.History)
	c.MetricsFile = envOr("A10_METRICS_FILE", c.MetricsFile)
	c.LogLevel = envOr("A10_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("A10_LOG_FORMAT", c.LogFormat)
	return c, nil
}

// Validate 检查明显错误的取值
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output dir empty")
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout.Duration)
	}
	return nil
}

// Resolve 把相对路径解析到 WorkDir 下
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkDir, p)
}

// DBPath 返回 sqlite 文件路径。
func (c *Config) DBPath() string { return filepath.Join(c.Resolve(c.DataDir), "history.db") }

// Helpers
func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
