package domain

import "time"

// DeviceHistory 记录一次运行中某台设备的会话元数据 (不含响应体与凭据)
type DeviceHistory struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Host       string    `json:"host"`
	Stage      string    `json:"stage"`
	StatusCode int       `json:"status_code"`
	Bytes      int64     `json:"bytes"`
	OutputPath string    `json:"output_path,omitempty"`
	ErrorText  string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
}

// RunHistory 一次完整运行的汇总
type RunHistory struct {
	ID         string    `json:"id"`
	Targets    int       `json:"targets"`
	Failed     int       `json:"failed"`
	Commands   int       `json:"commands"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
}

// NewDeviceHistory 由会话结果生成历史记录
func NewDeviceHistory(runID string, r SessionResult, outputPath string) DeviceHistory {
	h := DeviceHistory{
		RunID:      runID,
		Host:       r.Target.Host,
		Stage:      r.FailedAt.String(),
		StatusCode: r.StatusCode,
		Bytes:      int64(len(r.Payload)),
		OutputPath: outputPath,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
	}
	if r.Err != nil {
		h.ErrorText = r.Err.Error()
	}
	return h
}
