package repository

import "github.com/thirdjal/A10-cli-deploy/internal/domain"

// HistoryRepoIface 抽象历史仓库。
type HistoryRepoIface interface {
	InsertRun(*domain.RunHistory) error
	InsertDevice(*domain.DeviceHistory) error
	ListRecent(int) ([]domain.DeviceHistory, error)
	ListFiltered(int, string, string) ([]domain.DeviceHistory, error)
	ListRuns(int) ([]domain.RunHistory, error)
	Cleanup(int, int) error
	EnsureSchema() error
}

// 编译期断言本地实现满足接口
var _ HistoryRepoIface = (*HistoryRepo)(nil)
