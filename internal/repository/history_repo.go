package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
)

type HistoryRepo struct{ db *sql.DB }

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// EnsureSchema 建表，可重复调用
func (r *HistoryRepo) EnsureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs(
			id TEXT PRIMARY KEY,
			targets INTEGER,
			failed INTEGER,
			commands INTEGER,
			started_at TIMESTAMP,
			finished_at TIMESTAMP,
			duration_ms INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS device_results(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			host TEXT,
			stage TEXT,
			status_code INTEGER,
			bytes INTEGER,
			output_path TEXT,
			error_text TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_device_results_run ON device_results(run_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (r *HistoryRepo) InsertRun(h *domain.RunHistory) error {
	now := time.Now()
	if h.StartedAt.IsZero() {
		h.StartedAt = now
	}
	if h.FinishedAt.IsZero() {
		h.FinishedAt = now
	}
	_, err := r.db.Exec(`INSERT INTO runs(id,targets,failed,commands,started_at,finished_at,duration_ms) VALUES (?,?,?,?,?,?,?)`,
		h.ID, h.Targets, h.Failed, h.Commands, h.StartedAt.UTC(), h.FinishedAt.UTC(), h.DurationMs)
	return err
}

func (r *HistoryRepo) InsertDevice(h *domain.DeviceHistory) error {
	now := time.Now()
	if h.StartedAt.IsZero() {
		h.StartedAt = now
	}
	if h.FinishedAt.IsZero() {
		h.FinishedAt = now
	}
	res, err := r.db.Exec(`INSERT INTO device_results(run_id,host,stage,status_code,bytes,output_path,error_text,started_at,finished_at,duration_ms)
        VALUES (?,?,?,?,?,?,?,?,?,?)`, h.RunID, h.Host, h.Stage, h.StatusCode, h.Bytes, h.OutputPath, h.ErrorText, h.StartedAt.UTC(), h.FinishedAt.UTC(), h.DurationMs)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	h.ID = id
	return nil
}

const deviceCols = `id,run_id,host,stage,status_code,bytes,output_path,error_text,started_at,finished_at,duration_ms`

func (r *HistoryRepo) ListRecent(limit int) ([]domain.DeviceHistory, error) {
	return r.ListFiltered(limit, "", "")
}

// ListFiltered 按 run_id 精确、host 模糊过滤。传空表示忽略该条件。
func (r *HistoryRepo) ListFiltered(limit int, runID, hostLike string) ([]domain.DeviceHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var where strings.Builder
	args := []any{}
	if runID != "" {
		where.WriteString(" AND run_id = ?")
		args = append(args, runID)
	}
	if hostLike != "" {
		where.WriteString(" AND host LIKE ?")
		args = append(args, "%"+hostLike+"%")
	}
	q := `SELECT ` + deviceCols + ` FROM device_results WHERE 1=1` + where.String() + ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.DeviceHistory
	for rows.Next() {
		var h domain.DeviceHistory
		var out, errText sql.NullString
		if err := rows.Scan(&h.ID, &h.RunID, &h.Host, &h.Stage, &h.StatusCode, &h.Bytes, &out, &errText, &h.StartedAt, &h.FinishedAt, &h.DurationMs); err != nil {
			return nil, err
		}
		h.OutputPath, h.ErrorText = out.String, errText.String
		list = append(list, h)
	}
	return list, rows.Err()
}

func (r *HistoryRepo) ListRuns(limit int) ([]domain.RunHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT id,targets,failed,commands,started_at,finished_at,duration_ms FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.RunHistory
	for rows.Next() {
		var h domain.RunHistory
		if err := rows.Scan(&h.ID, &h.Targets, &h.Failed, &h.Commands, &h.StartedAt, &h.FinishedAt, &h.DurationMs); err != nil {
			return nil, err
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

// Cleanup 根据保留天数与最大行数裁剪
func (r *HistoryRepo) Cleanup(retentionDays, maxRows int) error {
	if retentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		if _, err := r.db.Exec(`DELETE FROM device_results WHERE started_at < ?`, cutoff); err != nil {
			return err
		}
		if _, err := r.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff); err != nil {
			return err
		}
	}
	if maxRows > 0 {
		// 删除超过 maxRows 的最旧行
		if _, err := r.db.Exec(`DELETE FROM device_results WHERE id IN (SELECT id FROM device_results ORDER BY id DESC LIMIT -1 OFFSET ?)`, maxRows); err != nil {
			return err
		}
	}
	return nil
}
