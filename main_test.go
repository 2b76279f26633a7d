package main

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
	"github.com/thirdjal/A10-cli-deploy/internal/repository"
)

func TestRun_BadFlag(t *testing.T) {
	require.Equal(t, 2, run([]string{"-nope"}))
}

func TestRun_InvalidWorkers(t *testing.T) {
	require.Equal(t, 1, run([]string{"-workers", "0"}))
}

func TestRun_MissingOutputDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("A10_WORK_DIR", dir)
	t.Setenv("A10_PASSWORD", "x")
	t.Setenv("A10_USERNAME", "admin")
	// 结果目录不存在：清理失败，运行中止
	require.Equal(t, 1, run([]string{"-output", "missing"}))
}

func TestPrintHistory(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	hRepo := repository.NewHistoryRepo(db)
	require.NoError(t, hRepo.EnsureSchema())

	now := time.Now()
	require.NoError(t, hRepo.InsertRun(&domain.RunHistory{ID: "run-1", Targets: 2, Failed: 1, Commands: 3, StartedAt: now, FinishedAt: now, DurationMs: 1500}))
	require.NoError(t, hRepo.InsertDevice(&domain.DeviceHistory{RunID: "run-1", Host: "10.0.0.1", Stage: "done", StatusCode: 200, Bytes: 2048}))
	require.NoError(t, hRepo.InsertDevice(&domain.DeviceHistory{RunID: "run-1", Host: "10.0.0.2", Stage: "authenticating", ErrorText: "authentication failed"}))
	require.NoError(t, hRepo.InsertDevice(&domain.DeviceHistory{RunID: "other", Host: "10.0.0.9", Stage: "done"}))

	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, hRepo, 5))
	out := buf.String()
	require.Contains(t, out, "run run-1")
	require.Contains(t, out, "failed=1")
	require.Contains(t, out, "took=1.5s")
	require.Contains(t, out, "10.0.0.1")
	require.Contains(t, out, "2.0 kB")
	require.Contains(t, out, "authentication failed")
	require.NotContains(t, out, "10.0.0.9")
	require.Equal(t, 3, strings.Count(out, "\n"))
}

func TestRun_HistoryFlagEmptyStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("A10_WORK_DIR", dir)
	require.Equal(t, 0, run([]string{"-history", "3"}))
	require.FileExists(t, filepath.Join(dir, "data", "history.db"))
}
