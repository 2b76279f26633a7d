package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
)

func TestObserveSession(t *testing.T) {
	m := New()
	now := time.Now()
	m.ObserveSession(domain.SessionResult{Payload: []byte("12345"), FailedAt: domain.StateDone, StartedAt: now, FinishedAt: now.Add(time.Second)})
	m.ObserveSession(domain.SessionResult{Err: errors.New("x"), FailedAt: domain.StateAuthenticating, StartedAt: now, FinishedAt: now})

	require.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues("ok", "done")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues("failed", "authenticating")))
	require.Equal(t, 5.0, testutil.ToFloat64(m.bytes))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveRun(3, 2*time.Second)
	p := filepath.Join(t.TempDir(), "a10deploy.prom")
	require.NoError(t, m.WriteTextfile(p))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(b), "a10deploy_last_run_targets 3")
	require.Contains(t, string(b), "a10deploy_last_run_duration_seconds 2")
}
