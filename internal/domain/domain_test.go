package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCredential_NeverPrintsPassword(t *testing.T) {
	c := Credential{Username: `GME\ops`, Password: "s3cret"}
	for _, s := range []string{fmt.Sprint(c), fmt.Sprintf("%v", c), fmt.Sprintf("%+v", c), fmt.Sprintf("%#v", c)} {
		require.NotContains(t, s, "s3cret")
		require.Contains(t, s, "ops")
	}
}

func TestTargets_KeepsOrderAndDuplicates(t *testing.T) {
	ts := Targets([]string{"10.0.0.1", "10.0.0.2", "10.0.0.1"})
	require.Len(t, ts, 3)
	require.Equal(t, "10.0.0.1", ts[2].Host)
}

func TestNewDeviceHistory(t *testing.T) {
	start := time.Now()
	r := SessionResult{
		Target:     Target{Host: "10.0.0.1"},
		Err:        fmt.Errorf("%w: no signature", ErrAuth),
		FailedAt:   StateAuthenticating,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
	h := NewDeviceHistory("run-1", r, "")
	require.Equal(t, "authenticating", h.Stage)
	require.Equal(t, int64(1500), h.DurationMs)
	require.Contains(t, h.ErrorText, "no signature")
	require.True(t, errors.Is(r.Err, ErrAuth))
	require.False(t, r.OK())
}
