package task

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xybclock/internal/capture"
	"xybclock/internal/common/apierrors"
	"xybclock/internal/common/config"
	"xybclock/internal/common/logger"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func captureConfig(t *testing.T, timeoutMs int) config.CaptureConfig {
	t.Helper()
	return config.CaptureConfig{
		Host:     "127.0.0.1",
		Port:     freePort(t),
		CodeFile: filepath.Join(t.TempDir(), "code.json"),
		Timeout:  timeoutMs,
	}
}

func TestCaptureTaskRemovesStaleCodeAndTimesOut(t *testing.T) {
	cfg := captureConfig(t, 300)
	require.NoError(t, os.WriteFile(cfg.CodeFile, []byte(`{"code": "071Stale", "ts": 1}`), 0o644))

	task := NewCaptureTask(cfg, logger.NewTestLogger(t))
	_, err := task.Execute(context.Background())
	assert.True(t, apierrors.Is(err, apierrors.ErrCodeCaptureTimeout))

	// The stale code must be gone: serving it again would hand out a dead
	// single-use code.
	_, statErr := os.Stat(cfg.CodeFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCaptureTaskReturnsInterceptedCode(t *testing.T) {
	cfg := captureConfig(t, 5000)
	task := NewCaptureTask(cfg, logger.NewTestLogger(t))

	// Simulate the interception rule writing the handoff file mid-wait.
	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = capture.NewStore(cfg.CodeFile).Put("071Live")
	}()

	out, err := task.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "071Live", out.Code)
}

func TestCaptureTaskHonorsCancellation(t *testing.T) {
	cfg := captureConfig(t, 60000)
	task := NewCaptureTask(cfg, logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := task.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCaptureTaskFailsFastOnPortConflict(t *testing.T) {
	cfg := captureConfig(t, 60000)
	ln, err := net.Listen("tcp", cfg.Host+":"+strconv.Itoa(cfg.Port))
	require.NoError(t, err)
	defer ln.Close()

	task := NewCaptureTask(cfg, logger.NewTestLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = task.Execute(ctx)
	require.Error(t, err)
	assert.False(t, apierrors.Is(err, apierrors.ErrCodeCaptureTimeout))
}
