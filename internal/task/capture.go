package task

import (
	"context"

	"xybclock/internal/capture"
	"xybclock/internal/common/config"
	"xybclock/internal/common/logger"
)

// CaptureOutput reports what the capture run produced.
type CaptureOutput struct {
	Code string `json:"code"`
}

// CaptureTask runs the full code-capture workflow: clear any stale code,
// redirect the system proxy at the in-process listener, wait for the user to
// restart the mini-program, and hand back the intercepted code.
type CaptureTask struct {
	store  *capture.Store
	guard  *capture.Guard
	proxy  *capture.Proxy
	waiter *capture.Waiter
	log    logger.Logger
}

func NewCaptureTask(cfg config.CaptureConfig, log logger.Logger) *CaptureTask {
	store := capture.NewStore(cfg.CodeFile)
	guard := capture.NewGuard(cfg.ProxyAddr(), log)
	proxy := capture.NewProxy(cfg.ProxyAddr(), capture.NewInterceptor(store, log), log)
	return &CaptureTask{
		store:  store,
		guard:  guard,
		proxy:  proxy,
		waiter: capture.NewWaiter(store, guard, config.GetDuration(cfg.Timeout), log),
		log:    log.WithFields(map[string]interface{}{"component": "capture"}),
	}
}

func (t *CaptureTask) Execute(ctx context.Context) (*CaptureOutput, error) {
	// Codes are single-use; a leftover file would hand out a dead one.
	if err := t.store.Remove(); err != nil {
		return nil, err
	}

	if err := t.guard.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := t.guard.Release(); err != nil {
			t.log.Error("restoring system proxy failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	proxyCtx, stopProxy := context.WithCancel(ctx)
	defer stopProxy()
	proxyErr := make(chan error, 1)
	go func() { proxyErr <- t.proxy.Run(proxyCtx) }()

	codeCh := make(chan string, 1)
	waitErr := make(chan error, 1)
	go func() {
		code, err := t.waiter.Wait(ctx)
		if err != nil {
			waitErr <- err
			return
		}
		codeCh <- code
	}()

	select {
	case code := <-codeCh:
		return &CaptureOutput{Code: code}, nil
	case err := <-waitErr:
		return nil, err
	case err := <-proxyErr:
		// The listener died before a code arrived, usually a port conflict.
		return nil, err
	}
}
