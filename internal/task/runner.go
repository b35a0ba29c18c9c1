// Package task contains the user-facing workflows: capture a one-time code,
// clock in or out with or without a photo, and manage weekly journals. Each
// workflow is a handler with typed input and output; the runner serializes
// them because the capture listener and the system proxy are machine-wide.
package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"xybclock/internal/common/logger"
)

var ErrBusy = errors.New("WORKFLOW_BUSY")

// Runner runs one workflow at a time. A second concurrent Run returns
// ErrBusy instead of queueing, so a stuck capture never piles up clock
// attempts behind it.
type Runner struct {
	slot chan struct{}
	log  logger.Logger
}

func NewRunner(log logger.Logger) *Runner {
	r := &Runner{slot: make(chan struct{}, 1), log: log}
	r.slot <- struct{}{}
	return r
}

func (r *Runner) Run(ctx context.Context, name string, fn func(ctx context.Context, taskID string) error) error {
	select {
	case <-r.slot:
	default:
		return ErrBusy
	}
	defer func() { r.slot <- struct{}{} }()

	taskID := uuid.NewString()
	log := r.log.WithFields(map[string]interface{}{"task": name, "taskId": taskID})
	log.Info("workflow started", nil)

	started := time.Now()
	err := fn(ctx, taskID)
	fields := map[string]interface{}{"duration": time.Since(started).String()}
	if err != nil {
		fields["error"] = err.Error()
		log.Error("workflow failed", fields)
		return err
	}
	log.Info("workflow finished", fields)
	return nil
}
