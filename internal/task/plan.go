package task

import (
	"context"
	"encoding/json"

	"xybclock/internal/common/logger"
	"xybclock/internal/session"
	"xybclock/internal/xyb"
)

type PlanOutput struct {
	TraineeID string          `json:"traineeId"`
	Plan      json.RawMessage `json:"plan"`
}

// PlanTask fetches the clock plan, which doubles as a session validity
// check from the command line.
type PlanTask struct {
	client   *xyb.Client
	sessions *session.Manager
	log      logger.Logger
}

func NewPlanTask(client *xyb.Client, sessions *session.Manager, log logger.Logger) *PlanTask {
	return &PlanTask{
		client:   client,
		sessions: sessions,
		log:      log.WithFields(map[string]interface{}{"component": "plan"}),
	}
}

func (t *PlanTask) Execute(ctx context.Context, code string, useCache bool) (*PlanOutput, error) {
	s, err := t.sessions.Login(ctx, code, useCache)
	if err != nil {
		return nil, err
	}
	plan, err := t.client.GetPlan(ctx, s.Auth())
	if err != nil {
		return nil, err
	}
	return &PlanOutput{TraineeID: plan.TraineeID(), Plan: plan.Raw}, nil
}
