package task

import (
	"context"

	"xybclock/internal/common/config"
	"xybclock/internal/common/logger"
	"xybclock/internal/session"
	"xybclock/internal/xyb"
)

// SignInput selects what a clock run does. Code may be empty when a cached
// session is expected to cover the run.
type SignInput struct {
	Code     string
	Action   xyb.ClockAction
	UseCache bool
}

type SignOutput struct {
	Already bool   `json:"already"`
	Warning string `json:"warning,omitempty"`
	Address string `json:"address"`
}

// SignTask is the plain clock workflow: login, resolve the trainee and the
// address, then hit the clock endpoint once.
type SignTask struct {
	client   *xyb.Client
	sessions *session.Manager
	location config.LocationConfig
	log      logger.Logger
}

func NewSignTask(client *xyb.Client, sessions *session.Manager, location config.LocationConfig, log logger.Logger) *SignTask {
	return &SignTask{
		client:   client,
		sessions: sessions,
		location: location,
		log:      log.WithFields(map[string]interface{}{"component": "sign"}),
	}
}

func (t *SignTask) Execute(ctx context.Context, input *SignInput) (*SignOutput, error) {
	s, err := t.sessions.Login(ctx, input.Code, input.UseCache)
	if err != nil {
		return nil, err
	}
	traineeID, err := t.sessions.EnsureTraineeID(ctx, s)
	if err != nil {
		return nil, err
	}
	geo, err := t.client.Regeo(ctx, t.location.Longitude, t.location.Latitude)
	if err != nil {
		return nil, err
	}

	res, err := t.client.SimpleClock(ctx, s.Auth(), traineeID, geo,
		t.location.Longitude, t.location.Latitude, input.Action)
	if err != nil {
		return nil, err
	}
	return &SignOutput{
		Already: res.Already,
		Warning: res.Warning,
		Address: geo.FormattedAddress,
	}, nil
}
