package xyb

import (
	"context"
	"encoding/json"
	"fmt"

	"xybclock/internal/common/apierrors"
)

type PlanDay struct {
	TraineeID flexString `json:"traineeId"`
}

type PlanEntry struct {
	DateList []PlanDay `json:"dateList"`
}

// Plan is the student's clock plan. Raw keeps the untouched payload for
// callers that need more than the trainee id.
type Plan struct {
	Entries []PlanEntry
	Raw     json.RawMessage
}

// TraineeID returns the trainee id from the first plan day, or "" when the
// plan carries none.
func (p *Plan) TraineeID() string {
	for _, e := range p.Entries {
		for _, d := range e.DateList {
			if id := d.TraineeID.String(); id != "" {
				return id
			}
		}
	}
	return ""
}

// GetPlan fetches the clock plan. It doubles as the cheapest authenticated
// probe: a session-invalid outcome here is how cached credentials get
// verified. A valid session with no active internship comes back as
// EMPTY_PLAN, which is distinct from an invalid session.
func (c *Client) GetPlan(ctx context.Context, auth *Auth) (*Plan, error) {
	fields := NewFields()
	req, err := c.newPost(ctx, pathGetPlan, pageClock, fields)
	if err != nil {
		return nil, err
	}
	c.signHeaders(req, fields.Map())
	c.authHeaders(req, auth)

	env, err := c.do(c.http, req, "getPlan")
	if err != nil {
		return nil, err
	}
	out := c.outcome(env)
	if out.Kind != Success {
		return nil, errFrom(out)
	}
	if !out.HasData() {
		return nil, apierrors.NewEmptyPlan(env.Msg)
	}

	plan := &Plan{Raw: env.Data}
	if err := json.Unmarshal(env.Data, &plan.Entries); err != nil {
		return nil, apierrors.NewRemoteError(fmt.Sprintf("plan payload: %v", err))
	}
	return plan, nil
}
