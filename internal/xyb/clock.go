package xyb

import (
	"context"

	"xybclock/internal/common/apierrors"
)

// ClockAction selects the clock direction.
type ClockAction int

const (
	ClockIn ClockAction = iota
	ClockOut
)

// status is the wire value for clockStatus. Server-side 2 means sign-in and
// 1 means sign-out.
func (a ClockAction) status() string {
	if a == ClockIn {
		return "2"
	}
	return "1"
}

func (a ClockAction) String() string {
	if a == ClockIn {
		return "sign-in"
	}
	return "sign-out"
}

// ClockResult reports what the server accepted.
type ClockResult struct {
	// Already is set when the server reports the clock already happened
	// today. That is a success, not an error.
	Already bool
	// Warning carries the advisory message of an accepted-with-warning
	// response (out-of-range location and similar).
	Warning string
	Msg     string
}

// SimpleClock performs a no-photo sign-in or sign-out. The body mirrors what
// the mini-program sends, field order included, and is the sign source. A 202
// on this endpoint means the server rejected the device or user-agent
// profile, not an expired code.
func (c *Client) SimpleClock(ctx context.Context, auth *Auth, traineeID string, geo *Geo, lng, lat string, action ClockAction) (*ClockResult, error) {
	fields := NewFields().
		Set("punchInStatus", "0").
		Set("clockStatus", action.status()).
		Set("traineeId", traineeID).
		Set("adcode", geo.Adcode).
		Set("model", c.profile.Model).
		Set("brand", c.profile.Brand).
		Set("platform", c.profile.Platform).
		Set("system", c.profile.System).
		Set("openId", auth.OpenID).
		Set("unionId", auth.UnionID).
		Set("lng", lng).
		Set("lat", lat).
		Set("address", geo.FormattedAddress).
		Set("deviceName", c.profile.Model)

	req, err := c.newPost(ctx, pathSimpleClock, pageClock, fields)
	if err != nil {
		return nil, err
	}
	c.signHeaders(req, fields.Map())
	c.authHeaders(req, auth)
	if err := c.deviceHeader(req, auth.OpenID); err != nil {
		return nil, err
	}

	env, err := c.do(c.http, req, "simpleClock")
	if err != nil {
		return nil, err
	}
	out := c.outcome(env)

	switch out.Kind {
	case Success:
		res := &ClockResult{Msg: out.Msg, Already: out.Msg == "已经签到"}
		if res.Already {
			c.log.Info("already clocked today", map[string]interface{}{"action": action.String()})
		} else {
			c.log.Info("clock accepted", map[string]interface{}{"action": action.String()})
		}
		return res, nil
	case BusinessWarning:
		c.log.Warn("clock accepted with warning", map[string]interface{}{
			"action": action.String(),
			"msg":    out.Msg,
		})
		return &ClockResult{Msg: out.Msg, Warning: out.Msg}, nil
	case CodeExpired:
		return nil, apierrors.NewConfigRejected("server rejected device or user-agent profile: " + out.Msg)
	default:
		return nil, errFrom(out)
	}
}
