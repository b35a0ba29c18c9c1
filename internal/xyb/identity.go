package xyb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"xybclock/internal/common/apierrors"
)

// IdentitySeed is the durable identity minted from a one-time wx.login code.
type IdentitySeed struct {
	OpenID       flexString `json:"openId"`
	UnionID      flexString `json:"unionId"`
	EncryptValue string     `json:"encryptValue"`
	SessionID    string     `json:"sessionId"`
}

// LoginResult carries the per-session credentials from the second login step.
type LoginResult struct {
	EncryptValue string `json:"encryptValue"`
	SessionID    string `json:"sessionId"`
}

// GetOpenID redeems a captured one-time code for the durable identity. The
// code is single-use and short-lived; an expired one surfaces as
// AUTH_CODE_EXPIRED so callers know to capture a fresh one instead of
// retrying.
func (c *Client) GetOpenID(ctx context.Context, code string) (*IdentitySeed, error) {
	fields := NewFields().Set("code", code)
	req, err := c.newPost(ctx, pathGetOpenID, pageAuth, fields)
	if err != nil {
		return nil, err
	}
	if err := c.deviceHeader(req, ""); err != nil {
		return nil, err
	}

	env, err := c.do(c.http, req, "getOpenId")
	if err != nil {
		return nil, err
	}
	out := c.outcome(env)
	if out.Kind != Success {
		return nil, errFrom(out)
	}

	var seed IdentitySeed
	if err := json.Unmarshal(env.Data, &seed); err != nil {
		return nil, apierrors.NewRemoteError(fmt.Sprintf("identity payload: %v", err))
	}
	if seed.OpenID.String() == "" {
		return nil, apierrors.NewRemoteError("identity payload missing openId")
	}
	return &seed, nil
}

// WxLogin exchanges the durable identity for fresh session credentials. The
// request is signed over its own body and authenticated with the seed's
// provisional credentials.
func (c *Client) WxLogin(ctx context.Context, seed *IdentitySeed) (*LoginResult, error) {
	fields := NewFields().
		Set("openId", seed.OpenID.String()).
		Set("unionId", seed.UnionID.String())
	req, err := c.newPost(ctx, pathWxLogin, pageAuth, fields)
	if err != nil {
		return nil, err
	}
	c.signHeaders(req, fields.Map())
	if err := c.deviceHeader(req, seed.OpenID.String()); err != nil {
		return nil, err
	}
	req.Header.Set("encryptvalue", seed.EncryptValue)
	req.AddCookie(&http.Cookie{Name: "JSESSIONID", Value: seed.SessionID})

	env, err := c.do(c.http, req, "wxLogin")
	if err != nil {
		return nil, err
	}
	out := c.outcome(env)
	if out.Kind != Success {
		return nil, errFrom(out)
	}

	var res LoginResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return nil, apierrors.NewRemoteError(fmt.Sprintf("login payload: %v", err))
	}
	if res.SessionID == "" || res.EncryptValue == "" {
		return nil, apierrors.NewRemoteError("login payload missing session credentials")
	}
	return &res, nil
}
