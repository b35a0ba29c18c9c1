package xyb

import (
	"encoding/json"
	"strings"
)

// flexString decodes a JSON field that the API serves inconsistently as
// string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

// Envelope is the common {code, msg, data} response wrapper.
type Envelope struct {
	Code flexString      `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// OutcomeKind is the normalized interpretation of an envelope. All recovery
// branching in the engine happens on this variant; raw code/msg strings are
// inspected only here.
type OutcomeKind int

const (
	// Success carries the data payload.
	Success OutcomeKind = iota
	// BusinessWarning is a non-fatal rejection (code 403), surfaced but not
	// raised as a failure.
	BusinessWarning
	// SessionInvalid is the server-declared invalidation signal; the cached
	// session must be discarded.
	SessionInvalid
	// CodeExpired is code 202: an expired authorization code at exchange
	// time, or a rejected device profile on action endpoints.
	CodeExpired
	// Fatal is every other rejection, carrying the server message.
	Fatal
)

type Outcome struct {
	Kind OutcomeKind
	Msg  string
	Data json.RawMessage
}

// notLoggedInMsg is the substring the server uses to flag a dead session
// ("not logged in").
const notLoggedInMsg = "未登录"

// Normalize maps an envelope to its outcome. The invalidation signal takes
// precedence over everything else.
func Normalize(env *Envelope) Outcome {
	code := env.Code.String()
	switch {
	case code == "205" || strings.Contains(env.Msg, notLoggedInMsg):
		return Outcome{Kind: SessionInvalid, Msg: env.Msg}
	case code == "202":
		return Outcome{Kind: CodeExpired, Msg: env.Msg}
	case code == "403":
		return Outcome{Kind: BusinessWarning, Msg: env.Msg}
	case code == "200":
		return Outcome{Kind: Success, Msg: env.Msg, Data: env.Data}
	default:
		return Outcome{Kind: Fatal, Msg: env.Msg}
	}
}

// HasData reports whether the outcome carries a non-empty data payload.
func (o Outcome) HasData() bool {
	s := strings.TrimSpace(string(o.Data))
	return s != "" && s != "null" && s != "[]" && s != "{}"
}
