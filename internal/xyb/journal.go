package xyb

import (
	"context"
	"encoding/json"
	"strconv"
)

// Journal is a weekly journal entry to submit.
type Journal struct {
	Title     string
	Body      string
	StartDate string
	EndDate   string
	// OpenType is the visibility: 1 public, 2 author only.
	OpenType int
}

// LoadJournalYearMonths lists the year/month buckets that have journal weeks.
// The payload shape is passed through untouched.
func (c *Client) LoadJournalYearMonths(ctx context.Context, auth *Auth) (json.RawMessage, error) {
	fields := NewFields().Set("traineeId", auth.TraineeID)
	return c.journalCall(ctx, pathJournalYear, "journalYearMonths", auth, fields)
}

// LoadJournalWeeks lists the journal weeks of one year/month bucket.
func (c *Client) LoadJournalWeeks(ctx context.Context, auth *Auth, year, month int) (json.RawMessage, error) {
	fields := NewFields().
		Set("year", strconv.Itoa(year)).
		Set("month", strconv.Itoa(month)).
		Set("traineeId", auth.TraineeID).
		Set("id", "")
	return c.journalCall(ctx, pathJournalWeek, "journalWeeks", auth, fields)
}

// SubmitJournal publishes a journal entry for the given week. This is the one
// journal call that carries a device fingerprint.
func (c *Client) SubmitJournal(ctx context.Context, auth *Auth, j Journal) (json.RawMessage, error) {
	fields := NewFields().
		Set("blogType", "1").
		Set("blogTitle", j.Title).
		Set("blogBody", j.Body).
		Set("blogOpenType", strconv.Itoa(j.OpenType)).
		Set("traineeId", auth.TraineeID).
		Set("isDraft", "0").
		Set("startDate", j.StartDate).
		Set("endDate", j.EndDate).
		Set("backgroundTemplateId", "0").
		Set("fileJson", `[{"fileName":""}]`).
		Set("blogId", "undefined")

	req, err := c.newPost(ctx, pathJournalSave, pageJournal, fields)
	if err != nil {
		return nil, err
	}
	c.signHeaders(req, fields.Map())
	c.authHeaders(req, auth)
	if err := c.deviceHeader(req, auth.OpenID); err != nil {
		return nil, err
	}

	env, err := c.do(c.journalHTTP, req, "journalSubmit")
	if err != nil {
		return nil, err
	}
	out := c.outcome(env)
	if out.Kind != Success {
		return nil, errFrom(out)
	}
	c.log.Info("journal submitted", map[string]interface{}{
		"title": j.Title,
		"week":  j.StartDate + ".." + j.EndDate,
	})
	return env.Data, nil
}

// journalCall is the shared shape of the two read-only journal endpoints:
// signed over the body, no device fingerprint, longer timeout.
func (c *Client) journalCall(ctx context.Context, path, endpoint string, auth *Auth, fields *Fields) (json.RawMessage, error) {
	req, err := c.newPost(ctx, path, pageJournal, fields)
	if err != nil {
		return nil, err
	}
	c.signHeaders(req, fields.Map())
	c.authHeaders(req, auth)

	env, err := c.do(c.journalHTTP, req, endpoint)
	if err != nil {
		return nil, err
	}
	out := c.outcome(env)
	if out.Kind != Success {
		return nil, errFrom(out)
	}
	return env.Data, nil
}
