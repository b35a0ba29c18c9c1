package task

import (
	"context"
	"encoding/json"

	"xybclock/internal/common/apierrors"
	"xybclock/internal/common/logger"
	"xybclock/internal/session"
	"xybclock/internal/xyb"
)

type JournalSubmitInput struct {
	Code      string
	UseCache  bool
	Title     string
	Body      string
	StartDate string
	EndDate   string
	// OpenType: 1 public, 2 author only.
	OpenType int
}

// JournalTask covers weekly journal operations: listing the available
// year/month buckets, the weeks inside one, and submitting an entry.
type JournalTask struct {
	client   *xyb.Client
	sessions *session.Manager
	log      logger.Logger
}

func NewJournalTask(client *xyb.Client, sessions *session.Manager, log logger.Logger) *JournalTask {
	return &JournalTask{
		client:   client,
		sessions: sessions,
		log:      log.WithFields(map[string]interface{}{"component": "journal"}),
	}
}

func (t *JournalTask) login(ctx context.Context, code string, useCache bool) (*session.Session, error) {
	s, err := t.sessions.Login(ctx, code, useCache)
	if err != nil {
		return nil, err
	}
	if _, err := t.sessions.EnsureTraineeID(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ListMonths returns the raw year/month listing for display.
func (t *JournalTask) ListMonths(ctx context.Context, code string, useCache bool) (json.RawMessage, error) {
	s, err := t.login(ctx, code, useCache)
	if err != nil {
		return nil, err
	}
	return t.client.LoadJournalYearMonths(ctx, s.Auth())
}

// ListWeeks returns the raw week listing of one year/month bucket.
func (t *JournalTask) ListWeeks(ctx context.Context, code string, useCache bool, year, month int) (json.RawMessage, error) {
	s, err := t.login(ctx, code, useCache)
	if err != nil {
		return nil, err
	}
	return t.client.LoadJournalWeeks(ctx, s.Auth(), year, month)
}

// Submit validates and publishes one weekly entry.
func (t *JournalTask) Submit(ctx context.Context, input *JournalSubmitInput) (json.RawMessage, error) {
	if input.Title == "" || input.Body == "" {
		return nil, apierrors.NewLocalInputInvalid("journal needs both a title and a body")
	}
	if input.StartDate == "" || input.EndDate == "" {
		return nil, apierrors.NewLocalInputInvalid("journal needs the week's start and end dates")
	}
	if input.OpenType != 1 && input.OpenType != 2 {
		input.OpenType = 2
	}

	s, err := t.login(ctx, input.Code, input.UseCache)
	if err != nil {
		return nil, err
	}
	return t.client.SubmitJournal(ctx, s.Auth(), xyb.Journal{
		Title:     input.Title,
		Body:      input.Body,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		OpenType:  input.OpenType,
	})
}
