// Package worker runs the periodic batch jobs: daily expiry reminders and the
// sweep of abandoned staged uploads.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/observability/metrics"
)

type DueReminders interface {
	ListDueReminders(ctx context.Context, today time.Time) ([]model.Agreement, error)
}

type ReminderSender interface {
	Reminder(ctx context.Context, a model.Agreement, user model.User, today time.Time) error
}

type Summary struct {
	Agreements int `json:"agreements"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

type ReminderJob struct {
	agreements DueReminders
	sender     ReminderSender
	log        zerolog.Logger
}

func NewReminderJob(agreements DueReminders, sender ReminderSender, log zerolog.Logger) *ReminderJob {
	return &ReminderJob{agreements: agreements, sender: sender, log: log}
}

// Run sends one reminder per assigned user of every agreement due today.
// A failed delivery is counted and does not stop the batch.
func (j *ReminderJob) Run(ctx context.Context, today time.Time) (Summary, error) {
	today = model.DateOnly(today)
	agreements, err := j.agreements.ListDueReminders(ctx, today)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, a := range agreements {
		if !a.ReminderDue(today) {
			continue
		}
		summary.Agreements++
		for _, user := range a.AssignedUsers {
			if !user.IsActive || user.Email == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if err := j.sender.Reminder(ctx, a, user, today); err != nil {
				summary.Failed++
				metrics.ObserveNotificationFailure("reminder")
				j.log.Warn().
					Err(err).
					Str("agreement_id", a.Code).
					Str("recipient", user.Email).
					Msg("failed to send reminder")
				continue
			}
			summary.Sent++
		}
	}

	metrics.ObserveReminderRun(summary.Agreements, summary.Sent, summary.Failed)
	j.log.Info().
		Str("date", today.Format("2006-01-02")).
		Int("agreements", summary.Agreements).
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Msg("reminder run finished")
	return summary, nil
}
