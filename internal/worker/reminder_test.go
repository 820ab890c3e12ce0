package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/service/servicetest"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (s *recordingSender) Reminder(_ context.Context, a model.Agreement, user model.User, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[user.Email] {
		return errors.New("mailbox unavailable")
	}
	s.sent = append(s.sent, a.Code+":"+user.Email)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seed(repo *servicetest.Agreements, code string, status model.AgreementStatus, reminder, expiry time.Time, users ...model.User) {
	assignees := make([]access.Assignee, 0, len(users))
	for _, u := range users {
		assignees = append(assignees, access.Assignee{User: u, Via: access.ViaDepartment})
	}
	repo.Put(model.Agreement{
		Code:         code,
		Title:        code,
		Status:       status,
		StartDate:    date(2024, time.January, 1),
		ReminderTime: reminder,
		ExpiryDate:   expiry,
	}, assignees)
}

func user(email string, active bool) model.User {
	return model.User{ID: uuid.New(), Email: email, IsActive: active}
}

func TestReminderJobSelectsDueAgreements(t *testing.T) {
	repo := servicetest.NewAgreements()
	ann, ben := user("ann@example.com", true), user("ben@example.com", true)

	seed(repo, "A_2024_0001", model.AgreementStatusOngoing, date(2024, time.June, 10), date(2024, time.June, 20), ann)
	seed(repo, "A_2024_0002", model.AgreementStatusOngoing, date(2024, time.June, 10), date(2024, time.June, 14), ann)
	seed(repo, "A_2024_0003", model.AgreementStatusOngoing, date(2024, time.July, 1), date(2024, time.August, 1), ann)
	seed(repo, "A_2024_0004", model.AgreementStatusOngoing, date(2024, time.June, 15), date(2024, time.June, 30), ann, ben)
	seed(repo, "A_2024_0005", model.AgreementStatusTerminated, date(2024, time.June, 15), date(2024, time.June, 30), ann)

	sender := &recordingSender{}
	job := NewReminderJob(repo, sender, zerolog.Nop())

	summary, err := job.Run(context.Background(), time.Date(2024, time.June, 15, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, Summary{Agreements: 2, Sent: 3, Failed: 0}, summary)
	require.ElementsMatch(t, []string{
		"A_2024_0001:ann@example.com",
		"A_2024_0004:ann@example.com",
		"A_2024_0004:ben@example.com",
	}, sender.sent)
}

func TestReminderJobIsolatesFailures(t *testing.T) {
	repo := servicetest.NewAgreements()
	ann, ben, gone := user("ann@example.com", true), user("ben@example.com", true), user("gone@example.com", false)
	seed(repo, "A_2024_0001", model.AgreementStatusOngoing, date(2024, time.June, 15), date(2024, time.June, 30), ann, ben, gone)

	sender := &recordingSender{fail: map[string]bool{"ann@example.com": true}}
	summary, err := NewReminderJob(repo, sender, zerolog.Nop()).Run(context.Background(), date(2024, time.June, 15))
	require.NoError(t, err)
	require.Equal(t, Summary{Agreements: 1, Sent: 1, Failed: 1}, summary)
	require.Equal(t, []string{"A_2024_0001:ben@example.com"}, sender.sent)
}

func TestReminderJobNothingDue(t *testing.T) {
	summary, err := NewReminderJob(servicetest.NewAgreements(), &recordingSender{}, zerolog.Nop()).
		Run(context.Background(), date(2024, time.June, 15))
	require.NoError(t, err)
	require.Equal(t, Summary{}, summary)
}
