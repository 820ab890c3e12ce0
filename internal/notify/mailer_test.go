package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/snowops-agreements/internal/model"
)

func sampleAgreement() model.Agreement {
	return model.Agreement{
		ID:             uuid.New(),
		Code:           "A_2024_0007",
		Title:          "Cleaning & maintenance",
		Reference:      "REF-1",
		Status:         model.AgreementStatusOngoing,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:     time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
		ReminderTime:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		VendorName:     "Acme Ltd",
		DepartmentName: "Facilities",
		UpdatedAt:      time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func capture(sent *[]Message) Sender {
	return SenderFunc(func(_ context.Context, msg Message) error {
		*sent = append(*sent, msg)
		return nil
	})
}

func TestReminderRendersAgreementDetails(t *testing.T) {
	var sent []Message
	mailer := NewMailer(capture(&sent))
	user := model.User{Email: "alice@example.com", FullName: "Alice"}

	err := mailer.Reminder(context.Background(), sampleAgreement(), user, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, sent, 1)

	msg := sent[0]
	require.Equal(t, []string{"alice@example.com"}, msg.To)
	require.Equal(t, "Reminder: Cleaning & maintenance (Expires on 2024-06-20)", msg.Subject)
	require.Contains(t, msg.Text, "Hello Alice")
	require.Contains(t, msg.Text, `"Cleaning & maintenance" (A_2024_0007)`)
	require.Contains(t, msg.Text, "5 day(s) remaining.")
	require.Contains(t, msg.Text, "Vendor: Acme Ltd")
	require.NotContains(t, msg.Text, "test reminder")
	require.Contains(t, msg.HTML, "Cleaning &amp; maintenance")
}

func TestTestReminderIsMarked(t *testing.T) {
	var sent []Message
	mailer := NewMailer(capture(&sent))

	err := mailer.TestReminder(context.Background(), sampleAgreement(), model.User{Email: "bob@example.com"}, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, sent, 1)
	require.Equal(t, "TEST: Reminder: Cleaning & maintenance (Expires on 2024-06-20)", sent[0].Subject)
	require.Contains(t, sent[0].Text, "Hello bob@example.com")
	require.Contains(t, sent[0].Text, "This is a test reminder.")
	require.Contains(t, sent[0].Text, "It expires today.")
}

func TestNotification(t *testing.T) {
	var sent []Message
	mailer := NewMailer(capture(&sent))

	err := mailer.Notification(context.Background(), sampleAgreement(), ActionCreated, []string{"a@example.com", "b@example.com"})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	require.Equal(t, "Agreement created: Cleaning & maintenance", sent[0].Subject)
	require.Len(t, sent[0].To, 2)
	require.Contains(t, sent[0].Text, "was created.")
	require.Contains(t, sent[0].Text, "Start date: 2024-01-01")

	err = mailer.Notification(context.Background(), sampleAgreement(), ActionUpdated, nil)
	require.ErrorIs(t, err, ErrNoRecipients)
}

func TestSenderErrorsPropagate(t *testing.T) {
	boom := errors.New("relay down")
	mailer := NewMailer(SenderFunc(func(context.Context, Message) error { return boom }))

	err := mailer.Reminder(context.Background(), sampleAgreement(), model.User{Email: "a@example.com"}, time.Now())
	require.ErrorIs(t, err, boom)
}
