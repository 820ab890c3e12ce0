package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/CloudyKit/jet/v6"

	"github.com/nurpe/snowops-agreements/internal/model"
)

const dateLayout = "2006-01-02"

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

type agreementView struct {
	Code           string
	Title          string
	Reference      string
	VendorName     string
	DepartmentName string
	StartDate      string
	ExpiryDate     string
	ReminderDate   string
	DaysRemaining  int
}

func newAgreementView(a model.Agreement, today time.Time) agreementView {
	return agreementView{
		Code:           a.Code,
		Title:          a.Title,
		Reference:      a.Reference,
		VendorName:     a.VendorName,
		DepartmentName: a.DepartmentName,
		StartDate:      a.StartDate.Format(dateLayout),
		ExpiryDate:     a.ExpiryDate.Format(dateLayout),
		ReminderDate:   a.ReminderTime.Format(dateLayout),
		DaysRemaining:  a.DaysRemaining(today),
	}
}

// Mailer renders agreement emails and passes them to a Sender.
type Mailer struct {
	sender Sender
	text   *jet.Set
	html   *jet.Set
}

func NewMailer(sender Sender) *Mailer {
	loader := jet.NewInMemLoader()
	loader.Set("reminder.txt", reminderText)
	loader.Set("reminder.html", reminderHTML)
	loader.Set("notification.txt", notificationText)
	loader.Set("notification.html", notificationHTML)
	return &Mailer{
		sender: sender,
		text:   jet.NewSet(loader, jet.WithSafeWriter(nil)),
		html:   jet.NewSet(loader),
	}
}

// Reminder sends the expiry reminder for an agreement to one user.
func (m *Mailer) Reminder(ctx context.Context, a model.Agreement, user model.User, today time.Time) error {
	return m.reminder(ctx, a, user, today, false)
}

// TestReminder sends the reminder to the given user regardless of schedule.
func (m *Mailer) TestReminder(ctx context.Context, a model.Agreement, user model.User, today time.Time) error {
	return m.reminder(ctx, a, user, today, true)
}

func (m *Mailer) reminder(ctx context.Context, a model.Agreement, user model.User, today time.Time, test bool) error {
	vars := make(jet.VarMap)
	vars.Set("agreement", newAgreementView(a, today))
	vars.Set("recipient", displayName(user))
	vars.Set("test", test)

	subject := fmt.Sprintf("Reminder: %s (Expires on %s)", a.Title, a.ExpiryDate.Format(dateLayout))
	if test {
		subject = "TEST: " + subject
	}
	msg, err := m.render("reminder", vars, subject, []string{user.Email})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

// Notification tells recipients that a was created or updated.
func (m *Mailer) Notification(ctx context.Context, a model.Agreement, action Action, recipients []string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	vars := make(jet.VarMap)
	vars.Set("agreement", newAgreementView(a, a.UpdatedAt))
	vars.Set("action", string(action))

	msg, err := m.render("notification", vars, fmt.Sprintf("Agreement %s: %s", action, a.Title), recipients)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

func (m *Mailer) render(name string, vars jet.VarMap, subject string, to []string) (Message, error) {
	text, err := execute(m.text, name+".txt", vars)
	if err != nil {
		return Message{}, err
	}
	html, err := execute(m.html, name+".html", vars)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, Text: text, HTML: html}, nil
}

func execute(set *jet.Set, name string, vars jet.VarMap) (string, error) {
	tmpl, err := set.GetTemplate(name)
	if err != nil {
		return "", fmt.Errorf("load template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars, nil); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func displayName(u model.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
