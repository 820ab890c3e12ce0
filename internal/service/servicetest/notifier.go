package servicetest

import (
	"context"
	"sync"
	"time"

	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/notify"
)

type Notification struct {
	Agreement  model.Agreement
	Action     notify.Action
	Recipients []string
}

// Notifier records what would have been sent. Err makes every call fail.
type Notifier struct {
	mu            sync.Mutex
	Err           error
	Notifications []Notification
	TestReminders []string
}

func (n *Notifier) Notification(_ context.Context, a model.Agreement, action notify.Action, recipients []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Notifications = append(n.Notifications, Notification{Agreement: a, Action: action, Recipients: recipients})
	return nil
}

func (n *Notifier) TestReminder(_ context.Context, _ model.Agreement, user model.User, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.TestReminders = append(n.TestReminders, user.Email)
	return nil
}
