package model

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AgreementStatus string

const (
	AgreementStatusDraft      AgreementStatus = "draft"
	AgreementStatusOngoing    AgreementStatus = "ongoing"
	AgreementStatusExpired    AgreementStatus = "expired"
	AgreementStatusTerminated AgreementStatus = "terminated"
)

func (s AgreementStatus) Valid() bool {
	switch s {
	case AgreementStatusDraft, AgreementStatusOngoing, AgreementStatusExpired, AgreementStatusTerminated:
		return true
	}
	return false
}

// DefaultReminderLeadDays is how long before expiry the reminder falls when none is given.
const DefaultReminderLeadDays = 180

type Agreement struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"agreement_id"`
	Title            string          `json:"title"`
	Reference        string          `json:"agreement_reference"`
	AgreementTypeID  uuid.UUID       `json:"agreement_type"`
	DepartmentID     uuid.UUID       `json:"department"`
	Status           AgreementStatus `json:"status"`
	StartDate        time.Time       `json:"start_date"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	ReminderTime     time.Time       `json:"reminder_time"`
	VendorID         uuid.UUID       `json:"party_name"`
	AttachmentKey    string          `json:"attachment,omitempty"`
	OriginalFilename string          `json:"original_filename,omitempty"`
	CreatorID        *uuid.UUID      `json:"creator,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	AgreementTypeName string `json:"agreement_type_name"`
	DepartmentName    string `json:"department_name"`
	VendorName        string `json:"party_name_display"`
	AssignedUsers     []User `json:"assigned_users" gorm:"-"`
}

// Clean checks the date relationships and fills the default reminder date.
// Dates are compared as calendar days.
func (a *Agreement) Clean(leadDays int) FieldErrors {
	errs := FieldErrors{}
	if a.StartDate.IsZero() {
		errs.Add("start_date", "This field is required.")
	}
	if a.ExpiryDate.IsZero() {
		errs.Add("expiry_date", "This field is required.")
	}
	if !errs.Empty() {
		return errs
	}

	start := DateOnly(a.StartDate)
	expiry := DateOnly(a.ExpiryDate)
	a.StartDate, a.ExpiryDate = start, expiry
	if !expiry.After(start) {
		errs.Add("expiry_date", "Expiry date must be after start date.")
		return errs
	}

	defaulted := false
	if a.ReminderTime.IsZero() {
		a.ReminderTime = expiry.AddDate(0, 0, -leadDays)
		defaulted = true
	}
	reminder := DateOnly(a.ReminderTime)
	a.ReminderTime = reminder

	switch {
	case defaulted && !reminder.After(start):
		errs.Add("reminder_time", fmt.Sprintf(
			"The default reminder (%d days before expiry) falls on or before the start date. Please choose a reminder date explicitly.",
			leadDays))
		a.ReminderTime = time.Time{}
	case !reminder.After(start):
		errs.Add("reminder_time", "Reminder must be after start date.")
	case !reminder.Before(expiry):
		errs.Add("reminder_time", "Reminder must be before expiry date.")
	}
	return errs
}

// ReminderDue reports whether a reminder has to go out on the given day: on the
// reminder date itself, or on any later day while the agreement has not expired.
func (a Agreement) ReminderDue(today time.Time) bool {
	if a.Status != AgreementStatusOngoing {
		return false
	}
	today = DateOnly(today)
	reminder := DateOnly(a.ReminderTime)
	if reminder.Equal(today) {
		return true
	}
	return reminder.Before(today) && !DateOnly(a.ExpiryDate).Before(today)
}

// DaysRemaining is the number of days from today until expiry, negative once expired.
func (a Agreement) DaysRemaining(today time.Time) int {
	return int(DateOnly(a.ExpiryDate).Sub(DateOnly(today)).Hours() / 24)
}

func FormatAgreementCode(year, seq int) string {
	return fmt.Sprintf("A_%d_%04d", year, seq)
}

// AttachmentKey builds the opaque storage key for an uploaded attachment.
func AttachmentKey(departmentID uuid.UUID, originalName string) string {
	return path.Join("agreements", departmentID.String(), uuid.NewString()+strings.ToLower(path.Ext(originalName)))
}

func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
