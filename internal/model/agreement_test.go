package model

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCleanDefaultsReminder(t *testing.T) {
	a := &Agreement{StartDate: date(2024, 1, 1), ExpiryDate: date(2024, 12, 31)}

	errs := a.Clean(DefaultReminderLeadDays)

	require.True(t, errs.Empty(), errs.String())
	require.Equal(t, date(2024, 7, 4), a.ReminderTime)
}

func TestCleanRejectsBadOrdering(t *testing.T) {
	cases := []struct {
		name     string
		start    time.Time
		expiry   time.Time
		reminder time.Time
		field    string
	}{
		{"expiry equals start", date(2024, 1, 1), date(2024, 1, 1), time.Time{}, "expiry_date"},
		{"expiry before start", date(2024, 2, 1), date(2024, 1, 1), time.Time{}, "expiry_date"},
		{"reminder on start", date(2024, 1, 1), date(2024, 12, 31), date(2024, 1, 1), "reminder_time"},
		{"reminder before start", date(2024, 1, 1), date(2024, 12, 31), date(2023, 12, 1), "reminder_time"},
		{"reminder on expiry", date(2024, 1, 1), date(2024, 12, 31), date(2024, 12, 31), "reminder_time"},
		{"reminder after expiry", date(2024, 1, 1), date(2024, 12, 31), date(2025, 1, 10), "reminder_time"},
		{"missing start", time.Time{}, date(2024, 12, 31), time.Time{}, "start_date"},
		{"missing expiry", date(2024, 1, 1), time.Time{}, time.Time{}, "expiry_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &Agreement{StartDate: tc.start, ExpiryDate: tc.expiry, ReminderTime: tc.reminder}
			errs := a.Clean(DefaultReminderLeadDays)
			require.Contains(t, errs, tc.field)
		})
	}
}

func TestCleanDefaultReminderBeforeStartNeedsExplicitDate(t *testing.T) {
	a := &Agreement{StartDate: date(2024, 1, 1), ExpiryDate: date(2024, 3, 1)}

	errs := a.Clean(DefaultReminderLeadDays)

	require.Contains(t, errs, "reminder_time")
	require.True(t, strings.Contains(errs["reminder_time"][0], "explicitly"))
	require.True(t, a.ReminderTime.IsZero())

	a.ReminderTime = date(2024, 2, 1)
	require.True(t, a.Clean(DefaultReminderLeadDays).Empty())
}

func TestCleanTruncatesToDays(t *testing.T) {
	a := &Agreement{
		StartDate:    time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC),
		ExpiryDate:   time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		ReminderTime: time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC),
	}
	require.True(t, a.Clean(DefaultReminderLeadDays).Empty())
	require.Equal(t, date(2024, 5, 1), a.ReminderTime)
}

func TestReminderDue(t *testing.T) {
	today := date(2024, 6, 15)
	cases := []struct {
		name     string
		status   AgreementStatus
		reminder time.Time
		expiry   time.Time
		due      bool
	}{
		{"catch up before expiry", AgreementStatusOngoing, date(2024, 6, 10), date(2024, 6, 20), true},
		{"already expired", AgreementStatusOngoing, date(2024, 6, 10), date(2024, 6, 14), false},
		{"not yet due", AgreementStatusOngoing, date(2024, 7, 1), date(2024, 12, 1), false},
		{"exactly on reminder", AgreementStatusOngoing, date(2024, 6, 15), date(2024, 12, 1), true},
		{"expires today", AgreementStatusOngoing, date(2024, 6, 1), date(2024, 6, 15), true},
		{"draft is skipped", AgreementStatusDraft, date(2024, 6, 15), date(2024, 12, 1), false},
		{"terminated is skipped", AgreementStatusTerminated, date(2024, 6, 10), date(2024, 6, 20), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Agreement{Status: tc.status, ReminderTime: tc.reminder, ExpiryDate: tc.expiry}
			require.Equal(t, tc.due, a.ReminderDue(today))
		})
	}
}

func TestFormatAgreementCode(t *testing.T) {
	require.Equal(t, "A_2024_0007", FormatAgreementCode(2024, 7))
	require.Equal(t, "A_2025_1234", FormatAgreementCode(2025, 1234))
}

func TestAttachmentKey(t *testing.T) {
	dept := uuid.New()
	key := AttachmentKey(dept, "Signed Contract.PDF")

	require.True(t, strings.HasPrefix(key, "agreements/"+dept.String()+"/"))
	require.True(t, strings.HasSuffix(key, ".pdf"))
	require.NotEqual(t, key, AttachmentKey(dept, "Signed Contract.PDF"))
}

func TestEffectiveDepartmentID(t *testing.T) {
	typ := uuid.New()
	form := AgreementForm{AgreementTypeID: typ}
	require.Equal(t, typ, form.EffectiveDepartmentID())

	dept := uuid.New()
	form.DepartmentID = &dept
	require.Equal(t, dept, form.EffectiveDepartmentID())
}

func TestDaysRemaining(t *testing.T) {
	a := Agreement{ExpiryDate: date(2024, 6, 20)}
	require.Equal(t, 5, a.DaysRemaining(time.Date(2024, 6, 15, 22, 0, 0, 0, time.UTC)))
	require.Equal(t, -1, a.DaysRemaining(date(2024, 6, 21)))
}
