//go:build integration

package repository_test

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/config"
	"github.com/nurpe/snowops-agreements/internal/db"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/repository"
)

// Run with: AGREEMENTS_TEST_DB_DSN=postgres://... go test -tags integration ./internal/repository/

type fixture struct {
	db         *gorm.DB
	repo       *repository.AgreementRepository
	directory  *repository.DirectoryRepository
	department uuid.UUID
	vendor     uuid.UUID
	member     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := os.Getenv("AGREEMENTS_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("AGREEMENTS_TEST_DB_DSN not set")
	}
	database, err := db.New(&config.Config{Environment: "test", DB: config.DBConfig{DSN: dsn}}, zerolog.Nop())
	require.NoError(t, err)

	f := &fixture{
		db:        database,
		repo:      repository.NewAgreementRepository(database),
		directory: repository.NewDirectoryRepository(database),
	}
	suffix := uuid.NewString()[:8]
	require.NoError(t, database.Raw(
		`INSERT INTO departments (name) VALUES (?) RETURNING id`, "dept-"+suffix,
	).Scan(&f.department).Error)
	require.NoError(t, database.Raw(
		`INSERT INTO vendors (name) VALUES (?) RETURNING id`, "vendor-"+suffix,
	).Scan(&f.vendor).Error)
	require.NoError(t, database.Raw(
		`INSERT INTO users (email, department_id) VALUES (?, ?) RETURNING id`, suffix+"@example.com", f.department,
	).Scan(&f.member).Error)

	t.Cleanup(func() {
		database.Exec(`DELETE FROM agreements WHERE department_id = ?`, f.department)
		database.Exec(`DELETE FROM users WHERE department_id = ?`, f.department)
		database.Exec(`DELETE FROM vendors WHERE id = ?`, f.vendor)
		database.Exec(`DELETE FROM departments WHERE id = ?`, f.department)
	})
	return f
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) agreement(status model.AgreementStatus, start, reminder, expiry, created time.Time) model.Agreement {
	return model.Agreement{
		Title:           "Integration " + string(status),
		AgreementTypeID: f.department,
		DepartmentID:    f.department,
		Status:          status,
		StartDate:       start,
		ExpiryDate:      expiry,
		ReminderTime:    reminder,
		VendorID:        f.vendor,
		CreatedAt:       created,
	}
}

func TestCreateAssignsDistinctSequentialCodesUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := date(2099, time.March, 1)

	const workers = 8
	codes := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := f.agreement(model.AgreementStatusDraft,
				date(2099, time.January, 1), date(2099, time.June, 1), date(2099, time.December, 31), created)
			saved, err := f.repo.Create(ctx, a, nil)
			if err != nil {
				errs[i] = err
				return
			}
			codes[i] = saved.Code
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	sort.Strings(codes)
	seen := map[string]struct{}{}
	for _, code := range codes {
		require.True(t, strings.HasPrefix(code, "A_2099_"), code)
		_, dup := seen[code]
		require.False(t, dup, code)
		seen[code] = struct{}{}
	}

	next, err := f.repo.Create(ctx, f.agreement(model.AgreementStatusDraft,
		date(2099, time.January, 1), date(2099, time.June, 1), date(2099, time.December, 31), created), nil)
	require.NoError(t, err)
	require.Greater(t, next.Code, codes[workers-1])
}

func TestListDueRemindersSelectsOngoingDueAgreements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := date(2098, time.June, 15)
	created := date(2098, time.January, 2)
	start := date(2098, time.January, 1)

	dueToday, err := f.repo.Create(ctx, f.agreement(model.AgreementStatusOngoing,
		start, today, date(2098, time.December, 31), created), nil)
	require.NoError(t, err)
	overdue, err := f.repo.Create(ctx, f.agreement(model.AgreementStatusOngoing,
		start, date(2098, time.May, 1), date(2098, time.June, 15), created), nil)
	require.NoError(t, err)
	_, err = f.repo.Create(ctx, f.agreement(model.AgreementStatusOngoing,
		start, date(2098, time.May, 1), date(2098, time.June, 14), created), nil)
	require.NoError(t, err)
	_, err = f.repo.Create(ctx, f.agreement(model.AgreementStatusDraft,
		start, today, date(2098, time.December, 31), created), nil)
	require.NoError(t, err)
	_, err = f.repo.Create(ctx, f.agreement(model.AgreementStatusOngoing,
		start, date(2098, time.July, 1), date(2098, time.December, 31), created), nil)
	require.NoError(t, err)

	due, err := f.repo.ListDueReminders(ctx, today)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, a := range due {
		if a.DepartmentID == f.department {
			ids = append(ids, a.ID)
		}
	}
	require.ElementsMatch(t, []uuid.UUID{dueToday.ID, overdue.ID}, ids)
}

func TestReplaceDepartmentAssignees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := date(2097, time.March, 1)

	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		saved, err := f.repo.Create(ctx, f.agreement(model.AgreementStatusDraft,
			date(2097, time.January, 1), date(2097, time.June, 1), date(2097, time.December, 31), created), nil)
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	member, err := f.directory.GetUser(ctx, f.member)
	require.NoError(t, err)
	count, err := f.repo.ReplaceDepartmentAssignees(ctx, f.department,
		[]access.Assignee{{User: *member, Via: access.ViaDepartment}})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	for _, id := range ids {
		assignees, err := f.repo.ListAssignees(ctx, id)
		require.NoError(t, err)
		require.Len(t, assignees, 1)
		require.Equal(t, f.member, assignees[0].User.ID)
		require.Equal(t, access.ViaDepartment, assignees[0].Via)
	}
}
