package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/repository"
)

// Agreements is an in-memory agreement repository with the same per-year
// identifier counter semantics as the SQL one.
type Agreements struct {
	mu        sync.Mutex
	items     map[uuid.UUID]model.Agreement
	assignees map[uuid.UUID][]access.Assignee
	sequences map[int]int

	// CreateErr, when set, is returned by Create without storing anything.
	CreateErr error
	// ReplaceErr, when set, is returned by ReplaceDepartmentAssignees.
	ReplaceErr error
}

func NewAgreements() *Agreements {
	return &Agreements{
		items:     map[uuid.UUID]model.Agreement{},
		assignees: map[uuid.UUID][]access.Assignee{},
		sequences: map[int]int{},
	}
}

func (r *Agreements) List(_ context.Context, filter repository.AgreementFilter) ([]model.Agreement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := map[uuid.UUID]struct{}{}
	for _, id := range filter.DepartmentIDs {
		allowed[id] = struct{}{}
	}
	result := []model.Agreement{}
	for _, a := range r.items {
		if _, ok := allowed[a.DepartmentID]; !filter.AllDepartments && !ok {
			continue
		}
		if filter.DepartmentID != nil && a.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" &&
			!strings.Contains(strings.ToLower(a.Title), q) &&
			!strings.Contains(strings.ToLower(a.Code), q) &&
			!strings.Contains(strings.ToLower(a.VendorName), q) {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code > result[j].Code })
	return result, nil
}

func (r *Agreements) GetByID(_ context.Context, id uuid.UUID) (*model.Agreement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(id)
}

func (r *Agreements) GetByCode(_ context.Context, code string) (*model.Agreement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.items {
		if a.Code == code {
			return r.load(id)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Agreements) load(id uuid.UUID) (*model.Agreement, error) {
	a, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	a.AssignedUsers = access.AssigneeUsers(r.assignees[id])
	return &a, nil
}

func (r *Agreements) Create(_ context.Context, agreement model.Agreement, assignees []access.Assignee) (*model.Agreement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	year := agreement.CreatedAt.Year()
	r.sequences[year]++
	agreement.ID = uuid.New()
	agreement.Code = model.FormatAgreementCode(year, r.sequences[year])
	agreement.AssignedUsers = nil
	r.items[agreement.ID] = agreement
	r.assignees[agreement.ID] = append([]access.Assignee(nil), assignees...)
	return r.load(agreement.ID)
}

func (r *Agreements) Update(_ context.Context, agreement model.Agreement, assignees []access.Assignee) (*model.Agreement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[agreement.ID]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	agreement.AssignedUsers = nil
	r.items[agreement.ID] = agreement
	if assignees != nil {
		r.assignees[agreement.ID] = append([]access.Assignee(nil), assignees...)
	}
	return r.load(agreement.ID)
}

func (r *Agreements) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.items, id)
	delete(r.assignees, id)
	return nil
}

func (r *Agreements) ListAssignees(_ context.Context, agreementID uuid.UUID) ([]access.Assignee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]access.Assignee(nil), r.assignees[agreementID]...), nil
}

// ReplaceDepartmentAssignees rewrites the department's assignee sets at once.
// With ReplaceErr set nothing changes.
func (r *Agreements) ReplaceDepartmentAssignees(_ context.Context, departmentID uuid.UUID, assignees []access.Assignee) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ReplaceErr != nil {
		return 0, r.ReplaceErr
	}
	count := 0
	for id, a := range r.items {
		if a.DepartmentID == departmentID {
			r.assignees[id] = append([]access.Assignee(nil), assignees...)
			count++
		}
	}
	return count, nil
}

// ListDueReminders mirrors the SQL selection of agreements due for a reminder.
func (r *Agreements) ListDueReminders(_ context.Context, today time.Time) ([]model.Agreement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	today = model.DateOnly(today)
	var result []model.Agreement
	for id, a := range r.items {
		if a.Status != model.AgreementStatusOngoing {
			continue
		}
		reminder := model.DateOnly(a.ReminderTime)
		if reminder.Equal(today) || (reminder.Before(today) && !model.DateOnly(a.ExpiryDate).Before(today)) {
			loaded, _ := r.load(id)
			result = append(result, *loaded)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// Put stores an agreement as-is, for seeding tests.
func (r *Agreements) Put(a model.Agreement, assignees []access.Assignee) model.Agreement {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.items[a.ID] = a
	r.assignees[a.ID] = assignees
	return a
}
