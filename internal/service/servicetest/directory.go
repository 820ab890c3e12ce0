// Package servicetest provides in-memory repositories for exercising the
// agreement service without a database.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/snowops-agreements/internal/model"
)

type Directory struct {
	mu          sync.Mutex
	departments map[uuid.UUID]model.Department
	users       map[uuid.UUID]model.User
	vendors     map[uuid.UUID]model.Vendor
	grants      []model.DepartmentPermission
}

func NewDirectory() *Directory {
	return &Directory{
		departments: map[uuid.UUID]model.Department{},
		users:       map[uuid.UUID]model.User{},
		vendors:     map[uuid.UUID]model.Vendor{},
	}
}

func (d *Directory) AddDepartment(name string, executive bool) model.Department {
	d.mu.Lock()
	defer d.mu.Unlock()
	dept := model.Department{ID: uuid.New(), Name: name, Executive: executive, CreatedAt: time.Now()}
	d.departments[dept.ID] = dept
	return dept
}

// AddUser registers an active user; departmentID may be nil.
func (d *Directory) AddUser(email string, departmentID *uuid.UUID) model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	user := model.User{ID: uuid.New(), Email: email, FullName: strings.Split(email, "@")[0], DepartmentID: departmentID, IsActive: true}
	d.users[user.ID] = user
	return user
}

func (d *Directory) AddSuperuser(email string) model.User {
	user := d.AddUser(email, nil)
	d.mu.Lock()
	defer d.mu.Unlock()
	user.IsSuperuser = true
	d.users[user.ID] = user
	return user
}

func (d *Directory) Deactivate(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user := d.users[id]
	user.IsActive = false
	d.users[id] = user
}

func (d *Directory) AddVendor(name string) model.Vendor {
	d.mu.Lock()
	defer d.mu.Unlock()
	vendor := model.Vendor{ID: uuid.New(), Name: name, Email: strings.ToLower(strings.ReplaceAll(name, " ", "")) + "@vendor.test"}
	d.vendors[vendor.ID] = vendor
	return vendor
}

// Grant appends a grant without checking for duplicates.
func (d *Directory) Grant(userID, departmentID uuid.UUID, permission model.PermissionType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grants = append(d.grants, model.DepartmentPermission{
		ID:             uuid.New(),
		UserID:         userID,
		DepartmentID:   departmentID,
		PermissionType: permission,
		CreatedAt:      time.Now(),
	})
}

func (d *Directory) GetUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (d *Directory) GetDepartment(_ context.Context, id uuid.UUID) (*model.Department, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dept, ok := d.departments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &dept, nil
}

func (d *Directory) ListDepartments(_ context.Context) ([]model.Department, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]model.Department, 0, len(d.departments))
	for _, dept := range d.departments {
		result = append(result, dept)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (d *Directory) GetVendor(_ context.Context, id uuid.UUID) (*model.Vendor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	vendor, ok := d.vendors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &vendor, nil
}

func (d *Directory) ListVendors(_ context.Context) ([]model.Vendor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]model.Vendor, 0, len(d.vendors))
	for _, vendor := range d.vendors {
		result = append(result, vendor)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (d *Directory) ListGrants(_ context.Context, userID uuid.UUID) ([]model.DepartmentPermission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []model.DepartmentPermission
	for _, g := range d.grants {
		if g.UserID == userID {
			result = append(result, g)
		}
	}
	return result, nil
}

func (d *Directory) DepartmentMembers(_ context.Context, departmentID uuid.UUID) ([]model.User, error) {
	return d.filterUsers(func(u model.User) bool { return u.InDepartment(departmentID) }), nil
}

func (d *Directory) DepartmentGrantees(_ context.Context, departmentID uuid.UUID) ([]model.User, error) {
	d.mu.Lock()
	holders := map[uuid.UUID]struct{}{}
	for _, g := range d.grants {
		if g.DepartmentID == departmentID {
			holders[g.UserID] = struct{}{}
		}
	}
	d.mu.Unlock()
	return d.filterUsers(func(u model.User) bool {
		_, ok := holders[u.ID]
		return ok
	}), nil
}

func (d *Directory) ExecutiveUsers(_ context.Context) ([]model.User, error) {
	d.mu.Lock()
	executive := map[uuid.UUID]struct{}{}
	for id, dept := range d.departments {
		if dept.Executive {
			executive[id] = struct{}{}
		}
	}
	d.mu.Unlock()
	return d.filterUsers(func(u model.User) bool {
		if u.DepartmentID == nil {
			return false
		}
		_, ok := executive[*u.DepartmentID]
		return ok
	}), nil
}

func (d *Directory) ListActiveUsers(_ context.Context, departmentID *uuid.UUID) ([]model.User, error) {
	return d.filterUsers(func(u model.User) bool {
		if !u.IsActive {
			return false
		}
		return departmentID == nil || u.InDepartment(*departmentID)
	}), nil
}

func (d *Directory) GrantPermission(_ context.Context, userID, departmentID uuid.UUID, permission model.PermissionType) error {
	d.mu.Lock()
	for _, g := range d.grants {
		if g.UserID == userID && g.DepartmentID == departmentID && g.PermissionType == permission {
			d.mu.Unlock()
			return nil
		}
	}
	d.mu.Unlock()
	d.Grant(userID, departmentID, permission)
	return nil
}

func (d *Directory) RevokePermission(_ context.Context, userID, departmentID uuid.UUID, permission model.PermissionType) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.grants[:0]
	for _, g := range d.grants {
		if g.UserID == userID && g.DepartmentID == departmentID && g.PermissionType == permission {
			continue
		}
		kept = append(kept, g)
	}
	d.grants = kept
	return nil
}

func (d *Directory) filterUsers(keep func(model.User) bool) []model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []model.User
	for _, u := range d.users {
		if keep(u) {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result
}
