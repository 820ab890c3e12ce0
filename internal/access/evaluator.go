// Package access decides what a user may do with agreements. Every check is a
// pure function of the subject snapshot; a missing relation is a plain "no".
package access

import (
	"github.com/google/uuid"

	"github.com/nurpe/snowops-agreements/internal/model"
)

// Subject is a user together with the department and grants that were current
// when the snapshot was taken.
type Subject struct {
	User       model.User
	Department *model.Department
	Grants     []model.DepartmentPermission
}

func (s Subject) IsSuperuser() bool {
	return s.User.IsSuperuser
}

func (s Subject) IsExecutive() bool {
	return s.Department != nil && s.Department.Executive
}

func (s Subject) memberOf(departmentID uuid.UUID) bool {
	return s.User.InDepartment(departmentID)
}

func (s Subject) granted(departmentID uuid.UUID, types ...model.PermissionType) bool {
	for _, g := range s.Grants {
		if g.UserID != s.User.ID || g.DepartmentID != departmentID {
			continue
		}
		for _, t := range types {
			if g.PermissionType == t {
				return true
			}
		}
	}
	return false
}

// CanViewDepartment reports whether agreements filed under the department are visible.
// An edit grant also opens the department for viewing.
func (s Subject) CanViewDepartment(departmentID uuid.UUID) bool {
	if s.IsSuperuser() || s.IsExecutive() {
		return true
	}
	return s.memberOf(departmentID) || s.granted(departmentID, model.PermissionView, model.PermissionEdit)
}

// CanEditDepartment reports whether agreements of the department may be changed.
// Executives only observe.
func (s Subject) CanEditDepartment(departmentID uuid.UUID) bool {
	if s.IsSuperuser() {
		return true
	}
	if s.IsExecutive() {
		return false
	}
	return s.memberOf(departmentID) || s.granted(departmentID, model.PermissionEdit)
}

func (s Subject) CanView(a *model.Agreement) bool {
	return a != nil && s.CanViewDepartment(a.DepartmentID)
}

func (s Subject) CanEdit(a *model.Agreement) bool {
	return a != nil && s.CanEditDepartment(a.DepartmentID)
}

// CanCreate is true unless the user sits in an executive department.
// Which departments a new agreement may be filed under is FilingDepartments.
func (s Subject) CanCreate(departmentID uuid.UUID) bool {
	if s.IsSuperuser() {
		return true
	}
	return !s.IsExecutive()
}

// VisibleDepartments lists the departments whose agreements the subject sees.
// all is true when no filtering applies.
func (s Subject) VisibleDepartments() (ids []uuid.UUID, all bool) {
	if s.IsSuperuser() || s.IsExecutive() {
		return nil, true
	}
	set := newIDSet()
	if s.User.DepartmentID != nil {
		set.add(*s.User.DepartmentID)
	}
	for _, g := range s.Grants {
		if g.UserID == s.User.ID {
			set.add(g.DepartmentID)
		}
	}
	return set.ids, false
}

// FilingDepartments lists the departments a new agreement may be filed under:
// the user's own department and every department with an edit grant.
func (s Subject) FilingDepartments() (ids []uuid.UUID, all bool) {
	if s.IsSuperuser() {
		return nil, true
	}
	if s.IsExecutive() {
		return nil, false
	}
	set := newIDSet()
	if s.User.DepartmentID != nil {
		set.add(*s.User.DepartmentID)
	}
	for _, g := range s.Grants {
		if g.UserID == s.User.ID && g.PermissionType == model.PermissionEdit {
			set.add(g.DepartmentID)
		}
	}
	return set.ids, false
}

// CanFileUnder combines CanCreate with the filing department restriction.
func (s Subject) CanFileUnder(departmentID uuid.UUID) bool {
	if !s.CanCreate(departmentID) {
		return false
	}
	ids, all := s.FilingDepartments()
	if all {
		return true
	}
	for _, id := range ids {
		if id == departmentID {
			return true
		}
	}
	return false
}

type idSet struct {
	seen map[uuid.UUID]struct{}
	ids  []uuid.UUID
}

func newIDSet() *idSet {
	return &idSet{seen: map[uuid.UUID]struct{}{}}
}

func (s *idSet) add(id uuid.UUID) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}
