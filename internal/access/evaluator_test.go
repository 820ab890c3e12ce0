package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/snowops-agreements/internal/model"
)

type fixture struct {
	sales     model.Department
	legal     model.Department
	board     model.Department
	agreement *model.Agreement
}

func newFixture() fixture {
	f := fixture{
		sales: model.Department{ID: uuid.New(), Name: "Sales"},
		legal: model.Department{ID: uuid.New(), Name: "Legal"},
		board: model.Department{ID: uuid.New(), Name: "Board", Executive: true},
	}
	f.agreement = &model.Agreement{ID: uuid.New(), DepartmentID: f.sales.ID, AgreementTypeID: f.sales.ID}
	return f
}

func member(dept model.Department) Subject {
	id := dept.ID
	return Subject{User: model.User{ID: uuid.New(), DepartmentID: &id, IsActive: true}, Department: &dept}
}

func grant(s *Subject, dept uuid.UUID, typ model.PermissionType) {
	s.Grants = append(s.Grants, model.DepartmentPermission{ID: uuid.New(), UserID: s.User.ID, DepartmentID: dept, PermissionType: typ})
}

func TestMemberCanViewAndEditOwnDepartment(t *testing.T) {
	f := newFixture()
	s := member(f.sales)

	require.True(t, s.CanView(f.agreement))
	require.True(t, s.CanEdit(f.agreement))
	require.True(t, s.CanCreate(f.sales.ID))
}

func TestOutsiderWithoutGrantIsDenied(t *testing.T) {
	f := newFixture()
	s := member(f.legal)

	require.False(t, s.CanView(f.agreement))
	require.False(t, s.CanEdit(f.agreement))
}

func TestUserWithoutDepartment(t *testing.T) {
	f := newFixture()
	s := Subject{User: model.User{ID: uuid.New(), IsActive: true}}

	require.False(t, s.CanView(f.agreement))
	ids, all := s.FilingDepartments()
	require.False(t, all)
	require.Empty(t, ids)

	grant(&s, f.sales.ID, model.PermissionEdit)
	require.True(t, s.CanView(f.agreement))
	require.True(t, s.CanEdit(f.agreement))
	require.True(t, s.CanFileUnder(f.sales.ID))
}

func TestViewGrantDoesNotAllowEdit(t *testing.T) {
	f := newFixture()
	s := member(f.legal)
	grant(&s, f.sales.ID, model.PermissionView)

	require.True(t, s.CanView(f.agreement))
	require.False(t, s.CanEdit(f.agreement))
	require.False(t, s.CanFileUnder(f.sales.ID))
}

func TestEditGrantAllowsViewAndEdit(t *testing.T) {
	f := newFixture()
	s := member(f.legal)
	grant(&s, f.sales.ID, model.PermissionEdit)

	require.True(t, s.CanView(f.agreement))
	require.True(t, s.CanEdit(f.agreement))
	require.True(t, s.CanFileUnder(f.sales.ID))
}

func TestGrantsOfOtherUsersAreIgnored(t *testing.T) {
	f := newFixture()
	s := member(f.legal)
	s.Grants = append(s.Grants, model.DepartmentPermission{UserID: uuid.New(), DepartmentID: f.sales.ID, PermissionType: model.PermissionEdit})

	require.False(t, s.CanView(f.agreement))
	require.False(t, s.CanEdit(f.agreement))
}

func TestExecutivesObserveOnly(t *testing.T) {
	f := newFixture()
	s := member(f.board)
	grant(&s, f.sales.ID, model.PermissionEdit)

	for _, dept := range []model.Department{f.sales, f.legal, f.board} {
		a := &model.Agreement{DepartmentID: dept.ID}
		require.True(t, s.CanView(a))
		require.False(t, s.CanEdit(a))
		require.False(t, s.CanCreate(dept.ID))
		require.False(t, s.CanFileUnder(dept.ID))
	}

	ids, all := s.VisibleDepartments()
	require.True(t, all)
	require.Nil(t, ids)
}

func TestSuperuserCanDoEverything(t *testing.T) {
	f := newFixture()
	s := member(f.board)
	s.User.IsSuperuser = true

	require.True(t, s.CanView(f.agreement))
	require.True(t, s.CanEdit(f.agreement))
	require.True(t, s.CanCreate(f.legal.ID))
	require.True(t, s.CanFileUnder(f.legal.ID))
	_, all := s.FilingDepartments()
	require.True(t, all)
}

func TestVisibleDepartmentsAreDeduplicated(t *testing.T) {
	f := newFixture()
	s := member(f.sales)
	grant(&s, f.sales.ID, model.PermissionView)
	grant(&s, f.legal.ID, model.PermissionView)
	grant(&s, f.legal.ID, model.PermissionEdit)
	grant(&s, f.legal.ID, model.PermissionEdit)

	ids, all := s.VisibleDepartments()
	require.False(t, all)
	require.ElementsMatch(t, []uuid.UUID{f.sales.ID, f.legal.ID}, ids)

	filing, _ := s.FilingDepartments()
	require.ElementsMatch(t, []uuid.UUID{f.sales.ID, f.legal.ID}, filing)
}

func TestNilAgreementIsDenied(t *testing.T) {
	f := newFixture()
	s := member(f.sales)
	require.False(t, s.CanView(nil))
	require.False(t, s.CanEdit(nil))
}
