package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/snowops-agreements/internal/model"
)

func TestAssigneesUnionWithoutDuplicates(t *testing.T) {
	alice := model.User{ID: uuid.New(), Email: "alice@example.com"}
	bob := model.User{ID: uuid.New(), Email: "bob@example.com"}
	carol := model.User{ID: uuid.New(), Email: "carol@example.com"}

	got := Assignees(Candidates{
		Members:    []model.User{bob, alice},
		Grantees:   []model.User{alice, carol, carol},
		Executives: []model.User{carol, bob},
	})

	require.Len(t, got, 3)
	require.Equal(t, []uuid.UUID{alice.ID, bob.ID, carol.ID}, AssigneeIDs(got))
	require.Equal(t, ViaDepartment, got[0].Via)
	require.Equal(t, ViaDepartment, got[1].Via)
	require.Equal(t, ViaPermission, got[2].Via)
}

func TestAssigneesEmpty(t *testing.T) {
	got := Assignees(Candidates{})
	require.Empty(t, got)
	require.Empty(t, AssigneeUsers(got))
}
