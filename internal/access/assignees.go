package access

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nurpe/snowops-agreements/internal/model"
)

// Via tells why a user is associated with an agreement.
type Via string

const (
	ViaDepartment Via = "department"
	ViaPermission Via = "permission"
	ViaExecutive  Via = "executive"
)

type Assignee struct {
	User model.User `json:"user"`
	Via  Via        `json:"via"`
}

// Candidates are the three populations an agreement's assignees are drawn from.
type Candidates struct {
	Members    []model.User
	Grantees   []model.User
	Executives []model.User
}

// Assignees derives the users associated with an agreement of a department:
// its members, everyone holding any grant on it, and every executive.
// Each user appears once, attributed to the first population that contains them.
func Assignees(c Candidates) []Assignee {
	seen := map[uuid.UUID]struct{}{}
	result := make([]Assignee, 0, len(c.Members)+len(c.Grantees)+len(c.Executives))
	add := func(users []model.User, via Via) {
		for _, u := range users {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			result = append(result, Assignee{User: u, Via: via})
		}
	}
	add(c.Members, ViaDepartment)
	add(c.Grantees, ViaPermission)
	add(c.Executives, ViaExecutive)

	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].User.Email) < strings.ToLower(result[j].User.Email)
	})
	return result
}

func AssigneeUsers(assignees []Assignee) []model.User {
	users := make([]model.User, 0, len(assignees))
	for _, a := range assignees {
		users = append(users, a.User)
	}
	return users
}

func AssigneeIDs(assignees []Assignee) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(assignees))
	for _, a := range assignees {
		ids = append(ids, a.User.ID)
	}
	return ids
}
