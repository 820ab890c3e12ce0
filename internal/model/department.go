package model

import (
	"time"

	"github.com/google/uuid"
)

type Department struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Executive bool      `json:"executive"`
	CreatedAt time.Time `json:"created_at"`
}

type PermissionType string

const (
	PermissionView PermissionType = "view"
	PermissionEdit PermissionType = "edit"
)

func (p PermissionType) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// DepartmentPermission grants a user rights on a department they are not a member of.
// Several grants for the same pair may exist; nothing relies on them being unique.
type DepartmentPermission struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	DepartmentID   uuid.UUID      `json:"department_id"`
	PermissionType PermissionType `json:"permission_type"`
	CreatedAt      time.Time      `json:"created_at"`
}
