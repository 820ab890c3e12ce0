package model

import "github.com/google/uuid"

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsSuperuser  bool       `json:"is_superuser"`
}

func (u User) InDepartment(id uuid.UUID) bool {
	return u.DepartmentID != nil && *u.DepartmentID == id
}

// Principal is the authenticated caller as supplied by the identity layer.
type Principal struct {
	UserID uuid.UUID
	Email  string
}
