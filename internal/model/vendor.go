package model

import "github.com/google/uuid"

type Vendor struct {
	ID                       uuid.UUID `json:"id"`
	Name                     string    `json:"name"`
	Address                  string    `json:"address"`
	Email                    string    `json:"email"`
	Phone                    string    `json:"phone"`
	ContactPersonName        string    `json:"contact_person_name"`
	ContactPersonDesignation string    `json:"contact_person_designation"`
}
