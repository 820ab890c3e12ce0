package model

import (
	"time"

	"github.com/google/uuid"
)

// AgreementForm is the caller-supplied data for creating or editing an agreement.
type AgreementForm struct {
	Title           string          `json:"title" validate:"required,max=200"`
	Reference       string          `json:"agreement_reference" validate:"max=100"`
	AgreementTypeID uuid.UUID       `json:"agreement_type" validate:"required"`
	DepartmentID    *uuid.UUID      `json:"department,omitempty"`
	VendorID        uuid.UUID       `json:"party_name" validate:"required"`
	Status          AgreementStatus `json:"status" validate:"omitempty,oneof=draft ongoing expired terminated"`
	StartDate       *time.Time      `json:"start_date" validate:"required"`
	ExpiryDate      *time.Time      `json:"expiry_date" validate:"required"`
	ReminderTime    *time.Time      `json:"reminder_time,omitempty"`
}

// EffectiveDepartmentID falls back to the agreement type when no department was given.
func (f AgreementForm) EffectiveDepartmentID() uuid.UUID {
	if f.DepartmentID != nil && *f.DepartmentID != uuid.Nil {
		return *f.DepartmentID
	}
	return f.AgreementTypeID
}

// StagedAttachment is an upload parked in temporary storage while a preview waits for confirmation.
type StagedAttachment struct {
	Name string `json:"name"`
	Key  string `json:"path"`
}

// Draft is a validated but unconfirmed submission held for one caller.
type Draft struct {
	OwnerID    uuid.UUID         `json:"owner_id"`
	Form       AgreementForm     `json:"form"`
	Attachment *StagedAttachment `json:"attachment,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
