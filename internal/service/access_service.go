package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/observability/metrics"
)

type AccessAction string

const (
	AccessGrant  AccessAction = "add"
	AccessRevoke AccessAction = "remove"
)

// AccessChange grants or revokes a department permission for a user on the
// department an agreement is filed under.
type AccessChange struct {
	UserID     uuid.UUID            `json:"user_id" validate:"required"`
	Action     AccessAction         `json:"action" validate:"required,oneof=add remove"`
	Permission model.PermissionType `json:"permission_type" validate:"omitempty,oneof=view edit"`
}

// UsersWithAccess lists the agreement's assignees and why each one is assigned.
func (s *AgreementService) UsersWithAccess(ctx context.Context, principal model.Principal, ref string) ([]access.Assignee, error) {
	_, agreement, err := s.viewable(ctx, principal, ref)
	if err != nil {
		return nil, err
	}
	return s.agreements.ListAssignees(ctx, agreement.ID)
}

// ManageAccess changes a department grant and recomputes the assignees of
// every agreement in that department. Only superusers and the agreement's
// creator may do this.
func (s *AgreementService) ManageAccess(ctx context.Context, principal model.Principal, ref string, change AccessChange) ([]access.Assignee, error) {
	subject, err := s.subject(ctx, principal)
	if err != nil {
		return nil, err
	}
	agreement, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	isCreator := agreement.CreatorID != nil && *agreement.CreatorID == subject.User.ID
	if !subject.IsSuperuser() && !(isCreator && subject.CanEdit(agreement)) {
		return nil, ErrPermissionDenied
	}

	if err := validate.Struct(change); err != nil {
		return nil, &ValidationError{Fields: structFieldErrors(err)}
	}
	if change.Permission == "" {
		change.Permission = model.PermissionView
	}

	target, err := s.directory.GetUser(ctx, change.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, change.UserID)
		}
		return nil, err
	}

	switch change.Action {
	case AccessGrant:
		err = s.directory.GrantPermission(ctx, target.ID, agreement.DepartmentID, change.Permission)
	case AccessRevoke:
		err = s.directory.RevokePermission(ctx, target.ID, agreement.DepartmentID, change.Permission)
	}
	if err != nil {
		return nil, err
	}
	metrics.ObserveMutation("access_"+string(change.Action), "ok")
	s.log.Info().
		Str("agreement_id", agreement.Code).
		Str("department_id", agreement.DepartmentID.String()).
		Str("target_user_id", target.ID.String()).
		Str("action", string(change.Action)).
		Str("permission", string(change.Permission)).
		Msg("department access changed")

	if err := s.RefreshDepartmentAssignments(ctx, agreement.DepartmentID); err != nil {
		return nil, err
	}
	return s.agreements.ListAssignees(ctx, agreement.ID)
}

// RefreshDepartmentAssignments rewrites the assignees of every agreement filed
// under the department. Either all of them change or none do.
func (s *AgreementService) RefreshDepartmentAssignments(ctx context.Context, departmentID uuid.UUID) error {
	assignees, err := s.deriveAssignees(ctx, departmentID)
	if err != nil {
		return err
	}
	count, err := s.agreements.ReplaceDepartmentAssignees(ctx, departmentID, assignees)
	if err != nil {
		return fmt.Errorf("refresh assignees of department %s: %w", departmentID, err)
	}
	s.log.Debug().
		Str("department_id", departmentID.String()).
		Int("agreements", count).
		Msg("department assignees refreshed")
	return nil
}

// AvailableUsers lists active users the caller may grant access to:
// everyone for superusers, otherwise the caller's own department.
func (s *AgreementService) AvailableUsers(ctx context.Context, principal model.Principal) ([]model.User, error) {
	subject, err := s.subject(ctx, principal)
	if err != nil {
		return nil, err
	}
	if subject.IsSuperuser() {
		return s.directory.ListActiveUsers(ctx, nil)
	}
	if subject.User.DepartmentID == nil {
		return []model.User{}, nil
	}
	return s.directory.ListActiveUsers(ctx, subject.User.DepartmentID)
}

// TestReminder sends the agreement's reminder to the caller's own address.
// Unlike scheduled reminders a delivery failure is returned.
func (s *AgreementService) TestReminder(ctx context.Context, principal model.Principal, ref string) (string, error) {
	subject, agreement, err := s.viewable(ctx, principal, ref)
	if err != nil {
		return "", err
	}
	if subject.User.Email == "" {
		return "", fmt.Errorf("%w: caller has no email address", ErrInvalidInput)
	}
	if err := s.notifier.TestReminder(ctx, *agreement, subject.User, s.today()); err != nil {
		metrics.ObserveNotificationFailure("test_reminder")
		s.log.Error().Err(err).Str("agreement_id", agreement.Code).Msg("failed to send test reminder")
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return subject.User.Email, nil
}
