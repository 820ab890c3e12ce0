package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/draft"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/notify"
	"github.com/nurpe/snowops-agreements/internal/observability/metrics"
	"github.com/nurpe/snowops-agreements/internal/repository"
	"github.com/nurpe/snowops-agreements/internal/storage"
)

// Preview is what the caller confirms before an agreement is created.
type Preview struct {
	Form              model.AgreementForm     `json:"form"`
	AgreementTypeName string                  `json:"agreement_type_name"`
	DepartmentName    string                  `json:"department_name"`
	VendorName        string                  `json:"party_name_display"`
	ReminderTime      time.Time               `json:"reminder_time"`
	AssignedUsers     []access.Assignee       `json:"assigned_users"`
	Attachment        *model.StagedAttachment `json:"attachment,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

// TempKey is where an upload waits while its submission is unconfirmed.
func TempKey(ownerID uuid.UUID, originalName string) string {
	return path.Join("temp", ownerID.String(), uuid.NewString()+strings.ToLower(path.Ext(originalName)))
}

// creator loads the subject and rejects callers who may never file agreements.
func (s *AgreementService) creator(ctx context.Context, principal model.Principal) (*access.Subject, error) {
	subject, err := s.subject(ctx, principal)
	if err != nil {
		return nil, err
	}
	if subject.IsExecutive() && !subject.IsSuperuser() {
		return nil, fmt.Errorf("%w: executives cannot file agreements", ErrPermissionDenied)
	}
	return subject, nil
}

// Preview validates a submission and holds it, with any upload staged, until
// the caller confirms or discards it. A new preview replaces the previous one.
func (s *AgreementService) Preview(ctx context.Context, principal model.Principal, form model.AgreementForm, upload *Upload) (*Preview, error) {
	subject, err := s.creator(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := s.checkUpload(upload); err != nil {
		return nil, err
	}
	prep, err := s.prepare(ctx, subject, form)
	if err != nil {
		return nil, err
	}

	previous, err := s.drafts.Get(ctx, subject.User.ID)
	if err != nil && !errors.Is(err, draft.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	var staged *model.StagedAttachment
	stagedNow := ""
	switch {
	case upload != nil:
		name := path.Base(upload.Name)
		key, err := s.storage.Save(ctx, TempKey(subject.User.ID, name), upload.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: stage upload: %v", ErrExternalService, err)
		}
		staged = &model.StagedAttachment{Name: name, Key: key}
		stagedNow = key
	case previous != nil && previous.Attachment != nil:
		staged = previous.Attachment
	}

	assignees, err := s.deriveAssignees(ctx, prep.Agreement.DepartmentID)
	if err != nil {
		s.release(ctx, stagedNow, "preview")
		return nil, err
	}

	d := model.Draft{
		OwnerID:    subject.User.ID,
		Form:       form,
		Attachment: staged,
		CreatedAt:  s.clock(),
	}
	if err := s.drafts.Save(ctx, d); err != nil {
		s.release(ctx, stagedNow, "preview")
		return nil, fmt.Errorf("%w: save draft: %v", ErrExternalService, err)
	}
	if previous != nil && previous.Attachment != nil && (staged == nil || previous.Attachment.Key != staged.Key) {
		s.release(ctx, previous.Attachment.Key, "preview")
	}

	return newPreview(d, prep, assignees), nil
}

func newPreview(d model.Draft, prep *prepared, assignees []access.Assignee) *Preview {
	return &Preview{
		Form:              d.Form,
		AgreementTypeName: prep.Agreement.AgreementTypeName,
		DepartmentName:    prep.Agreement.DepartmentName,
		VendorName:        prep.Agreement.VendorName,
		ReminderTime:      prep.Agreement.ReminderTime,
		AssignedUsers:     assignees,
		Attachment:        d.Attachment,
		CreatedAt:         d.CreatedAt,
	}
}

// CurrentDraft re-validates and returns the caller's pending submission.
func (s *AgreementService) CurrentDraft(ctx context.Context, principal model.Principal) (*Preview, error) {
	subject, err := s.creator(ctx, principal)
	if err != nil {
		return nil, err
	}
	d, err := s.loadDraft(ctx, subject.User.ID)
	if err != nil {
		return nil, err
	}
	prep, err := s.prepare(ctx, subject, d.Form)
	if err != nil {
		return nil, err
	}
	assignees, err := s.deriveAssignees(ctx, prep.Agreement.DepartmentID)
	if err != nil {
		return nil, err
	}
	return newPreview(*d, prep, assignees), nil
}

// DiscardDraft drops the pending submission and its staged upload.
func (s *AgreementService) DiscardDraft(ctx context.Context, principal model.Principal) error {
	d, err := s.loadDraft(ctx, principal.UserID)
	if err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, principal.UserID); err != nil {
		return fmt.Errorf("%w: delete draft: %v", ErrExternalService, err)
	}
	if d.Attachment != nil {
		s.release(ctx, d.Attachment.Key, "discard")
	}
	return nil
}

func (s *AgreementService) loadDraft(ctx context.Context, ownerID uuid.UUID) (*model.Draft, error) {
	d, err := s.drafts.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, draft.ErrNotFound) {
			return nil, ErrNoDraft
		}
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return d, nil
}

// ConfirmDraft persists the pending submission after validating it again.
// A draft that no longer validates is kept so the caller can correct it.
func (s *AgreementService) ConfirmDraft(ctx context.Context, principal model.Principal) (*model.Agreement, error) {
	subject, err := s.creator(ctx, principal)
	if err != nil {
		return nil, err
	}
	d, err := s.loadDraft(ctx, subject.User.ID)
	if err != nil {
		return nil, err
	}
	prep, err := s.prepare(ctx, subject, d.Form)
	if err != nil {
		return nil, err
	}

	agreement := prep.Agreement
	permanent := ""
	if d.Attachment != nil {
		key, err := storage.Copy(ctx, s.storage, d.Attachment.Key, model.AttachmentKey(agreement.DepartmentID, d.Attachment.Name))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fieldError("attachment", "The uploaded file is no longer available. Please upload it again.")
			}
			return nil, fmt.Errorf("%w: store attachment: %v", ErrExternalService, err)
		}
		permanent = key
		agreement.AttachmentKey = key
		agreement.OriginalFilename = d.Attachment.Name
	}

	saved, err := s.create(ctx, subject, agreement)
	if err != nil {
		s.release(ctx, permanent, "confirm")
		return nil, err
	}

	if err := s.drafts.Delete(ctx, subject.User.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", subject.User.ID.String()).Msg("failed to clear confirmed draft")
	}
	if d.Attachment != nil {
		s.release(ctx, d.Attachment.Key, "confirm")
	}
	s.notifyAssignees(ctx, *saved, notify.ActionCreated)
	return saved, nil
}

// Submit validates and persists an agreement in one step.
func (s *AgreementService) Submit(ctx context.Context, principal model.Principal, form model.AgreementForm, upload *Upload) (*model.Agreement, error) {
	subject, err := s.creator(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := s.checkUpload(upload); err != nil {
		return nil, err
	}
	prep, err := s.prepare(ctx, subject, form)
	if err != nil {
		return nil, err
	}

	agreement := prep.Agreement
	stored := ""
	if upload != nil {
		name := path.Base(upload.Name)
		key, err := s.storage.Save(ctx, model.AttachmentKey(agreement.DepartmentID, name), upload.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: store attachment: %v", ErrExternalService, err)
		}
		stored = key
		agreement.AttachmentKey = key
		agreement.OriginalFilename = name
	}

	saved, err := s.create(ctx, subject, agreement)
	if err != nil {
		s.release(ctx, stored, "submit")
		return nil, err
	}
	s.notifyAssignees(ctx, *saved, notify.ActionCreated)
	return saved, nil
}

func (s *AgreementService) create(ctx context.Context, subject *access.Subject, agreement model.Agreement) (*model.Agreement, error) {
	assignees, err := s.deriveAssignees(ctx, agreement.DepartmentID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	creatorID := subject.User.ID
	agreement.CreatorID = &creatorID
	agreement.CreatedAt = now
	agreement.UpdatedAt = now

	saved, err := s.agreements.Create(ctx, agreement, assignees)
	if err != nil {
		metrics.ObserveMutation("create", "error")
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: agreement identifier already taken, retry", ErrInvalidInput)
		}
		return nil, err
	}
	metrics.ObserveMutation("create", "ok")
	s.log.Info().
		Str("agreement_id", saved.Code).
		Str("department_id", saved.DepartmentID.String()).
		Str("user_id", creatorID.String()).
		Msg("agreement created")
	return saved, nil
}

// EditInput carries the changes to an existing agreement.
type EditInput struct {
	Form             model.AgreementForm
	Upload           *Upload
	DeleteAttachment bool
}

// Edit applies the supplied fields to an agreement. A replaced or removed
// attachment is released only after the change is committed.
func (s *AgreementService) Edit(ctx context.Context, principal model.Principal, ref string, input EditInput) (*model.Agreement, error) {
	subject, err := s.subject(ctx, principal)
	if err != nil {
		return nil, err
	}
	current, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !subject.CanEdit(current) {
		return nil, ErrPermissionDenied
	}
	if err := s.checkUpload(input.Upload); err != nil {
		return nil, err
	}
	prep, err := s.prepare(ctx, subject, editForm(current, input.Form))
	if err != nil {
		return nil, err
	}

	updated := prep.Agreement
	updated.ID = current.ID
	updated.Code = current.Code
	updated.CreatorID = current.CreatorID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.clock()
	updated.AttachmentKey = current.AttachmentKey
	updated.OriginalFilename = current.OriginalFilename

	stored, superseded := "", ""
	switch {
	case input.Upload != nil:
		name := path.Base(input.Upload.Name)
		key, err := s.storage.Save(ctx, model.AttachmentKey(updated.DepartmentID, name), input.Upload.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: store attachment: %v", ErrExternalService, err)
		}
		stored = key
		superseded = current.AttachmentKey
		updated.AttachmentKey = key
		updated.OriginalFilename = name
	case input.DeleteAttachment:
		superseded = current.AttachmentKey
		updated.AttachmentKey = ""
		updated.OriginalFilename = ""
	}

	var assignees []access.Assignee
	if updated.DepartmentID != current.DepartmentID || updated.AgreementTypeID != current.AgreementTypeID {
		assignees, err = s.deriveAssignees(ctx, updated.DepartmentID)
		if err != nil {
			s.release(ctx, stored, "edit")
			return nil, err
		}
	}

	saved, err := s.agreements.Update(ctx, updated, assignees)
	if err != nil {
		metrics.ObserveMutation("update", "error")
		s.release(ctx, stored, "edit")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: agreement %s", ErrNotFound, ref)
		}
		return nil, err
	}
	metrics.ObserveMutation("update", "ok")
	s.release(ctx, superseded, "edit")

	s.log.Info().
		Str("agreement_id", saved.Code).
		Str("user_id", subject.User.ID.String()).
		Bool("assignees_recomputed", assignees != nil).
		Msg("agreement updated")
	s.notifyAssignees(ctx, *saved, notify.ActionUpdated)
	return saved, nil
}

// editForm fills the fields an edit leaves out with the stored values, so a
// partial edit never resets status or reminder to their creation defaults.
// An omitted department follows a changed agreement type only when it was
// defaulted from the old type.
func editForm(current *model.Agreement, form model.AgreementForm) model.AgreementForm {
	if form.Title == "" {
		form.Title = current.Title
	}
	if form.Reference == "" {
		form.Reference = current.Reference
	}
	if form.Status == "" {
		form.Status = current.Status
	}
	if form.VendorID == uuid.Nil {
		form.VendorID = current.VendorID
	}
	typeChanged := form.AgreementTypeID != uuid.Nil && form.AgreementTypeID != current.AgreementTypeID
	if form.AgreementTypeID == uuid.Nil {
		form.AgreementTypeID = current.AgreementTypeID
	}
	if form.DepartmentID == nil || *form.DepartmentID == uuid.Nil {
		if !typeChanged || current.DepartmentID != current.AgreementTypeID {
			department := current.DepartmentID
			form.DepartmentID = &department
		}
	}
	if form.StartDate == nil && !current.StartDate.IsZero() {
		start := current.StartDate
		form.StartDate = &start
	}
	if form.ExpiryDate == nil && !current.ExpiryDate.IsZero() {
		expiry := current.ExpiryDate
		form.ExpiryDate = &expiry
	}
	if form.ReminderTime == nil && !current.ReminderTime.IsZero() {
		reminder := current.ReminderTime
		form.ReminderTime = &reminder
	}
	return form
}

// Delete removes an agreement after releasing its attachment. When the file
// cannot be released the record is kept.
func (s *AgreementService) Delete(ctx context.Context, principal model.Principal, ref string) error {
	subject, err := s.subject(ctx, principal)
	if err != nil {
		return err
	}
	if !subject.IsSuperuser() {
		return ErrPermissionDenied
	}
	agreement, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	if agreement.AttachmentKey != "" {
		if err := s.storage.Delete(ctx, agreement.AttachmentKey); err != nil {
			metrics.ObserveMutation("delete", "error")
			return fmt.Errorf("%w: release attachment: %v", ErrExternalService, err)
		}
	}
	if err := s.agreements.Delete(ctx, agreement.ID); err != nil {
		metrics.ObserveMutation("delete", "error")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: agreement %s", ErrNotFound, ref)
		}
		return err
	}
	metrics.ObserveMutation("delete", "ok")
	s.log.Info().Str("agreement_id", agreement.Code).Str("user_id", subject.User.ID.String()).Msg("agreement deleted")
	return nil
}

// notifyAssignees tells active assignees about a change. Failures are logged only.
func (s *AgreementService) notifyAssignees(ctx context.Context, a model.Agreement, action notify.Action) {
	recipients := make([]string, 0, len(a.AssignedUsers))
	for _, u := range a.AssignedUsers {
		if u.IsActive && u.Email != "" {
			recipients = append(recipients, u.Email)
		}
	}
	if len(recipients) == 0 {
		return
	}
	if err := s.notifier.Notification(ctx, a, action, recipients); err != nil {
		metrics.ObserveNotificationFailure(string(action))
		s.log.Warn().Err(err).Str("agreement_id", a.Code).Str("action", string(action)).Msg("failed to send agreement notification")
	}
}
