package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/config"
	"github.com/nurpe/snowops-agreements/internal/draft"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/notify"
	"github.com/nurpe/snowops-agreements/internal/observability/metrics"
	"github.com/nurpe/snowops-agreements/internal/repository"
	"github.com/nurpe/snowops-agreements/internal/storage"
)

type AgreementRepository interface {
	List(ctx context.Context, filter repository.AgreementFilter) ([]model.Agreement, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Agreement, error)
	GetByCode(ctx context.Context, code string) (*model.Agreement, error)
	Create(ctx context.Context, agreement model.Agreement, assignees []access.Assignee) (*model.Agreement, error)
	Update(ctx context.Context, agreement model.Agreement, assignees []access.Assignee) (*model.Agreement, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAssignees(ctx context.Context, agreementID uuid.UUID) ([]access.Assignee, error)
	ReplaceDepartmentAssignees(ctx context.Context, departmentID uuid.UUID, assignees []access.Assignee) (int, error)
}

type DirectoryRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (*model.Department, error)
	ListDepartments(ctx context.Context) ([]model.Department, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	ListVendors(ctx context.Context) ([]model.Vendor, error)
	ListGrants(ctx context.Context, userID uuid.UUID) ([]model.DepartmentPermission, error)
	DepartmentMembers(ctx context.Context, departmentID uuid.UUID) ([]model.User, error)
	DepartmentGrantees(ctx context.Context, departmentID uuid.UUID) ([]model.User, error)
	ExecutiveUsers(ctx context.Context) ([]model.User, error)
	ListActiveUsers(ctx context.Context, departmentID *uuid.UUID) ([]model.User, error)
	GrantPermission(ctx context.Context, userID, departmentID uuid.UUID, permission model.PermissionType) error
	RevokePermission(ctx context.Context, userID, departmentID uuid.UUID, permission model.PermissionType) error
}

type Notifier interface {
	Notification(ctx context.Context, a model.Agreement, action notify.Action, recipients []string) error
	TestReminder(ctx context.Context, a model.Agreement, user model.User, today time.Time) error
}

type ExcelGenerator interface {
	Generate(agreements []model.Agreement, today time.Time) ([]byte, error)
}

type PDFGenerator interface {
	Generate(a model.Agreement, assignees []access.Assignee, today time.Time) ([]byte, error)
}

type Dependencies struct {
	Agreements AgreementRepository
	Directory  DirectoryRepository
	Drafts     draft.Store
	Storage    storage.Storage
	Notifier   Notifier
	Excel      ExcelGenerator
	PDF        PDFGenerator
	Logger     zerolog.Logger
}

type Option func(*AgreementService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *AgreementService) {
		s.now = now
	}
}

type AgreementService struct {
	agreements AgreementRepository
	directory  DirectoryRepository
	drafts     draft.Store
	storage    storage.Storage
	notifier   Notifier
	excel      ExcelGenerator
	pdf        PDFGenerator
	log        zerolog.Logger

	leadDays      int
	maxAttachment int64
	loc           *time.Location
	now           func() time.Time
}

func NewAgreementService(deps Dependencies, cfg *config.Config, opts ...Option) *AgreementService {
	s := &AgreementService{
		agreements:    deps.Agreements,
		directory:     deps.Directory,
		drafts:        deps.Drafts,
		storage:       deps.Storage,
		notifier:      deps.Notifier,
		excel:         deps.Excel,
		pdf:           deps.PDF,
		log:           deps.Logger,
		leadDays:      cfg.Agreements.ReminderLeadDays,
		maxAttachment: cfg.Agreements.MaxAttachmentSize,
		loc:           cfg.Location(),
		now:           time.Now,
	}
	if s.leadDays <= 0 {
		s.leadDays = model.DefaultReminderLeadDays
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload is a file supplied with a submission.
type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

// File is generated or stored content returned to the caller.
type File struct {
	Name    string
	Content []byte
}

func (s *AgreementService) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *AgreementService) today() time.Time {
	return model.DateOnly(s.clock())
}

// subject loads the caller's current department and grants.
func (s *AgreementService) subject(ctx context.Context, principal model.Principal) (*access.Subject, error) {
	user, err := s.directory.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrPermissionDenied)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user is inactive", ErrPermissionDenied)
	}

	subject := &access.Subject{User: *user}
	if user.DepartmentID != nil {
		department, err := s.directory.GetDepartment(ctx, *user.DepartmentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		subject.Department = department
	}

	grants, err := s.directory.ListGrants(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	subject.Grants = grants
	return subject, nil
}

// resolve finds an agreement by UUID or by its A_YYYY_NNNN identifier.
func (s *AgreementService) resolve(ctx context.Context, ref string) (*model.Agreement, error) {
	var (
		agreement *model.Agreement
		err       error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		agreement, err = s.agreements.GetByID(ctx, id)
	} else {
		agreement, err = s.agreements.GetByCode(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: agreement %s", ErrNotFound, ref)
		}
		return nil, err
	}
	return agreement, nil
}

func (s *AgreementService) viewable(ctx context.Context, principal model.Principal, ref string) (*access.Subject, *model.Agreement, error) {
	subject, err := s.subject(ctx, principal)
	if err != nil {
		return nil, nil, err
	}
	agreement, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if !subject.CanView(agreement) {
		return nil, nil, ErrPermissionDenied
	}
	return subject, agreement, nil
}

// deriveAssignees computes the users associated with agreements of a department.
func (s *AgreementService) deriveAssignees(ctx context.Context, departmentID uuid.UUID) ([]access.Assignee, error) {
	members, err := s.directory.DepartmentMembers(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	grantees, err := s.directory.DepartmentGrantees(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	executives, err := s.directory.ExecutiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	return access.Assignees(access.Candidates{
		Members:    members,
		Grantees:   grantees,
		Executives: executives,
	}), nil
}

// release deletes a stored object, logging instead of failing.
func (s *AgreementService) release(ctx context.Context, key, source string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Str("source", source).Msg("failed to release stored file")
		metrics.ObserveTempCleanup(source, "error")
		return
	}
	metrics.ObserveTempCleanup(source, "ok")
	s.log.Debug().Str("key", key).Str("source", source).Msg("released stored file")
}
