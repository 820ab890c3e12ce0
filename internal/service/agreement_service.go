package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/repository"
	"github.com/nurpe/snowops-agreements/internal/storage"
)

type ListInput struct {
	DepartmentID *uuid.UUID
	Status       *model.AgreementStatus
	Search       string
}

type ListResult struct {
	Agreements  []model.Agreement  `json:"agreements"`
	Departments []model.Department `json:"departments"`
}

type Detail struct {
	Agreement     *model.Agreement `json:"agreement"`
	AttachmentURL string           `json:"attachment_url,omitempty"`
	CanEdit       bool             `json:"can_edit"`
}

type FormData struct {
	User             model.User         `json:"user"`
	Departments      []model.Department `json:"departments"`
	Vendors          []model.Vendor     `json:"vendors"`
	ReminderLeadDays int                `json:"reminder_lead_days"`
}

type AttachmentFile struct {
	Name    string
	Content io.ReadCloser
}

// List returns the agreements the caller may view, plus every department for filtering.
func (s *AgreementService) List(ctx context.Context, principal model.Principal, input ListInput) (*ListResult, error) {
	subject, err := s.subject(ctx, principal)
	if err != nil {
		return nil, err
	}
	agreements, err := s.scoped(ctx, subject, input)
	if err != nil {
		return nil, err
	}
	departments, err := s.directory.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	return &ListResult{Agreements: agreements, Departments: departments}, nil
}

func (s *AgreementService) scoped(ctx context.Context, subject *access.Subject, input ListInput) ([]model.Agreement, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *input.Status)
	}
	ids, all := subject.VisibleDepartments()
	return s.agreements.List(ctx, repository.AgreementFilter{
		AllDepartments: all,
		DepartmentIDs:  ids,
		DepartmentID:   input.DepartmentID,
		Status:         input.Status,
		Search:         input.Search,
	})
}

func (s *AgreementService) Get(ctx context.Context, principal model.Principal, ref string) (*Detail, error) {
	subject, agreement, err := s.viewable(ctx, principal, ref)
	if err != nil {
		return nil, err
	}
	detail := &Detail{Agreement: agreement, CanEdit: subject.CanEdit(agreement)}
	if agreement.AttachmentKey != "" {
		url, err := s.storage.URL(ctx, agreement.AttachmentKey)
		if err != nil {
			s.log.Warn().Err(err).Str("agreement_id", agreement.Code).Msg("failed to resolve attachment url")
		}
		detail.AttachmentURL = url
	}
	return detail, nil
}

// FormData lists what the caller may choose from when filing an agreement.
func (s *AgreementService) FormData(ctx context.Context, principal model.Principal) (*FormData, error) {
	subject, err := s.creator(ctx, principal)
	if err != nil {
		return nil, err
	}

	departments, err := s.directory.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	filing := make([]model.Department, 0, len(departments))
	for _, d := range departments {
		if subject.CanFileUnder(d.ID) {
			filing = append(filing, d)
		}
	}

	vendors, err := s.directory.ListVendors(ctx)
	if err != nil {
		return nil, err
	}
	return &FormData{
		User:             subject.User,
		Departments:      filing,
		Vendors:          vendors,
		ReminderLeadDays: s.leadDays,
	}, nil
}

// Attachment opens the stored file; the caller closes Content.
func (s *AgreementService) Attachment(ctx context.Context, principal model.Principal, ref string) (*AttachmentFile, error) {
	_, agreement, err := s.viewable(ctx, principal, ref)
	if err != nil {
		return nil, err
	}
	if agreement.AttachmentKey == "" {
		return nil, fmt.Errorf("%w: agreement has no attachment", ErrNotFound)
	}
	content, err := s.storage.Open(ctx, agreement.AttachmentKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: attachment file is missing", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	name := agreement.OriginalFilename
	if name == "" {
		name = agreement.Code
	}
	return &AttachmentFile{Name: name, Content: content}, nil
}

// Export renders the visible agreements as a spreadsheet register.
func (s *AgreementService) Export(ctx context.Context, principal model.Principal, input ListInput) (*File, error) {
	subject, err := s.subject(ctx, principal)
	if err != nil {
		return nil, err
	}
	agreements, err := s.scoped(ctx, subject, input)
	if err != nil {
		return nil, err
	}
	today := s.today()
	content, err := s.excel.Generate(agreements, today)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:    fmt.Sprintf("agreements_%s.xlsx", today.Format("20060102")),
		Content: content,
	}, nil
}

// PDF renders the summary sheet of one agreement.
func (s *AgreementService) PDF(ctx context.Context, principal model.Principal, ref string) (*File, error) {
	_, agreement, err := s.viewable(ctx, principal, ref)
	if err != nil {
		return nil, err
	}
	assignees, err := s.agreements.ListAssignees(ctx, agreement.ID)
	if err != nil {
		return nil, err
	}
	content, err := s.pdf.Generate(*agreement, assignees, s.today())
	if err != nil {
		return nil, err
	}
	return &File{Name: agreement.Code + ".pdf", Content: content}, nil
}
