package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/model"
)

// AgreementFilter scopes a listing. When AllDepartments is false only
// agreements filed under DepartmentIDs are returned.
type AgreementFilter struct {
	AllDepartments bool
	DepartmentIDs  []uuid.UUID
	DepartmentID   *uuid.UUID
	Status         *model.AgreementStatus
	Search         string
}

type AgreementRepository struct {
	db *gorm.DB
}

func NewAgreementRepository(db *gorm.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

const agreementColumns = `
	a.id,
	a.agreement_code AS code,
	a.title,
	a.agreement_reference AS reference,
	a.agreement_type_id,
	a.department_id,
	a.status,
	a.start_date,
	a.expiry_date,
	a.reminder_time,
	a.vendor_id,
	COALESCE(a.attachment_key, '') AS attachment_key,
	COALESCE(a.original_filename, '') AS original_filename,
	a.creator_id,
	a.created_at,
	a.updated_at,
	agreement_type.name AS agreement_type_name,
	department.name AS department_name,
	vendor.name AS vendor_name`

const agreementFrom = `
	FROM agreements a
	JOIN departments agreement_type ON agreement_type.id = a.agreement_type_id
	JOIN departments department ON department.id = a.department_id
	JOIN vendors vendor ON vendor.id = a.vendor_id`

func (r *AgreementRepository) List(ctx context.Context, filter AgreementFilter) ([]model.Agreement, error) {
	query := "SELECT" + agreementColumns + agreementFrom
	var (
		conditions []string
		args       []interface{}
	)
	if !filter.AllDepartments {
		if len(filter.DepartmentIDs) == 0 {
			return []model.Agreement{}, nil
		}
		conditions = append(conditions, "a.department_id IN ?")
		args = append(args, filter.DepartmentIDs)
	}
	if filter.DepartmentID != nil {
		conditions = append(conditions, "a.department_id = ?")
		args = append(args, *filter.DepartmentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "a.status = ?")
		args = append(args, *filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, "(a.title ILIKE ? OR a.agreement_code ILIKE ? OR vendor.name ILIKE ?)")
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.agreement_code DESC"

	var agreements []model.Agreement
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&agreements).Error; err != nil {
		return nil, err
	}
	return agreements, nil
}

func (r *AgreementRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Agreement, error) {
	return r.getOne(ctx, r.db.WithContext(ctx), "a.id = ?", id)
}

func (r *AgreementRepository) GetByCode(ctx context.Context, code string) (*model.Agreement, error) {
	return r.getOne(ctx, r.db.WithContext(ctx), "a.agreement_code = ?", code)
}

func (r *AgreementRepository) getOne(ctx context.Context, tx *gorm.DB, condition string, arg interface{}) (*model.Agreement, error) {
	var agreement model.Agreement
	err := tx.Raw("SELECT"+agreementColumns+agreementFrom+" WHERE "+condition+" LIMIT 1", arg).Scan(&agreement).Error
	if err != nil {
		return nil, err
	}
	if agreement.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	assignees, err := listAssignees(tx, agreement.ID)
	if err != nil {
		return nil, err
	}
	agreement.AssignedUsers = access.AssigneeUsers(assignees)
	return &agreement, nil
}

// Create assigns the next identifier of the creation year and stores the
// agreement together with its assignees in one transaction.
func (r *AgreementRepository) Create(ctx context.Context, agreement model.Agreement, assignees []access.Assignee) (*model.Agreement, error) {
	var saved *model.Agreement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		year := agreement.CreatedAt.Year()
		var seq int
		if err := tx.Raw(`
			INSERT INTO agreement_sequences (year, last_value)
			VALUES (?, 1)
			ON CONFLICT (year) DO UPDATE SET last_value = agreement_sequences.last_value + 1
			RETURNING last_value
		`, year).Scan(&seq).Error; err != nil {
			return err
		}

		var id uuid.UUID
		if err := tx.Raw(`
			INSERT INTO agreements (
				agreement_code,
				title,
				agreement_reference,
				agreement_type_id,
				department_id,
				status,
				start_date,
				expiry_date,
				reminder_time,
				vendor_id,
				attachment_key,
				original_filename,
				creator_id,
				created_at,
				updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)
			RETURNING id
		`,
			model.FormatAgreementCode(year, seq),
			agreement.Title,
			agreement.Reference,
			agreement.AgreementTypeID,
			agreement.DepartmentID,
			agreement.Status,
			agreement.StartDate,
			agreement.ExpiryDate,
			agreement.ReminderTime,
			agreement.VendorID,
			agreement.AttachmentKey,
			agreement.OriginalFilename,
			agreement.CreatorID,
			agreement.CreatedAt,
			agreement.CreatedAt,
		).Scan(&id).Error; err != nil {
			return err
		}

		if err := replaceAssignees(tx, id, assignees); err != nil {
			return err
		}

		var err error
		saved, err = r.getOne(ctx, tx, "a.id = ?", id)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// Update writes the mutable fields. Assignees are rewritten only when a
// non-nil set is passed.
func (r *AgreementRepository) Update(ctx context.Context, agreement model.Agreement, assignees []access.Assignee) (*model.Agreement, error) {
	var saved *model.Agreement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
			UPDATE agreements
			SET
				title = ?,
				agreement_reference = ?,
				agreement_type_id = ?,
				department_id = ?,
				status = ?,
				start_date = ?,
				expiry_date = ?,
				reminder_time = ?,
				vendor_id = ?,
				attachment_key = NULLIF(?, ''),
				original_filename = NULLIF(?, ''),
				updated_at = ?
			WHERE id = ?
		`,
			agreement.Title,
			agreement.Reference,
			agreement.AgreementTypeID,
			agreement.DepartmentID,
			agreement.Status,
			agreement.StartDate,
			agreement.ExpiryDate,
			agreement.ReminderTime,
			agreement.VendorID,
			agreement.AttachmentKey,
			agreement.OriginalFilename,
			agreement.UpdatedAt,
			agreement.ID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if assignees != nil {
			if err := replaceAssignees(tx, agreement.ID, assignees); err != nil {
				return err
			}
		}
		var err error
		saved, err = r.getOne(ctx, tx, "a.id = ?", agreement.ID)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

func (r *AgreementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM agreements WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *AgreementRepository) ListAssignees(ctx context.Context, agreementID uuid.UUID) ([]access.Assignee, error) {
	return listAssignees(r.db.WithContext(ctx), agreementID)
}

// ReplaceDepartmentAssignees rewrites the assignees of every agreement filed
// under the department in one transaction and reports how many were touched.
func (r *AgreementRepository) ReplaceDepartmentAssignees(ctx context.Context, departmentID uuid.UUID, assignees []access.Assignee) (int, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(`
			SELECT id FROM agreements WHERE department_id = ? ORDER BY created_at FOR UPDATE
		`, departmentID).Scan(&ids).Error; err != nil {
			return err
		}
		for _, id := range ids {
			if err := replaceAssignees(tx, id, assignees); err != nil {
				return fmt.Errorf("replace assignees of %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ListDueReminders returns ongoing agreements whose reminder falls on today,
// or passed without the agreement having expired yet.
func (r *AgreementRepository) ListDueReminders(ctx context.Context, today time.Time) ([]model.Agreement, error) {
	var agreements []model.Agreement
	err := r.db.WithContext(ctx).Raw("SELECT"+agreementColumns+agreementFrom+`
		WHERE a.status = ?
			AND (a.reminder_time = ? OR (a.reminder_time < ? AND a.expiry_date >= ?))
		ORDER BY a.expiry_date ASC
	`, model.AgreementStatusOngoing, today, today, today).Scan(&agreements).Error
	if err != nil {
		return nil, err
	}
	for i := range agreements {
		assignees, err := r.ListAssignees(ctx, agreements[i].ID)
		if err != nil {
			return nil, err
		}
		agreements[i].AssignedUsers = access.AssigneeUsers(assignees)
	}
	return agreements, nil
}

type assigneeRow struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	DepartmentID *uuid.UUID
	IsActive     bool
	IsSuperuser  bool
	Via          string
}

func listAssignees(tx *gorm.DB, agreementID uuid.UUID) ([]access.Assignee, error) {
	var rows []assigneeRow
	if err := tx.Raw(`
		SELECT
			u.id,
			u.email,
			u.full_name,
			u.department_id,
			u.is_active,
			u.is_superuser,
			aa.via
		FROM agreement_assignees aa
		JOIN users u ON u.id = aa.user_id
		WHERE aa.agreement_id = ?
		ORDER BY LOWER(u.email)
	`, agreementID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]access.Assignee, 0, len(rows))
	for _, row := range rows {
		result = append(result, access.Assignee{
			User: model.User{
				ID:           row.ID,
				Email:        row.Email,
				FullName:     row.FullName,
				DepartmentID: row.DepartmentID,
				IsActive:     row.IsActive,
				IsSuperuser:  row.IsSuperuser,
			},
			Via: access.Via(row.Via),
		})
	}
	return result, nil
}

func replaceAssignees(tx *gorm.DB, agreementID uuid.UUID, assignees []access.Assignee) error {
	if err := tx.Exec(`DELETE FROM agreement_assignees WHERE agreement_id = ?`, agreementID).Error; err != nil {
		return err
	}
	for _, assignee := range assignees {
		if err := tx.Exec(`
			INSERT INTO agreement_assignees (agreement_id, user_id, via)
			VALUES (?, ?, ?)
			ON CONFLICT (agreement_id, user_id) DO NOTHING
		`, agreementID, assignee.User.ID, string(assignee.Via)).Error; err != nil {
			return err
		}
	}
	return nil
}
