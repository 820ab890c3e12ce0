package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/snowops-agreements/internal/model"
)

// DirectoryRepository reads departments, users, vendors and department grants.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

const userColumns = `u.id, u.email, u.full_name, u.department_id, u.is_active, u.is_superuser`

func (r *DirectoryRepository) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+userColumns+`
		FROM users u
		WHERE u.id = ?
		LIMIT 1
	`, id).Scan(&user).Error; err != nil {
		return nil, err
	}
	if user.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *DirectoryRepository) GetDepartment(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	var department model.Department
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, executive, created_at
		FROM departments
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&department).Error; err != nil {
		return nil, err
	}
	if department.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &department, nil
}

func (r *DirectoryRepository) ListDepartments(ctx context.Context) ([]model.Department, error) {
	var departments []model.Department
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, executive, created_at
		FROM departments
		ORDER BY name ASC
	`).Scan(&departments).Error; err != nil {
		return nil, err
	}
	return departments, nil
}

func (r *DirectoryRepository) GetVendor(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, address, email, phone, contact_person_name, contact_person_designation
		FROM vendors
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&vendor).Error; err != nil {
		return nil, err
	}
	if vendor.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &vendor, nil
}

func (r *DirectoryRepository) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	var vendors []model.Vendor
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, address, email, phone, contact_person_name, contact_person_designation
		FROM vendors
		ORDER BY name ASC
	`).Scan(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *DirectoryRepository) ListGrants(ctx context.Context, userID uuid.UUID) ([]model.DepartmentPermission, error) {
	var grants []model.DepartmentPermission
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, user_id, department_id, permission_type, created_at
		FROM department_permissions
		WHERE user_id = ?
	`, userID).Scan(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *DirectoryRepository) DepartmentMembers(ctx context.Context, departmentID uuid.UUID) ([]model.User, error) {
	return r.listUsers(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.department_id = ?
		ORDER BY LOWER(u.email)
	`, departmentID)
}

// DepartmentGrantees returns users holding any grant on the department.
func (r *DirectoryRepository) DepartmentGrantees(ctx context.Context, departmentID uuid.UUID) ([]model.User, error) {
	return r.listUsers(ctx, `
		SELECT DISTINCT `+userColumns+`
		FROM users u
		JOIN department_permissions dp ON dp.user_id = u.id
		WHERE dp.department_id = ?
		ORDER BY LOWER(u.email)
	`, departmentID)
}

func (r *DirectoryRepository) ExecutiveUsers(ctx context.Context) ([]model.User, error) {
	return r.listUsers(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN departments d ON d.id = u.department_id
		WHERE d.executive
		ORDER BY LOWER(u.email)
	`)
}

// ListActiveUsers returns active users, limited to one department when departmentID is set.
func (r *DirectoryRepository) ListActiveUsers(ctx context.Context, departmentID *uuid.UUID) ([]model.User, error) {
	if departmentID == nil {
		return r.listUsers(ctx, `
			SELECT `+userColumns+`
			FROM users u
			WHERE u.is_active
			ORDER BY LOWER(u.email)
		`)
	}
	return r.listUsers(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.is_active AND u.department_id = ?
		ORDER BY LOWER(u.email)
	`, *departmentID)
}

// GrantPermission inserts the grant unless an identical one already exists.
func (r *DirectoryRepository) GrantPermission(ctx context.Context, userID, departmentID uuid.UUID, permission model.PermissionType) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO department_permissions (user_id, department_id, permission_type)
		SELECT ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM department_permissions
			WHERE user_id = ? AND department_id = ? AND permission_type = ?
		)
	`, userID, departmentID, permission, userID, departmentID, permission).Error
}

// RevokePermission removes every matching grant, including duplicates.
func (r *DirectoryRepository) RevokePermission(ctx context.Context, userID, departmentID uuid.UUID, permission model.PermissionType) error {
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM department_permissions
		WHERE user_id = ? AND department_id = ? AND permission_type = ?
	`, userID, departmentID, permission).Error
}

func (r *DirectoryRepository) listUsers(ctx context.Context, query string, args ...interface{}) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
