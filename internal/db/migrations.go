package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'agreement_status') THEN
			CREATE TYPE agreement_status AS ENUM ('draft', 'ongoing', 'expired', 'terminated');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'permission_type') THEN
			CREATE TYPE permission_type AS ENUM ('view', 'edit');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS departments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(100) NOT NULL UNIQUE,
		executive BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(254) NOT NULL UNIQUE,
		full_name VARCHAR(200) NOT NULL DEFAULT '',
		department_id UUID REFERENCES departments(id) ON DELETE SET NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_department_id ON users (department_id) WHERE department_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS department_permissions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		department_id UUID NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
		permission_type permission_type NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_department_permissions_user ON department_permissions (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_department_permissions_department ON department_permissions (department_id);`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(200) NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		email VARCHAR(254) NOT NULL DEFAULT '',
		phone VARCHAR(50) NOT NULL DEFAULT '',
		contact_person_name VARCHAR(200) NOT NULL DEFAULT '',
		contact_person_designation VARCHAR(200) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS agreements (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		agreement_code VARCHAR(20) NOT NULL,
		title VARCHAR(200) NOT NULL,
		agreement_reference VARCHAR(100) NOT NULL DEFAULT '',
		agreement_type_id UUID NOT NULL REFERENCES departments(id),
		department_id UUID NOT NULL REFERENCES departments(id),
		status agreement_status NOT NULL DEFAULT 'draft',
		start_date DATE NOT NULL,
		expiry_date DATE NOT NULL,
		reminder_time DATE NOT NULL,
		vendor_id UUID NOT NULL REFERENCES vendors(id),
		attachment_key TEXT,
		original_filename VARCHAR(255),
		creator_id UUID REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_agreement_dates CHECK (expiry_date > start_date),
		CONSTRAINT chk_agreement_reminder CHECK (reminder_time > start_date AND reminder_time < expiry_date)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_agreement_code ON agreements (agreement_code);`,
	`CREATE INDEX IF NOT EXISTS idx_agreements_department_id ON agreements (department_id);`,
	`CREATE INDEX IF NOT EXISTS idx_agreements_reminder ON agreements (status, reminder_time);`,
	`CREATE TABLE IF NOT EXISTS agreement_assignees (
		agreement_id UUID NOT NULL REFERENCES agreements(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		via VARCHAR(20) NOT NULL,
		PRIMARY KEY (agreement_id, user_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_agreement_assignees_user ON agreement_assignees (user_id);`,
	`CREATE TABLE IF NOT EXISTS agreement_sequences (
		year INTEGER PRIMARY KEY,
		last_value INTEGER NOT NULL
	);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
