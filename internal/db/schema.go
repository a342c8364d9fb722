package db

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// EnsureSchema creates the service tables, indexes and triggers. Every
// statement is idempotent so it is safe to run on each deploy.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	log.Info("Ensuring database schema...")

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	log.Info("✓ Database schema is up to date")
	return nil
}

var schemaStatements = []string{
	createUsersTable,
	createPatientsTable,
	createRecordsTable,
	createIndexes,
	createUpdatedAtFunction,
	`DROP TRIGGER IF EXISTS patients_updated_at ON patients`,
	`CREATE TRIGGER patients_updated_at BEFORE UPDATE ON patients
		FOR EACH ROW EXECUTE FUNCTION set_updated_at()`,
	`DROP TRIGGER IF EXISTS patient_records_updated_at ON patient_records`,
	`CREATE TRIGGER patient_records_updated_at BEFORE UPDATE ON patient_records
		FOR EACH ROW EXECUTE FUNCTION set_updated_at()`,
}

const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('admin', 'nurse', 'doctor')),
			full_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY,
			hospital_id TEXT,
			name TEXT NOT NULL,
			bed_number TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Stable',
			age INTEGER,
			sex TEXT,
			weight DOUBLE PRECISION,
			height DOUBLE PRECISION,
			admission_date DATE,
			condition TEXT,
			assigned_nurse_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			assigned_doctor_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			code_hash TEXT NOT NULL,
			hi271_data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	createRecordsTable = `
		CREATE TABLE IF NOT EXISTS patient_records (
			id UUID PRIMARY KEY,
			patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
			section TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			status TEXT NOT NULL DEFAULT 'submitted',
			recorded_by_id TEXT NOT NULL,
			recorded_by_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	createIndexes = `
		CREATE INDEX IF NOT EXISTS idx_patients_assigned_nurse ON patients(assigned_nurse_id);
		CREATE INDEX IF NOT EXISTS idx_patients_assigned_doctor ON patients(assigned_doctor_id);
		CREATE INDEX IF NOT EXISTS idx_patients_status ON patients(status);
		CREATE INDEX IF NOT EXISTS idx_records_patient_time ON patient_records(patient_id, recorded_at DESC);
		CREATE INDEX IF NOT EXISTS idx_records_patient_section ON patient_records(patient_id, section);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`

	createUpdatedAtFunction = `
		CREATE OR REPLACE FUNCTION set_updated_at() RETURNS TRIGGER AS $$
		BEGIN
			NEW.updated_at = NOW();
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`
)
