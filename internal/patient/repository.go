package patient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const patientColumns = `
	p.id, COALESCE(p.hospital_id, ''), p.name, p.bed_number, p.status,
	p.age, COALESCE(p.sex, ''), p.weight, p.height,
	to_char(p.admission_date, 'YYYY-MM-DD'), COALESCE(p.condition, ''),
	COALESCE(p.assigned_nurse_id, ''), COALESCE(p.assigned_doctor_id, ''),
	COALESCE(n.full_name, ''), COALESCE(d.full_name, ''),
	p.hi271_data, p.code_hash, p.created_at, p.updated_at`

const patientFrom = `
	FROM patients p
	LEFT JOIN users n ON p.assigned_nurse_id = n.id
	LEFT JOIN users d ON p.assigned_doctor_id = d.id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner, extra ...interface{}) (*Patient, error) {
	var p Patient
	var age sql.NullInt64
	var weight, height sql.NullFloat64
	var admission sql.NullString
	var hi271 []byte

	dest := []interface{}{
		&p.ID, &p.HospitalID, &p.Name, &p.BedNumber, &p.Status,
		&age, &p.Sex, &weight, &height,
		&admission, &p.Condition,
		&p.AssignedNurseID, &p.AssignedDoctorID,
		&p.NurseName, &p.DoctorName,
		&hi271, &p.CodeHash, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	if weight.Valid {
		p.Weight = &weight.Float64
	}
	if height.Valid {
		p.Height = &height.Float64
	}
	if admission.Valid {
		p.AdmissionDate = &admission.String
	}
	if len(hi271) > 0 {
		p.HI271Data = hi271
	}
	return &p, nil
}

// CreatePatient inserts the patient, assigning its ID, and returns the
// stored row with staff names resolved.
func (r *Repository) CreatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	p.ID = uuid.New().String()

	query := `
		INSERT INTO patients
		(id, hospital_id, name, bed_number, status, age, sex, weight, height, admission_date,
		 condition, assigned_nurse_id, assigned_doctor_id, code_hash, hi271_data)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, NULLIF($7, ''), $8, $9, NULLIF($10, '')::date,
		 NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), $14, $15)
	`

	var admission string
	if p.AdmissionDate != nil {
		admission = *p.AdmissionDate
	}

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.HospitalID,
		p.Name,
		p.BedNumber,
		p.Status,
		p.Age,
		p.Sex,
		p.Weight,
		p.Height,
		admission,
		p.Condition,
		p.AssignedNurseID,
		p.AssignedDoctorID,
		p.CodeHash,
		jsonbArg(p.HI271Data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert patient: %w", err)
	}

	log.WithFields(log.Fields{"patient_id": p.ID, "bed": p.BedNumber}).Info("Created patient")
	return r.GetPatient(ctx, p.ID)
}

// GetPatient loads a fresh snapshot of one patient.
func (r *Repository) GetPatient(ctx context.Context, id string) (*Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPatientNotFound
	}

	query := `SELECT ` + patientColumns + patientFrom + ` WHERE p.id = $1`

	p, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return p, nil
}

// ListPatients returns one page of patients, newest first, and the total
// number of matches.
func (r *Repository) ListPatients(ctx context.Context, f ListFilter) ([]Patient, int, error) {
	var conds []string
	var args []interface{}
	argIndex := 1

	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("p.status = $%d", argIndex))
		args = append(args, f.Status)
		argIndex++
	}
	if f.AssignedNurseID != "" {
		conds = append(conds, fmt.Sprintf("p.assigned_nurse_id = $%d", argIndex))
		args = append(args, f.AssignedNurseID)
		argIndex++
	}
	if f.AssignedDoctorID != "" {
		conds = append(conds, fmt.Sprintf("p.assigned_doctor_id = $%d", argIndex))
		args = append(args, f.AssignedDoctorID)
		argIndex++
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		conds = append(conds, fmt.Sprintf(
			"(p.name ILIKE $%[1]d OR p.bed_number ILIKE $%[1]d OR COALESCE(p.condition, '') ILIKE $%[1]d OR COALESCE(p.hospital_id, '') ILIKE $%[1]d)",
			argIndex))
		args = append(args, "%"+search+"%")
		argIndex++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM patients p` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := `SELECT ` + patientColumns + patientFrom + where +
		fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`, argIndex, argIndex+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *p)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating patients: %w", err)
	}

	return patients, total, nil
}

// UpdatePatient applies the non-nil fields of c and returns the new row.
func (r *Repository) UpdatePatient(ctx context.Context, id string, c Changes) (*Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPatientNotFound
	}

	var updates []string
	var args []interface{}
	argIndex := 1

	set := func(expr string, v interface{}) {
		updates = append(updates, fmt.Sprintf(expr, argIndex))
		args = append(args, v)
		argIndex++
	}

	if c.HospitalID != nil {
		set("hospital_id = NULLIF($%d, '')", *c.HospitalID)
	}
	if c.Name != nil {
		set("name = $%d", strings.TrimSpace(*c.Name))
	}
	if c.BedNumber != nil {
		set("bed_number = $%d", strings.TrimSpace(*c.BedNumber))
	}
	if c.Status != nil {
		set("status = $%d", *c.Status)
	}
	if c.Age != nil {
		set("age = $%d", *c.Age)
	}
	if c.Sex != nil {
		set("sex = NULLIF($%d, '')", *c.Sex)
	}
	if c.Weight != nil {
		set("weight = $%d", *c.Weight)
	}
	if c.Height != nil {
		set("height = $%d", *c.Height)
	}
	if c.AdmissionDate != nil {
		set("admission_date = NULLIF($%d, '')::date", *c.AdmissionDate)
	}
	if c.Condition != nil {
		set("condition = NULLIF($%d, '')", *c.Condition)
	}
	if c.AssignedNurseID != nil {
		set("assigned_nurse_id = NULLIF($%d, '')", *c.AssignedNurseID)
	}
	if c.AssignedDoctorID != nil {
		set("assigned_doctor_id = NULLIF($%d, '')", *c.AssignedDoctorID)
	}
	if c.HI271Data != nil {
		set("hi271_data = $%d", jsonbArg(c.HI271Data))
	}
	if c.CodeHash != nil {
		set("code_hash = $%d", *c.CodeHash)
	}

	if len(updates) == 0 {
		return nil, ErrNoChanges
	}

	set("updated_at = $%d", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE patients SET %s WHERE id = $%d RETURNING id`,
		strings.Join(updates, ", "), argIndex)

	var updatedID string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&updatedID)
	if err == sql.ErrNoRows {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	return r.GetPatient(ctx, updatedID)
}

// CountByStatus returns the number of admitted patients per status.
func (r *Repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM patients GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	defer rows.Close()

	counts := []StatusCount{}
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Total); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// jsonbArg maps a raw JSON document onto a JSONB parameter. JSON null and
// empty input become SQL NULL.
func jsonbArg(raw []byte) interface{} {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	return s
}
