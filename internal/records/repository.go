package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// The recorder name follows the users table and falls back to the name
// captured when the record was written.
const recordSelect = `
	SELECT r.id, r.patient_id, r.section, r.recorded_at, r.data, r.status,
	       r.recorded_by_id, COALESCE(u.full_name, r.recorded_by_name),
	       r.created_at, r.updated_at
	FROM patient_records r
	LEFT JOIN users u ON r.recorded_by_id = u.id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var section string
	var data []byte

	err := row.Scan(
		&rec.ID, &rec.PatientID, &section, &rec.Timestamp, &data, &rec.Status,
		&rec.RecordedBy.ID, &rec.RecordedBy.Name,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Section = access.Section(section)
	rec.Data = map[string]interface{}{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return nil, fmt.Errorf("failed to decode record data: %w", err)
		}
	}
	return &rec, nil
}

// GetRecord loads one record belonging to patientID.
func (r *Repository) GetRecord(ctx context.Context, patientID, recordID string) (*Record, error) {
	if !validID(patientID) || !validID(recordID) {
		return nil, ErrRecordNotFound
	}

	query := recordSelect + ` WHERE r.id = $1 AND r.patient_id = $2`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, recordID, patientID))
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}
	return rec, nil
}

// InsertRecord stores rec, assigning its ID. A zero Timestamp becomes the
// submission time.
func (r *Repository) InsertRecord(ctx context.Context, rec *Record) (*Record, error) {
	rec.ID = uuid.New().String()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = DefaultStatus
	}

	data, err := marshalData(rec.Data)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO patient_records
		(id, patient_id, section, recorded_at, data, status, recorded_by_id, recorded_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.PatientID,
		string(rec.Section),
		rec.Timestamp,
		data,
		rec.Status,
		rec.RecordedBy.ID,
		rec.RecordedBy.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	log.WithFields(log.Fields{
		"record_id":  rec.ID,
		"patient_id": rec.PatientID,
		"section":    rec.Section,
	}).Debug("Inserted record")

	return r.GetRecord(ctx, rec.PatientID, rec.ID)
}

// UpdateRecord overwrites the non-nil fields of patch. The section column
// is never written.
func (r *Repository) UpdateRecord(ctx context.Context, id string, patch Patch) (*Record, error) {
	if !validID(id) {
		return nil, ErrRecordNotFound
	}

	var updates []string
	var args []interface{}
	argIndex := 1

	if patch.Data != nil {
		data, err := marshalData(patch.Data)
		if err != nil {
			return nil, err
		}
		updates = append(updates, fmt.Sprintf("data = $%d", argIndex))
		args = append(args, data)
		argIndex++
	}
	if patch.Status != nil {
		updates = append(updates, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *patch.Status)
		argIndex++
	}
	if patch.Timestamp != nil {
		updates = append(updates, fmt.Sprintf("recorded_at = $%d", argIndex))
		args = append(args, patch.Timestamp.UTC())
		argIndex++
	}

	if len(updates) == 0 {
		return nil, ErrNoChanges
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE patient_records SET %s WHERE id = $%d RETURNING patient_id`,
		strings.Join(updates, ", "), argIndex)

	var patientID string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&patientID)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	return r.GetRecord(ctx, patientID, id)
}

// DeleteRecord removes one record.
func (r *Repository) DeleteRecord(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrRecordNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM patient_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListRecords returns a patient's records, newest timestamp first.
func (r *Repository) ListRecords(ctx context.Context, patientID string, f ListFilter) ([]Record, error) {
	records := []Record{}
	if !validID(patientID) {
		return records, nil
	}

	query := recordSelect + ` WHERE r.patient_id = $1`
	args := []interface{}{patientID}
	argIndex := 2

	if f.Section != "" {
		query += fmt.Sprintf(" AND r.section = $%d", argIndex)
		args = append(args, string(f.Section))
		argIndex++
	}
	if f.Hour != nil {
		query += fmt.Sprintf(" AND EXTRACT(HOUR FROM r.recorded_at AT TIME ZONE 'UTC') = $%d", argIndex)
		args = append(args, *f.Hour)
	}
	query += ` ORDER BY r.recorded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// marshalData encodes record data as text; lib/pq would send []byte as bytea.
func marshalData(data map[string]interface{}) (string, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode record data: %w", err)
	}
	return string(b), nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
