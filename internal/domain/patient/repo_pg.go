package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maternity/records/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// whereClause accumulates AND-ed conditions with numbered placeholders.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) next() int { return len(w.args) + 1 }

func (w *whereClause) add(cond string, arg interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

func (w *whereClause) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, national_id, check_digit, given_names, paternal_surname, maternal_surname,
	full_name, birth_date, sex, phone, email, address, marital_status, education_level,
	clinic_id, nationality_code, indigenous_group_id, care_state, obstetric_risk,
	emergency_contact_name, emergency_contact_phone, registered_by, active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.NationalID, &p.CheckDigit, &p.GivenNames, &p.PaternalSurname, &p.MaternalSurname,
		&p.FullName, &p.BirthDate, &p.Sex, &p.Phone, &p.Email, &p.Address, &p.MaritalStatus, &p.EducationLevel,
		&p.ClinicID, &p.NationalityCode, &p.IndigenousGroupID, &p.CareState, &p.ObstetricRisk,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.RegisteredBy, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, national_id, check_digit, given_names, paternal_surname, maternal_surname,
			full_name, birth_date, sex, phone, email, address, marital_status, education_level,
			clinic_id, nationality_code, indigenous_group_id, care_state, obstetric_risk,
			emergency_contact_name, emergency_contact_phone, registered_by, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		RETURNING created_at, updated_at`,
		p.ID, p.NationalID, p.CheckDigit, p.GivenNames, p.PaternalSurname, p.MaternalSurname,
		p.FullName, p.BirthDate, p.Sex, p.Phone, p.Email, p.Address, p.MaritalStatus, p.EducationLevel,
		p.ClinicID, p.NationalityCode, p.IndigenousGroupID, p.CareState, p.ObstetricRisk,
		p.EmergencyContactName, p.EmergencyContactPhone, p.RegisteredBy, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET national_id=$2, check_digit=$3, given_names=$4, paternal_surname=$5,
			maternal_surname=$6, full_name=$7, birth_date=$8, sex=$9, phone=$10, email=$11, address=$12,
			marital_status=$13, education_level=$14, clinic_id=$15, nationality_code=$16,
			indigenous_group_id=$17, care_state=$18, obstetric_risk=$19, emergency_contact_name=$20,
			emergency_contact_phone=$21, active=$22, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.NationalID, p.CheckDigit, p.GivenNames, p.PaternalSurname,
		p.MaternalSurname, p.FullName, p.BirthDate, p.Sex, p.Phone, p.Email, p.Address,
		p.MaritalStatus, p.EducationLevel, p.ClinicID, p.NationalityCode,
		p.IndigenousGroupID, p.CareState, p.ObstetricRisk, p.EmergencyContactName,
		p.EmergencyContactPhone, p.Active,
	).Scan(&p.UpdatedAt)
}

func (r *patientRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	var w whereClause
	if q := strings.TrimSpace(f.Query); q != "" {
		n := w.next()
		w.add(fmt.Sprintf(`(national_id ILIKE $%[1]d OR given_names ILIKE $%[1]d OR paternal_surname ILIKE $%[1]d
			OR maternal_surname ILIKE $%[1]d OR full_name ILIKE $%[1]d)`, n), "%"+q+"%")
	}
	if f.CareState != "" {
		w.add(fmt.Sprintf("care_state = $%d", w.next()), f.CareState)
	}
	if f.ObstetricRisk != "" {
		w.add(fmt.Sprintf("obstetric_risk = $%d", w.next()), f.ObstetricRisk)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(w.args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+patientCols+` FROM patient%s
		ORDER BY paternal_surname, given_names LIMIT $%d OFFSET $%d`, w.sql(), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) NationalIDTaken(ctx context.Context, nationalID string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patient WHERE lower(national_id) = lower($1) AND id <> $2)`,
		nationalID, exclude).Scan(&taken)
	return taken, err
}

func (r *patientRepoPG) FindSimilar(ctx context.Context, q SimilarQuery) ([]*Patient, error) {
	var w whereClause
	w.add(fmt.Sprintf("lower(paternal_surname) = lower($%d)", w.next()), q.PaternalSurname)
	w.add(fmt.Sprintf("birth_date = $%d", w.next()), q.BirthDate)
	w.add(fmt.Sprintf("id <> $%d", w.next()), q.Exclude)
	if q.MaternalSurname != "" {
		w.add(fmt.Sprintf("lower(maternal_surname) = lower($%d)", w.next()), q.MaternalSurname)
	}
	args := append(w.args, q.Limit)

	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+patientCols+` FROM patient%s
		ORDER BY created_at LIMIT $%d`, w.sql(), len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========== Clinical Case Repository ===========

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository {
	return &caseRepoPG{pool: pool}
}

func (r *caseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const caseCols = `id, patient_id, title, summary, specialty, priority, status,
	responsible_clinician_id, created_at, updated_at`

func scanCase(row pgx.Row) (*ClinicalCase, error) {
	var c ClinicalCase
	err := row.Scan(&c.ID, &c.PatientID, &c.Title, &c.Summary, &c.Specialty, &c.Priority, &c.Status,
		&c.ResponsibleClinicianID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepoPG) Create(ctx context.Context, c *ClinicalCase) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinical_case (id, patient_id, title, summary, specialty, priority, status, responsible_clinician_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		c.ID, c.PatientID, c.Title, c.Summary, c.Specialty, c.Priority, c.Status, c.ResponsibleClinicianID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalCase, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx, `SELECT `+caseCols+` FROM clinical_case WHERE id = $1`, id))
}

func (r *caseRepoPG) Update(ctx context.Context, c *ClinicalCase) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE clinical_case SET title=$2, summary=$3, specialty=$4, priority=$5, status=$6,
			responsible_clinician_id=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Title, c.Summary, c.Specialty, c.Priority, c.Status, c.ResponsibleClinicianID,
	).Scan(&c.UpdatedAt)
}

func (r *caseRepoPG) List(ctx context.Context, f CaseFilter, limit, offset int) ([]*ClinicalCase, int, error) {
	var w whereClause
	if f.PatientID != nil {
		w.add(fmt.Sprintf("patient_id = $%d", w.next()), *f.PatientID)
	}
	if f.Status != "" {
		w.add(fmt.Sprintf("status = $%d", w.next()), f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_case`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(w.args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+caseCols+` FROM clinical_case%s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, w.sql(), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ClinicalCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
