package obstetrics

import (
	"context"
	"time"

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

type pgBase struct{ pool *pgxpool.Pool }

func (r pgBase) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var items []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// =========== Birth Episode Repository ===========

type birthRepoPG struct{ pgBase }

func NewBirthRepoPG(pool *pgxpool.Pool) BirthRepository {
	return &birthRepoPG{pgBase{pool}}
}

const birthCols = `id, patient_id, birth_at, admitted_at, birth_type_id, birth_position, birth_position_other,
	room, maternal_age, parity, prenatal_control, severe_preeclampsia, eclampsia, sepsis, ovular_infection,
	other_pathology_detail, delayed_cord_clamping, skin_to_skin, skin_to_skin_minutes,
	first_hour_breastfeeding, rooming_in, vdrl_positive, hepatitis_b_positive, hiv_positive,
	complications, observations, labor_duration_min, responsible_professional_id, created_at, updated_at`

func scanBirth(row pgx.Row) (*BirthEpisode, error) {
	var b BirthEpisode
	err := row.Scan(&b.ID, &b.PatientID, &b.BirthAt, &b.AdmittedAt, &b.BirthTypeID, &b.BirthPosition, &b.BirthPositionOther,
		&b.Room, &b.MaternalAge, &b.Parity, &b.PrenatalControl, &b.SeverePreeclampsia, &b.Eclampsia, &b.Sepsis, &b.OvularInfection,
		&b.OtherPathologyDetail, &b.DelayedCordClamping, &b.SkinToSkin, &b.SkinToSkinMinutes,
		&b.FirstHourBreastfeeding, &b.RoomingIn, &b.VDRLPositive, &b.HepatitisBPositive, &b.HIVPositive,
		&b.Complications, &b.Observations, &b.LaborDurationMin, &b.ResponsibleProfessionalID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *birthRepoPG) Create(ctx context.Context, b *BirthEpisode) error {
	b.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO birth_episode (id, patient_id, birth_at, admitted_at, birth_type_id, birth_position,
			birth_position_other, room, maternal_age, parity, prenatal_control, severe_preeclampsia, eclampsia,
			sepsis, ovular_infection, other_pathology_detail, delayed_cord_clamping, skin_to_skin,
			skin_to_skin_minutes, first_hour_breastfeeding, rooming_in, vdrl_positive, hepatitis_b_positive,
			hiv_positive, complications, observations, labor_duration_min, responsible_professional_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)
		RETURNING created_at, updated_at`,
		b.ID, b.PatientID, b.BirthAt, b.AdmittedAt, b.BirthTypeID, b.BirthPosition,
		b.BirthPositionOther, b.Room, b.MaternalAge, b.Parity, b.PrenatalControl, b.SeverePreeclampsia, b.Eclampsia,
		b.Sepsis, b.OvularInfection, b.OtherPathologyDetail, b.DelayedCordClamping, b.SkinToSkin,
		b.SkinToSkinMinutes, b.FirstHourBreastfeeding, b.RoomingIn, b.VDRLPositive, b.HepatitisBPositive,
		b.HIVPositive, b.Complications, b.Observations, b.LaborDurationMin, b.ResponsibleProfessionalID,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *birthRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BirthEpisode, error) {
	return scanBirth(r.conn(ctx).QueryRow(ctx, `SELECT `+birthCols+` FROM birth_episode WHERE id = $1`, id))
}

func (r *birthRepoPG) Update(ctx context.Context, b *BirthEpisode) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE birth_episode SET birth_at=$2, admitted_at=$3, birth_type_id=$4, birth_position=$5,
			birth_position_other=$6, room=$7, maternal_age=$8, parity=$9, prenatal_control=$10,
			severe_preeclampsia=$11, eclampsia=$12, sepsis=$13, ovular_infection=$14, other_pathology_detail=$15,
			delayed_cord_clamping=$16, skin_to_skin=$17, skin_to_skin_minutes=$18, first_hour_breastfeeding=$19,
			rooming_in=$20, vdrl_positive=$21, hepatitis_b_positive=$22, hiv_positive=$23, complications=$24,
			observations=$25, labor_duration_min=$26, responsible_professional_id=$27, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		b.ID, b.BirthAt, b.AdmittedAt, b.BirthTypeID, b.BirthPosition,
		b.BirthPositionOther, b.Room, b.MaternalAge, b.Parity, b.PrenatalControl,
		b.SeverePreeclampsia, b.Eclampsia, b.Sepsis, b.OvularInfection, b.OtherPathologyDetail,
		b.DelayedCordClamping, b.SkinToSkin, b.SkinToSkinMinutes, b.FirstHourBreastfeeding,
		b.RoomingIn, b.VDRLPositive, b.HepatitisBPositive, b.HIVPositive, b.Complications,
		b.Observations, b.LaborDurationMin, b.ResponsibleProfessionalID,
	).Scan(&b.UpdatedAt)
}

func (r *birthRepoPG) List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*BirthEpisode, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM birth_episode WHERE $1::uuid IS NULL OR patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+birthCols+` FROM birth_episode
		WHERE $1::uuid IS NULL OR patient_id = $1
		ORDER BY birth_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanBirth)
	return items, total, err
}

func (r *birthRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*BirthEpisode, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+birthCols+` FROM birth_episode
		WHERE patient_id = $1 ORDER BY birth_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBirth)
}

// =========== Newborn Repository ===========

type newbornRepoPG struct{ pgBase }

func NewNewbornRepoPG(pool *pgxpool.Pool) NewbornRepository {
	return &newbornRepoPG{pgBase{pool}}
}

const newbornCols = `id, birth_episode_id, identifier, sex, weight_grams, length_cm, head_circumference_cm,
	apgar1, apgar5, gestational_age_weeks, resuscitation, has_malformation, malformation_detail,
	initial_condition, referral, discharge_diagnosis, follow_up_control_date, created_at, updated_at`

func scanNewborn(row pgx.Row) (*Newborn, error) {
	var n Newborn
	err := row.Scan(&n.ID, &n.BirthEpisodeID, &n.Identifier, &n.Sex, &n.WeightGrams, &n.LengthCM, &n.HeadCircumferenceCM,
		&n.Apgar1, &n.Apgar5, &n.GestationalAgeWeeks, &n.Resuscitation, &n.HasMalformation, &n.MalformationDetail,
		&n.InitialCondition, &n.Referral, &n.DischargeDiagnosis, &n.FollowUpControlDate, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *newbornRepoPG) Create(ctx context.Context, n *Newborn) error {
	n.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO newborn (id, birth_episode_id, identifier, sex, weight_grams, length_cm, head_circumference_cm,
			apgar1, apgar5, gestational_age_weeks, resuscitation, has_malformation, malformation_detail,
			initial_condition, referral, discharge_diagnosis, follow_up_control_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		n.ID, n.BirthEpisodeID, n.Identifier, n.Sex, n.WeightGrams, n.LengthCM, n.HeadCircumferenceCM,
		n.Apgar1, n.Apgar5, n.GestationalAgeWeeks, n.Resuscitation, n.HasMalformation, n.MalformationDetail,
		n.InitialCondition, n.Referral, n.DischargeDiagnosis, n.FollowUpControlDate,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *newbornRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Newborn, error) {
	return scanNewborn(r.conn(ctx).QueryRow(ctx, `SELECT `+newbornCols+` FROM newborn WHERE id = $1`, id))
}

func (r *newbornRepoPG) Update(ctx context.Context, n *Newborn) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE newborn SET identifier=$2, sex=$3, weight_grams=$4, length_cm=$5, head_circumference_cm=$6,
			apgar1=$7, apgar5=$8, gestational_age_weeks=$9, resuscitation=$10, has_malformation=$11,
			malformation_detail=$12, initial_condition=$13, referral=$14, discharge_diagnosis=$15,
			follow_up_control_date=$16, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		n.ID, n.Identifier, n.Sex, n.WeightGrams, n.LengthCM, n.HeadCircumferenceCM,
		n.Apgar1, n.Apgar5, n.GestationalAgeWeeks, n.Resuscitation, n.HasMalformation,
		n.MalformationDetail, n.InitialCondition, n.Referral, n.DischargeDiagnosis,
		n.FollowUpControlDate,
	).Scan(&n.UpdatedAt)
}

func (r *newbornRepoPG) List(ctx context.Context, birthEpisodeID *uuid.UUID, limit, offset int) ([]*Newborn, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM newborn WHERE $1::uuid IS NULL OR birth_episode_id = $1`, birthEpisodeID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+newbornCols+` FROM newborn
		WHERE $1::uuid IS NULL OR birth_episode_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, birthEpisodeID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanNewborn)
	return items, total, err
}

func (r *newbornRepoPG) ListByEpisode(ctx context.Context, birthEpisodeID uuid.UUID) ([]*Newborn, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+newbornCols+` FROM newborn
		WHERE birth_episode_id = $1 ORDER BY created_at`, birthEpisodeID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNewborn)
}

func (r *newbornRepoPG) CountByEpisode(ctx context.Context, birthEpisodeID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM newborn WHERE birth_episode_id = $1`, birthEpisodeID).Scan(&n)
	return n, err
}

func (r *newbornRepoPG) AddEvent(ctx context.Context, e *NewbornEvent) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO newborn_event (id, newborn_id, event_type, occurred_at, result, observations)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		e.ID, e.NewbornID, e.EventType, e.OccurredAt, e.Result, e.Observations,
	).Scan(&e.CreatedAt)
}

func (r *newbornRepoPG) ListEvents(ctx context.Context, newbornID uuid.UUID) ([]*NewbornEvent, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, newborn_id, event_type, occurred_at, result, observations, created_at
		FROM newborn_event WHERE newborn_id = $1 ORDER BY occurred_at`, newbornID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (*NewbornEvent, error) {
		var e NewbornEvent
		if err := row.Scan(&e.ID, &e.NewbornID, &e.EventType, &e.OccurredAt, &e.Result, &e.Observations, &e.CreatedAt); err != nil {
			return nil, err
		}
		return &e, nil
	})
}

// =========== Discharge Repository ===========

type dischargeRepoPG struct{ pgBase }

func NewDischargeRepoPG(pool *pgxpool.Pool) DischargeRepository {
	return &dischargeRepoPG{pgBase{pool}}
}

const dischargeCols = `id, birth_episode_id, discharged_at, discharge_type, responsible_professional_id,
	condition, requires_follow_up, next_appointment, observations, created_at, updated_at`

func scanDischarge(row pgx.Row) (*Discharge, error) {
	var d Discharge
	err := row.Scan(&d.ID, &d.BirthEpisodeID, &d.DischargedAt, &d.DischargeType, &d.ResponsibleProfessionalID,
		&d.Condition, &d.RequiresFollowUp, &d.NextAppointment, &d.Observations, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *dischargeRepoPG) Create(ctx context.Context, d *Discharge) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO discharge (id, birth_episode_id, discharged_at, discharge_type, responsible_professional_id,
			condition, requires_follow_up, next_appointment, observations)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		d.ID, d.BirthEpisodeID, d.DischargedAt, d.DischargeType, d.ResponsibleProfessionalID,
		d.Condition, d.RequiresFollowUp, d.NextAppointment, d.Observations,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *dischargeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Discharge, error) {
	return scanDischarge(r.conn(ctx).QueryRow(ctx, `SELECT `+dischargeCols+` FROM discharge WHERE id = $1`, id))
}

func (r *dischargeRepoPG) GetByEpisode(ctx context.Context, birthEpisodeID uuid.UUID) (*Discharge, error) {
	return scanDischarge(r.conn(ctx).QueryRow(ctx, `SELECT `+dischargeCols+` FROM discharge WHERE birth_episode_id = $1`, birthEpisodeID))
}

func (r *dischargeRepoPG) Update(ctx context.Context, d *Discharge) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE discharge SET discharged_at=$2, discharge_type=$3, responsible_professional_id=$4, condition=$5,
			requires_follow_up=$6, next_appointment=$7, observations=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.DischargedAt, d.DischargeType, d.ResponsibleProfessionalID, d.Condition,
		d.RequiresFollowUp, d.NextAppointment, d.Observations,
	).Scan(&d.UpdatedAt)
}

// =========== Board ===========

type boardRepoPG struct{ pgBase }

func NewBoardRepoPG(pool *pgxpool.Pool) BoardReader {
	return &boardRepoPG{pgBase{pool}}
}

const boardSelect = `
	SELECT b.id, p.id, p.full_name, p.national_id, b.room, b.birth_at,
		(SELECT COUNT(*) FROM newborn n WHERE n.birth_episode_id = b.id), d.discharged_at
	FROM birth_episode b
	JOIN patient p ON p.id = b.patient_id
	LEFT JOIN discharge d ON d.birth_episode_id = b.id`

func scanBoardItem(row pgx.Row) (*BoardItem, error) {
	var it BoardItem
	if err := row.Scan(&it.BirthEpisodeID, &it.PatientID, &it.PatientName, &it.NationalID, &it.Room, &it.BirthAt,
		&it.NewbornCount, &it.DischargedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *boardRepoPG) board(ctx context.Context, sql string, args ...interface{}) ([]*BoardItem, error) {
	rows, err := r.conn(ctx).Query(ctx, boardSelect+sql, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBoardItem)
}

func (r *boardRepoPG) BirthsSince(ctx context.Context, since time.Time) ([]*BoardItem, error) {
	return r.board(ctx, ` WHERE b.birth_at >= $1 ORDER BY b.birth_at DESC`, since)
}

func (r *boardRepoPG) UndischargedBefore(ctx context.Context, t time.Time) ([]*BoardItem, error) {
	return r.board(ctx, ` WHERE b.birth_at < $1 AND d.id IS NULL ORDER BY b.birth_at`, t)
}

func (r *boardRepoPG) DischargedBetween(ctx context.Context, from, to time.Time) ([]*BoardItem, error) {
	return r.board(ctx, ` WHERE d.discharged_at >= $1 AND d.discharged_at < $2 ORDER BY d.discharged_at DESC`, from, to)
}
