package reporting

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type readerPG struct {
	pool *pgxpool.Pool
}

// NewReaderPG reads straight from the pool; reports never join a
// request transaction.
func NewReaderPG(pool *pgxpool.Pool) Reader {
	return &readerPG{pool: pool}
}

// inRange filters alias.birth_at on $1 (inclusive) and $2 (exclusive).
func inRange(alias string) string {
	return "($1::timestamptz IS NULL OR " + alias + ".birth_at >= $1) AND ($2::timestamptz IS NULL OR " + alias + ".birth_at < $2)"
}

func mothersBy(join, label string) string {
	return `SELECT COALESCE(` + label + `, 'Unspecified') AS label, count(DISTINCT p.id) AS total
		FROM birth_episode b
		JOIN patient p ON p.id = b.patient_id ` + join + `
		WHERE ` + inRange("b") + `
		GROUP BY 1 ORDER BY 2 DESC, 1`
}

var distributionSQL = map[Dimension]string{
	DimBirthType: `SELECT COALESCE(bt.name, 'Unspecified') AS label, count(*) AS total
		FROM birth_episode b
		LEFT JOIN birth_type bt ON bt.id = b.birth_type_id
		WHERE ` + inRange("b") + `
		GROUP BY 1 ORDER BY 1`,
	DimBirthPosition: `SELECT COALESCE(NULLIF(b.birth_position, ''), 'unspecified') AS label, count(*) AS total
		FROM birth_episode b
		WHERE ` + inRange("b") + `
		GROUP BY 1 ORDER BY 1`,
	DimNewbornSex: `SELECT n.sex AS label, count(*) AS total
		FROM newborn n
		JOIN birth_episode b ON b.id = n.birth_episode_id
		WHERE ` + inRange("b") + `
		GROUP BY 1 ORDER BY 1`,
	DimNationality:     mothersBy("LEFT JOIN nationality x ON x.code = p.nationality_code", "x.name"),
	DimIndigenousGroup: mothersBy("LEFT JOIN indigenous_group x ON x.id = p.indigenous_group_id", "x.name"),
	DimEducation:       mothersBy("", "p.education_level"),
	DimMaritalStatus:   mothersBy("", "p.marital_status"),
	DimClinic:          mothersBy("LEFT JOIN clinic x ON x.id = p.clinic_id", "x.name"),
}

func (r *readerPG) Counts(ctx context.Context, rg Range) (Counts, error) {
	from, until := rg.bounds()
	var c Counts
	err := r.pool.QueryRow(ctx, `SELECT count(*),
			count(*) FILTER (WHERE btrim(b.complications) <> ''),
			count(*) FILTER (WHERE b.severe_preeclampsia),
			count(*) FILTER (WHERE b.eclampsia),
			count(*) FILTER (WHERE b.sepsis),
			count(*) FILTER (WHERE b.ovular_infection),
			(SELECT count(*) FROM newborn n JOIN birth_episode nb ON nb.id = n.birth_episode_id
				WHERE `+inRange("nb")+`)
		FROM birth_episode b
		WHERE `+inRange("b"), from, until).Scan(
		&c.Births, &c.BirthsWithComplications, &c.SeverePreeclampsia, &c.Eclampsia,
		&c.Sepsis, &c.OvularInfection, &c.Newborns)
	if err != nil {
		return Counts{}, fmt.Errorf("report counts: %w", err)
	}
	return c, nil
}

func (r *readerPG) Distribution(ctx context.Context, d Dimension, rg Range) ([]Count, error) {
	q, ok := distributionSQL[d]
	if !ok {
		return nil, fmt.Errorf("unknown report dimension %q", d)
	}
	from, until := rg.bounds()
	rows, err := r.pool.Query(ctx, q, from, until)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", d, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Count, error) {
		var c Count
		err := row.Scan(&c.Label, &c.Total)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", d, err)
	}
	return out, nil
}

func (r *readerPG) NewbornStats(ctx context.Context, rg Range) (NewbornStats, error) {
	from, until := rg.bounds()
	var s NewbornStats
	err := r.pool.QueryRow(ctx, `SELECT
			count(n.weight_grams), avg(n.weight_grams)::float8, stddev_pop(n.weight_grams)::float8,
			count(n.length_cm), avg(n.length_cm)::float8, stddev_pop(n.length_cm)::float8,
			count(n.apgar5), avg(n.apgar5)::float8, stddev_pop(n.apgar5)::float8
		FROM newborn n
		JOIN birth_episode b ON b.id = n.birth_episode_id
		WHERE `+inRange("b"), from, until).Scan(
		&s.Weight.N, &s.Weight.Mean, &s.Weight.StdDev,
		&s.Length.N, &s.Length.Mean, &s.Length.StdDev,
		&s.Apgar5.N, &s.Apgar5.Mean, &s.Apgar5.StdDev)
	if err != nil {
		return NewbornStats{}, fmt.Errorf("newborn stats: %w", err)
	}
	return s, nil
}

func (r *readerPG) MonthlyQuality(ctx context.Context, rg Range) ([]MonthlyQuality, error) {
	from, until := rg.bounds()
	rows, err := r.pool.Query(ctx, `SELECT to_char(date_trunc('month', b.birth_at), 'YYYY-MM') AS month,
			count(*),
			round(100.0 * avg(b.delayed_cord_clamping::int), 1)::float8,
			round(100.0 * avg(b.skin_to_skin::int), 1)::float8,
			round(100.0 * avg(b.first_hour_breastfeeding::int), 1)::float8,
			round(100.0 * avg(b.rooming_in::int), 1)::float8,
			round(100.0 * avg(b.prenatal_control::int), 1)::float8
		FROM birth_episode b
		WHERE `+inRange("b")+`
		GROUP BY 1 ORDER BY 1`, from, until)
	if err != nil {
		return nil, fmt.Errorf("monthly quality: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MonthlyQuality, error) {
		var m MonthlyQuality
		err := row.Scan(&m.Month, &m.Births, &m.DelayedCordClamping, &m.SkinToSkin,
			&m.FirstHourBreastfeeding, &m.RoomingIn, &m.PrenatalControl)
		return m, err
	})
}

func (r *readerPG) MonthlyNewborns(ctx context.Context, rg Range) ([]MonthlyNewborns, error) {
	from, until := rg.bounds()
	rows, err := r.pool.Query(ctx, `SELECT to_char(date_trunc('month', b.birth_at), 'YYYY-MM') AS month,
			count(*),
			avg(n.weight_grams)::float8,
			avg(n.gestational_age_weeks)::float8,
			count(*) FILTER (WHERE n.weight_grams < 2500),
			count(*) FILTER (WHERE n.apgar5 < 7),
			count(*) FILTER (WHERE n.has_malformation)
		FROM newborn n
		JOIN birth_episode b ON b.id = n.birth_episode_id
		WHERE `+inRange("b")+`
		GROUP BY 1 ORDER BY 1`, from, until)
	if err != nil {
		return nil, fmt.Errorf("monthly newborns: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MonthlyNewborns, error) {
		var m MonthlyNewborns
		err := row.Scan(&m.Month, &m.Newborns, &m.MeanWeight, &m.MeanGestationalAge,
			&m.LowWeight, &m.LowApgar5, &m.WithMalformation)
		return m, err
	})
}
