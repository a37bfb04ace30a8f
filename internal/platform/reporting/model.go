package reporting

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Range bounds a report on the birth timestamp. Both ends are optional and
// inclusive; To covers the whole day.
type Range struct {
	From *time.Time
	To   *time.Time
}

// ParseRange reads YYYY-MM-DD dates; empty strings leave that end open.
func ParseRange(from, to string) (Range, error) {
	var r Range
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return r, fmt.Errorf("invalid from date %q", from)
		}
		r.From = &t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return r, fmt.Errorf("invalid to date %q", to)
		}
		r.To = &t
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return r, fmt.Errorf("from date is after to date")
	}
	return r, nil
}

// bounds returns the half-open [from, until) interval used in queries.
func (r Range) bounds() (from, until *time.Time) {
	if r.To != nil {
		next := r.To.AddDate(0, 0, 1)
		until = &next
	}
	return r.From, until
}

func (r Range) key() string {
	return fmtDate(r.From) + "_" + fmtDate(r.To)
}

// String renders the range for report headers.
func (r Range) String() string {
	switch {
	case r.From == nil && r.To == nil:
		return "All records"
	case r.From == nil:
		return "Until " + fmtDate(r.To)
	case r.To == nil:
		return "From " + fmtDate(r.From)
	}
	return fmtDate(r.From) + " to " + fmtDate(r.To)
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

type Count struct {
	Label string `json:"label"`
	Total int    `json:"total"`
}

// Stat is a descriptive statistic over one numeric field. Mean and StdDev
// are nil when no value was recorded in the range.
type Stat struct {
	N      int      `json:"n"`
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"std_dev"`
}

type Counts struct {
	Births                  int `json:"births"`
	Newborns                int `json:"newborns"`
	BirthsWithComplications int `json:"births_with_complications"`
	SeverePreeclampsia      int `json:"severe_preeclampsia"`
	Eclampsia               int `json:"eclampsia"`
	Sepsis                  int `json:"sepsis"`
	OvularInfection         int `json:"ovular_infection"`
}

type NewbornStats struct {
	Weight Stat `json:"weight_grams"`
	Length Stat `json:"length_cm"`
	Apgar5 Stat `json:"apgar5"`
}

// ObstetricsReport is the dashboard aggregate. Exporters render it as is.
type ObstetricsReport struct {
	GeneratedAt   time.Time    `json:"generated_at"`
	From          string       `json:"from,omitempty"`
	To            string       `json:"to,omitempty"`
	Period        string       `json:"period"`
	Counts        Counts       `json:"counts"`
	Distributions []Section    `json:"distributions"`
	Stats         NewbornStats `json:"stats"`
}

// Section is one titled distribution of the report.
type Section struct {
	Dimension Dimension `json:"dimension"`
	Title     string    `json:"title"`
	Rows      []Count   `json:"rows"`
}

// Distribution returns the rows of dimension d, or nil.
func (r *ObstetricsReport) Distribution(d Dimension) []Count {
	for _, s := range r.Distributions {
		if s.Dimension == d {
			return s.Rows
		}
	}
	return nil
}

// MonthlyQuality holds the care-quality indicators of one month, as
// percentages of the births in that month.
type MonthlyQuality struct {
	Month                  string  `json:"month"`
	Births                 int     `json:"births"`
	DelayedCordClamping    float64 `json:"delayed_cord_clamping_pct"`
	SkinToSkin             float64 `json:"skin_to_skin_pct"`
	FirstHourBreastfeeding float64 `json:"first_hour_breastfeeding_pct"`
	RoomingIn              float64 `json:"rooming_in_pct"`
	PrenatalControl        float64 `json:"prenatal_control_pct"`
}

type MonthlyNewborns struct {
	Month              string   `json:"month"`
	Newborns           int      `json:"newborns"`
	MeanWeight         *float64 `json:"mean_weight_grams"`
	MeanGestationalAge *float64 `json:"mean_gestational_age_weeks"`
	LowWeight          int      `json:"low_weight"`
	LowApgar5          int      `json:"low_apgar5"`
	WithMalformation   int      `json:"with_malformation"`
}
