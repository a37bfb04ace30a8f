package reporting

import "context"

// Dimension names a group-by distribution of the obstetrics report.
type Dimension string

const (
	DimBirthType       Dimension = "birth_type"
	DimBirthPosition   Dimension = "birth_position"
	DimNewbornSex      Dimension = "newborn_sex"
	DimNationality     Dimension = "nationality"
	DimIndigenousGroup Dimension = "indigenous_group"
	DimEducation       Dimension = "education_level"
	DimMaritalStatus   Dimension = "marital_status"
	DimClinic          Dimension = "clinic"
)

// Dimensions lists the report sections in display order. Clinical
// categories sort by label; mother demographics sort by frequency.
var Dimensions = []struct {
	Dimension Dimension
	Title     string
}{
	{DimBirthType, "Births by birth type"},
	{DimBirthPosition, "Births by position"},
	{DimNewbornSex, "Newborns by sex"},
	{DimNationality, "Mothers by nationality"},
	{DimIndigenousGroup, "Mothers by indigenous group"},
	{DimEducation, "Mothers by education level"},
	{DimMaritalStatus, "Mothers by marital status"},
	{DimClinic, "Mothers by clinic"},
}

// Reader runs the read-only aggregate queries behind the reports.
type Reader interface {
	Counts(ctx context.Context, r Range) (Counts, error)
	Distribution(ctx context.Context, d Dimension, r Range) ([]Count, error)
	NewbornStats(ctx context.Context, r Range) (NewbornStats, error)
	MonthlyQuality(ctx context.Context, r Range) ([]MonthlyQuality, error)
	MonthlyNewborns(ctx context.Context, r Range) ([]MonthlyNewborns, error)
}
