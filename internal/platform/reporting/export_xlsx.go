package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary       = "Summary"
	SheetDistributions = "Distributions"
	SheetStatistics    = "Statistics"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// summaryRows is the label/value listing shared by both exporters.
func summaryRows(r *ObstetricsReport) [][2]string {
	c := r.Counts
	return [][2]string{
		{"Period", r.Period},
		{"Generated at", r.GeneratedAt.Format("2006-01-02 15:04")},
		{"Births", strconv.Itoa(c.Births)},
		{"Newborns", strconv.Itoa(c.Newborns)},
		{"Births with complications", strconv.Itoa(c.BirthsWithComplications)},
		{"Severe preeclampsia", strconv.Itoa(c.SeverePreeclampsia)},
		{"Eclampsia", strconv.Itoa(c.Eclampsia)},
		{"Sepsis", strconv.Itoa(c.Sepsis)},
		{"Ovular infection", strconv.Itoa(c.OvularInfection)},
	}
}

type statRow struct {
	Label string
	Stat  Stat
}

func statRows(r *ObstetricsReport) []statRow {
	return []statRow{
		{"Weight (g)", r.Stats.Weight},
		{"Length (cm)", r.Stats.Length},
		{"Apgar 5 min", r.Stats.Apgar5},
	}
}

func fmtStat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// WriteXLSX renders r as a workbook with summary, distribution and
// statistics sheets.
func WriteXLSX(w io.Writer, r *ObstetricsReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetDistributions, SheetStatistics} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw := sheetWriter{f: f, bold: bold}

	sw.sheet = SheetSummary
	sw.header("Obstetrics report", "")
	for _, row := range summaryRows(r) {
		sw.row(row[0], row[1])
	}

	sw.sheet, sw.next = SheetDistributions, 0
	for _, sec := range r.Distributions {
		sw.header(sec.Title, "Total")
		for _, c := range sec.Rows {
			sw.row(c.Label, c.Total)
		}
		sw.next++
	}

	sw.sheet, sw.next = SheetStatistics, 0
	sw.header("Measure", "N", "Mean", "Std. deviation")
	for _, s := range statRows(r) {
		sw.row(s.Label, s.Stat.N, fmtStat(s.Stat.Mean), fmtStat(s.Stat.StdDev))
	}

	if sw.err != nil {
		return sw.err
	}
	for _, name := range []string{SheetSummary, SheetDistributions, SheetStatistics} {
		if err := f.SetColWidth(name, "A", "A", 36); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

// sheetWriter appends rows to one sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	bold  int
	err   error
}

func (s *sheetWriter) row(values ...interface{}) string {
	if s.err != nil {
		return ""
	}
	s.next++
	cell, err := excelize.CoordinatesToCellName(1, s.next)
	if err == nil {
		err = s.f.SetSheetRow(s.sheet, cell, &values)
	}
	if err != nil {
		s.err = fmt.Errorf("write %s row %d: %w", s.sheet, s.next, err)
	}
	return cell
}

func (s *sheetWriter) header(titles ...string) {
	values := make([]interface{}, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	first := s.row(values...)
	if s.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(titles), s.next)
	if err == nil {
		err = s.f.SetCellStyle(s.sheet, first, last, s.bold)
	}
	if err != nil {
		s.err = fmt.Errorf("style %s header: %w", s.sheet, err)
	}
}
