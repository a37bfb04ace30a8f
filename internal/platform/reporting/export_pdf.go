package reporting

import (
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const ContentTypePDF = "application/pdf"

// WritePDF renders r as an A4 portrait print document with the same
// sections as the workbook.
func WritePDF(w io.Writer, r *ObstetricsReport) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Obstetrics report"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(r.Period), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	heading := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(230, 243, 255)
		pdf.CellFormat(0, 8, tr(title), "", 1, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	line := func(label string, values ...string) {
		width := 180.0 - 30*float64(len(values))
		pdf.CellFormat(width, 6, tr(label), "B", 0, "L", false, 0, "")
		for _, v := range values {
			pdf.CellFormat(30, 6, tr(v), "B", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	heading("Summary")
	for _, row := range summaryRows(r)[1:] {
		line(row[0], row[1])
	}
	pdf.Ln(4)

	for _, sec := range r.Distributions {
		heading(sec.Title)
		if len(sec.Rows) == 0 {
			line("No records", "")
		}
		for _, c := range sec.Rows {
			line(c.Label, strconv.Itoa(c.Total))
		}
		pdf.Ln(3)
	}

	heading("Statistics")
	line("Measure", "N", "Mean", "Std. dev.")
	for _, s := range statRows(r) {
		line(s.Label, strconv.Itoa(s.Stat.N), fmtStat(s.Stat.Mean), fmtStat(s.Stat.StdDev))
	}

	return pdf.Output(w)
}
