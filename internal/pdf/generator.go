package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// Generate renders a one-page summary sheet for an agreement.
func (g *Generator) Generate(a model.Agreement, assignees []access.Assignee, today time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Agreement %s", a.Code)), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 12)
	pdf.MultiCell(0, 6, tr(a.Title), "", "C", false)
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Details", "", 1, "L", false, 0, "")
	widths := []float64{55, 125}
	rows := [][]string{
		{"Reference", safeValue(a.Reference)},
		{"Status", string(a.Status)},
		{"Vendor", safeValue(a.VendorName)},
		{"Agreement type", safeValue(a.AgreementTypeName)},
		{"Department", safeValue(a.DepartmentName)},
		{"Start date", formatDate(a.StartDate)},
		{"Expiry date", formatDate(a.ExpiryDate)},
		{"Reminder date", formatDate(a.ReminderTime)},
		{"Days remaining", fmt.Sprintf("%d", a.DaysRemaining(today))},
		{"Attachment", safeValue(a.OriginalFilename)},
	}
	for _, row := range rows {
		drawTableRow(pdf, g.fontName, tr, row, widths, false)
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Assigned users", "", 1, "L", false, 0, "")
	userWidths := []float64{70, 75, 35}
	drawTableRow(pdf, g.fontName, tr, []string{"Name", "Email", "Access via"}, userWidths, true)
	if len(assignees) == 0 {
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 8, "No users assigned", "1", 1, "L", false, 0, "")
	}
	for _, assignee := range assignees {
		drawTableRow(pdf, g.fontName, tr, []string{
			safeValue(assignee.User.FullName),
			assignee.User.Email,
			string(assignee.Via),
		}, userWidths, false)
	}

	pdf.Ln(6)
	pdf.SetFont(g.fontName, "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated on %s", formatDate(today)), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
