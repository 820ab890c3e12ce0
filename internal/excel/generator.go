package excel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/snowops-agreements/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

type departmentGroup struct {
	ID         uuid.UUID
	Name       string
	Agreements []model.Agreement
}

// Generate builds the agreement register: a summary sheet followed by one
// sheet per department.
func (g *Generator) Generate(agreements []model.Agreement, today time.Time) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	groups := groupByDepartment(agreements)
	if err := g.writeSummary(file, summarySheet, agreements, groups, today); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, group := range groups {
		sheetName := buildSheetName(group.Name, group.ID, usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		if err := g.writeDetail(file, sheetName, group, today); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, agreements []model.Agreement, groups []departmentGroup, today time.Time) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	counts := map[model.AgreementStatus]int{}
	for _, a := range agreements {
		counts[a.Status]++
	}

	set("A1", "Generated on")
	set("B1", formatDate(today))
	set("A2", "Agreements")
	set("B2", len(agreements))
	set("A3", "Ongoing")
	set("B3", counts[model.AgreementStatusOngoing])
	set("A4", "Draft")
	set("B4", counts[model.AgreementStatusDraft])
	set("A5", "Expired")
	set("B5", counts[model.AgreementStatusExpired])
	set("A6", "Terminated")
	set("B6", counts[model.AgreementStatusTerminated])

	tableRow := 8
	set(fmt.Sprintf("A%d", tableRow), "Department")
	set(fmt.Sprintf("B%d", tableRow), "Agreements")
	set(fmt.Sprintf("C%d", tableRow), "Due for reminder")

	for i, group := range groups {
		row := tableRow + 1 + i
		due := 0
		for _, a := range group.Agreements {
			if a.ReminderDue(today) {
				due++
			}
		}
		set(fmt.Sprintf("A%d", row), group.Name)
		set(fmt.Sprintf("B%d", row), len(group.Agreements))
		set(fmt.Sprintf("C%d", row), due)
	}

	_ = file.SetColWidth(sheet, "A", "A", 40)
	_ = file.SetColWidth(sheet, "B", "C", 18)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, group departmentGroup, today time.Time) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Department")
	set("B1", group.Name)
	set("A2", "Agreements")
	set("B2", len(group.Agreements))

	tableRow := 4
	headers := []string{
		"Agreement ID",
		"Title",
		"Reference",
		"Vendor",
		"Agreement type",
		"Status",
		"Start date",
		"Expiry date",
		"Reminder date",
		"Days remaining",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, a := range group.Agreements {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), a.Code)
		set(fmt.Sprintf("B%d", row), a.Title)
		set(fmt.Sprintf("C%d", row), a.Reference)
		set(fmt.Sprintf("D%d", row), a.VendorName)
		set(fmt.Sprintf("E%d", row), a.AgreementTypeName)
		set(fmt.Sprintf("F%d", row), string(a.Status))
		set(fmt.Sprintf("G%d", row), formatDate(a.StartDate))
		set(fmt.Sprintf("H%d", row), formatDate(a.ExpiryDate))
		set(fmt.Sprintf("I%d", row), formatDate(a.ReminderTime))
		set(fmt.Sprintf("J%d", row), a.DaysRemaining(today))
	}

	_ = file.SetColWidth(sheet, "A", "A", 14)
	_ = file.SetColWidth(sheet, "B", "B", 40)
	_ = file.SetColWidth(sheet, "C", "E", 24)
	_ = file.SetColWidth(sheet, "F", "J", 14)
	return nil
}

func groupByDepartment(agreements []model.Agreement) []departmentGroup {
	index := map[uuid.UUID]int{}
	var groups []departmentGroup
	for _, a := range agreements {
		i, ok := index[a.DepartmentID]
		if !ok {
			i = len(groups)
			index[a.DepartmentID] = i
			groups = append(groups, departmentGroup{ID: a.DepartmentID, Name: a.DepartmentName})
		}
		groups[i].Agreements = append(groups[i].Agreements, a)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})
	return groups
}

func buildSheetName(name string, id uuid.UUID, used map[string]struct{}) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = id.String()
	}
	base = sanitizeSheetName(base)

	if len(base) > 31 {
		base = base[:31]
	}

	nameCandidate := base
	counter := 2
	for {
		if _, exists := used[nameCandidate]; !exists {
			return nameCandidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		nameCandidate = trimmed + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Sheet"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = replacer.Replace(value)
	value = strings.TrimSpace(value)
	if value == "" {
		return "Sheet"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
