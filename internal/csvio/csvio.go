// Package csvio implements the portal's delimited import/export format.
//
// The format is deliberately simpler than RFC 4180: on export a value
// containing a comma is wrapped in double quotes but embedded quotes
// are not escaped. That limitation is part of the wire contract, so the
// standard encoding/csv writer (which escapes) is not used here.
package csvio

import (
	"strconv"
	"strings"

	"siteledger/internal/domain"
)

// ColumnType is the semantic type used for import coercion.
type ColumnType int

const (
	Text ColumnType = iota
	Number
	Currency
	Bool
)

// Column declares one importable column.
type Column struct {
	Name string
	Type ColumnType
}

// Declared import schemas per record kind. The id column is exported
// but never imported: every imported row gets a fresh identifier.
var (
	TaskColumns = []Column{
		{"name", Text}, {"status", Text}, {"category", Text}, {"owner", Text},
		{"start_date", Text}, {"due_date", Text}, {"est_hours", Number},
		{"act_hours", Number}, {"cost", Currency}, {"tags", Text},
		{"sort_order", Number}, {"notes", Text}, {"paid", Bool},
	}
	LaborColumns = []Column{
		{"role", Text}, {"workers", Text}, {"rate_type", Text}, {"qty", Number},
		{"rate", Currency}, {"cost", Currency}, {"source", Text},
		{"start_date", Text}, {"end_date", Text}, {"notes", Text}, {"paid", Bool},
	}
	MaterialColumns = []Column{
		{"item", Text}, {"category", Text}, {"unit", Text}, {"qty", Number},
		{"unit_cost", Currency}, {"total_cost", Currency}, {"supplier", Text},
		{"lead_days", Number}, {"delivery_eta", Text}, {"received", Bool},
		{"location", Text}, {"notes", Text}, {"paid", Bool},
	}
)

// ExportTasks serializes tasks to delimited text. The attachment
// payload is replaced by its kind marker.
func ExportTasks(tasks []domain.Task) string {
	var b strings.Builder
	writeRow(&b, []string{"id", "name", "status", "category", "owner", "start_date", "due_date",
		"est_hours", "act_hours", "cost", "tags", "sort_order", "notes", "paid", "attachment"})
	for _, t := range tasks {
		act := ""
		if t.ActHours != nil {
			act = num(*t.ActHours)
		}
		writeRow(&b, []string{
			t.ID, t.Name, t.Status, t.Category, t.Owner, t.StartDate, t.DueDate,
			num(t.EstHours), act, num(t.Cost), strings.Join(t.Tags, ";"),
			strconv.Itoa(t.SortOrder), t.Notes, boolText(t.Paid), attachMarker(t.Attachment),
		})
	}
	return b.String()
}

// ExportLabor serializes labor entries to delimited text.
func ExportLabor(labor []domain.Labor) string {
	var b strings.Builder
	writeRow(&b, []string{"id", "role", "workers", "rate_type", "qty", "rate", "cost",
		"source", "start_date", "end_date", "notes", "paid", "attachment"})
	for _, l := range labor {
		writeRow(&b, []string{
			l.ID, l.Role, l.Workers, l.RateType, num(l.Qty), num(l.Rate), num(l.Cost),
			l.Source, l.StartDate, l.EndDate, l.Notes, boolText(l.Paid), attachMarker(l.Attachment),
		})
	}
	return b.String()
}

// ExportMaterials serializes material entries to delimited text.
func ExportMaterials(materials []domain.Material) string {
	var b strings.Builder
	writeRow(&b, []string{"id", "item", "category", "unit", "qty", "unit_cost", "total_cost",
		"supplier", "lead_days", "delivery_eta", "received", "location", "notes", "paid", "attachment"})
	for _, m := range materials {
		writeRow(&b, []string{
			m.ID, m.Item, m.Category, m.Unit, num(m.Qty), num(m.UnitCost), num(m.TotalCost),
			m.Supplier, strconv.Itoa(m.LeadDays), m.DeliveryETA, boolText(m.Received),
			m.Location, m.Notes, boolText(m.Paid), attachMarker(m.Attachment),
		})
	}
	return b.String()
}

// ImportTasks parses delimited text into task records without ids.
func ImportTasks(text string) []domain.Task {
	rows := parseRows(text, TaskColumns)
	out := make([]domain.Task, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Task{
			Name:      r.text("name"),
			Status:    r.text("status"),
			Category:  r.text("category"),
			Owner:     r.text("owner"),
			StartDate: r.text("start_date"),
			DueDate:   r.text("due_date"),
			EstHours:  r.number("est_hours"),
			ActHours:  r.optNumber("act_hours"),
			Cost:      r.number("cost"),
			Tags:      splitTags(r.text("tags")),
			SortOrder: int(r.number("sort_order")),
			Notes:     r.text("notes"),
			Paid:      r.boolean("paid"),
		})
	}
	return out
}

// ImportLabor parses delimited text into labor records without ids.
func ImportLabor(text string) []domain.Labor {
	rows := parseRows(text, LaborColumns)
	out := make([]domain.Labor, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Labor{
			Role:      r.text("role"),
			Workers:   r.text("workers"),
			RateType:  r.text("rate_type"),
			Qty:       r.number("qty"),
			Rate:      r.number("rate"),
			Cost:      r.number("cost"),
			Source:    r.text("source"),
			StartDate: r.text("start_date"),
			EndDate:   r.text("end_date"),
			Notes:     r.text("notes"),
			Paid:      r.boolean("paid"),
		})
	}
	return out
}

// ImportMaterials parses delimited text into material records without ids.
func ImportMaterials(text string) []domain.Material {
	rows := parseRows(text, MaterialColumns)
	out := make([]domain.Material, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Material{
			Item:        r.text("item"),
			Category:    r.text("category"),
			Unit:        r.text("unit"),
			Qty:         r.number("qty"),
			UnitCost:    r.number("unit_cost"),
			TotalCost:   r.number("total_cost"),
			Supplier:    r.text("supplier"),
			LeadDays:    int(r.number("lead_days")),
			DeliveryETA: r.text("delivery_eta"),
			Received:    r.boolean("received"),
			Location:    r.text("location"),
			Notes:       r.text("notes"),
			Paid:        r.boolean("paid"),
		})
	}
	return out
}

type row map[string]string

func (r row) text(name string) string { return r[name] }

// number parses a numeric or currency field with a zero fallback.
func (r row) number(name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r[name]), 64)
	if err != nil {
		return 0
	}
	return v
}

func (r row) optNumber(name string) *float64 {
	s := strings.TrimSpace(r[name])
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// boolean accepts the literal "true", case-insensitively; anything
// else is false.
func (r row) boolean(name string) bool {
	return strings.EqualFold(strings.TrimSpace(r[name]), "true")
}

// parseRows maps data lines onto the declared schema. Headers with no
// declared column are silently ignored.
func parseRows(text string, schema []Column) []row {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}
	declared := map[string]bool{}
	for _, c := range schema {
		declared[c.Name] = true
	}
	header := splitFields(lines[0])
	index := map[int]string{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if declared[name] {
			index[i] = name
		}
	}
	var rows []row
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitFields(line)
		r := row{}
		for i, name := range index {
			if i < len(fields) {
				r[name] = fields[i]
			}
		}
		rows = append(rows, r)
	}
	return rows
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// splitFields splits one line on commas, honoring double-quoted fields.
// Quotes are delimiters only; there is no escape sequence.
func splitFields(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		if strings.Contains(f, ",") {
			b.WriteByte('"')
			b.WriteString(f)
			b.WriteByte('"')
		} else {
			b.WriteString(f)
		}
	}
	b.WriteByte('\n')
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func boolText(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func attachMarker(a *domain.Attachment) string {
	if a == nil {
		return ""
	}
	return a.Kind
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
