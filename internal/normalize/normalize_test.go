package normalize

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/jsondoc"
)

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"85%", 85},
		{"85", 85},
		{"85,0", 85},
		{" 92.5 % ", 92.5},
		{"150", 100},
		{"-5", 0},
		{"80-90", 85},
	}
	for _, tt := range tests {
		if got := ParsePercentage(tt.in); got != tt.want {
			t.Errorf("ParsePercentage(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2-4", 3},
		{"5/6", 5.5},
		{"2–3", 2.5},
		{"1,5-2,5", 2},
		{"7", 7},
		{"7,5", 7.5},
		{"-3", -3},
		{"2 - 4", 3},
		{"1e-5", 1e-5},
	}
	for _, tt := range tests {
		if got := ParseNumber(tt.in); got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseNumber_UnparsableIsMissing(t *testing.T) {
	for _, in := range []string{"", "  ", "daug", "n/a"} {
		if got := ParseNumber(in); !math.IsNaN(got) {
			t.Errorf("ParseNumber(%q) = %v, want NaN", in, got)
		}
	}
}

func surveyHeader(m Mapping) []string {
	h := make([]string, 0, len(m.Columns)+2)
	h = append(h, "Laiko žyma")
	for _, c := range m.Columns {
		h = append(h, `"`+c.Source+`"`)
	}
	return append(h, `"`+m.LabelColumn+`"`)
}

func TestNormalize_ImputesAndDropsUnlabeled(t *testing.T) {
	m := DefaultMapping()
	rows := []string{
		strings.Join(surveyHeader(m), ","),
		`t1,90%,10,2,0,8,2,"8,5",9,80,85,90,1,1`,
		`t2,70%,2-4,5,40,5,6,6,7,50,60,55,5,5`,
		`t3,,6,3,20,7,3,7,8,70,70,70,3,`,
		`t4,"50,5",8,4,30,6,4,5,6,60,65,60,4,4`,
	}
	ds, rep, err := Normalize(strings.NewReader(strings.Join(rows, "\n")+"\n"), m)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rep.RowsRead != 4 || rep.RowsKept != 3 || rep.RowsDropped != 1 {
		t.Errorf("report = %+v", rep)
	}
	if ds.Len() != 3 {
		t.Fatalf("len = %d, want 3", ds.Len())
	}
	// Order preserved: t1, t2, t4.
	if ds.Records[0].Label != 1 || ds.Records[1].Label != 5 || ds.Records[2].Label != 4 {
		t.Errorf("labels = %d,%d,%d", ds.Records[0].Label, ds.Records[1].Label, ds.Records[2].Label)
	}
	if got := ds.Records[1].Values[features.IdxSelfStudy]; got != 3 {
		t.Errorf("range study = %v, want 3", got)
	}
	if got := ds.Records[2].Values[features.IdxAttendance]; got != 50.5 {
		t.Errorf("decimal comma attendance = %v, want 50.5", got)
	}
	if got := ds.Records[0].Values[features.IdxGPA]; got != 8.5 {
		t.Errorf("gpa = %v, want 8.5", got)
	}
	if rep.Imputed != 1 {
		t.Errorf("imputed = %d, want 1", rep.Imputed)
	}
}

func TestNormalize_MeanIncludesDroppedRows(t *testing.T) {
	m := DefaultMapping()
	rows := []string{
		strings.Join(surveyHeader(m), ","),
		`t1,,10,2,0,8,2,8,9,80,85,90,1,2`,
		`t2,60,10,2,0,8,2,8,9,80,85,90,1,`,
		`t3,80,10,2,0,8,2,8,9,80,85,90,1,5`,
	}
	ds, _, err := Normalize(strings.NewReader(strings.Join(rows, "\n")), m)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := ds.Records[0].Values[features.IdxAttendance]; got != 70 {
		t.Errorf("imputed attendance = %v, want 70", got)
	}
}

func TestNormalize_MissingColumnsFailLoudly(t *testing.T) {
	m := DefaultMapping()
	header := surveyHeader(m)
	header = append(header[:2], header[3:]...) // drop self-study
	in := strings.Join(header, ",") + "\n"

	_, _, err := Normalize(strings.NewReader(in), m)
	var se *features.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if len(se.Missing) != 1 || se.Missing[0] != m.Columns[1].Source {
		t.Errorf("missing = %v", se.Missing)
	}
}

func TestNormalize_ParseFailuresCounted(t *testing.T) {
	m := DefaultMapping()
	rows := []string{
		strings.Join(surveyHeader(m), ","),
		`t1,90,daug,2,0,8,2,8,9,80,85,90,1,1`,
		`t2,90,10,2,0,8,2,8,9,80,85,90,1,4`,
	}
	ds, rep, err := Normalize(strings.NewReader(strings.Join(rows, "\n")), m)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rep.ParseFailures[string(features.SelfStudyHours)] != 1 {
		t.Errorf("parse failures = %v", rep.ParseFailures)
	}
	if got := ds.Records[0].Values[features.IdxSelfStudy]; got != 10 {
		t.Errorf("imputed study = %v, want 10", got)
	}
}

func TestNormalize_BlankColumnStaysMissing(t *testing.T) {
	m := DefaultMapping()
	rows := []string{
		strings.Join(surveyHeader(m), ","),
		`t1,90,10,2,0,8,2,8,9,80,85,,1,4`,
	}
	ds, rep, err := Normalize(strings.NewReader(strings.Join(rows, "\n")), m)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if ds.Len() != 1 {
		t.Fatalf("len = %d, want 1", ds.Len())
	}
	if got := ds.Records[0].Values[features.IdxExam3]; !math.IsNaN(got) {
		t.Errorf("exam 3 = %v, want missing", got)
	}
	if len(rep.EmptyColumns) != 1 || rep.EmptyColumns[0] != string(features.ExamScore3) {
		t.Errorf("empty columns = %v", rep.EmptyColumns)
	}
	if rep.Imputed != 0 {
		t.Errorf("imputed = %d, want 0", rep.Imputed)
	}
}

func TestNormalize_ZeroLabelIsUnanswered(t *testing.T) {
	m := DefaultMapping()
	rows := []string{
		strings.Join(surveyHeader(m), ","),
		`t1,90,10,2,0,8,2,8,9,80,85,90,1,0`,
		`t2,90,10,2,0,8,2,8,9,80,85,90,1,7`,
	}
	ds, rep, err := Normalize(strings.NewReader(strings.Join(rows, "\n")), m)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rep.RowsDropped != 1 || rep.LabelsClamped != 1 {
		t.Errorf("report = %+v", rep)
	}
	if ds.Len() != 1 || ds.Records[0].Label != features.MaxLabel {
		t.Errorf("records = %+v", ds.Records)
	}
}

func TestMappingValidate(t *testing.T) {
	m := DefaultMapping()
	if err := m.Validate(); err != nil {
		t.Fatalf("default mapping invalid: %v", err)
	}

	dup := DefaultMapping()
	dup.Columns[1].Feature = string(features.AttendancePct)
	if err := dup.Validate(); err == nil {
		t.Error("expected error for duplicate feature")
	}

	short := DefaultMapping()
	short.Columns = short.Columns[:11]
	if err := short.Validate(); err == nil {
		t.Error("expected error for unmapped feature")
	}
}

func TestLoadMapping(t *testing.T) {
	dir := t.TempDir()

	var b strings.Builder
	b.WriteString(`{"version":"custom-1","label_column":"quit","columns":[`)
	for i, name := range features.Names() {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"source":"Q` + name + `","feature":"` + name + `","kind":"number"}`)
	}
	b.WriteString(`]}`)
	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMapping(good)
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	if m.Version != "custom-1" || len(m.Columns) != features.Count {
		t.Errorf("mapping = %+v", m)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"version":"x","label_column":"q","columns":[{"source":"a","feature":"height","kind":"number"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = LoadMapping(bad)
	var ve *jsondoc.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("got %v, want ValidationError", err)
	}
}
