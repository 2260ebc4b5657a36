package dataset

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/atrisk/internal/features"
)

func sampleRecord(label int, base float64) features.Record {
	var v features.Vector
	for i := range v {
		v[i] = base + float64(i)
	}
	return features.Record{Values: v, Label: label}
}

func TestWriteRead_PreservesOrderAndRisk(t *testing.T) {
	ds := &Dataset{}
	ds.Append(sampleRecord(1, 1), sampleRecord(5, 2), sampleRecord(4, 3))

	var buf bytes.Buffer
	if err := Write(&buf, ds); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasSuffix(lines[0], "ketinu_mesti_studijas,rizika") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], ",5,1") {
		t.Errorf("row 2 = %q, want label 5 risk 1", lines[2])
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("got %d records, want 3", got.Len())
	}
	for i, r := range got.Records {
		if r != ds.Records[i] {
			t.Errorf("record %d = %+v, want %+v", i, r, ds.Records[i])
		}
	}
}

func TestRead_MissingColumns(t *testing.T) {
	_, err := Read(strings.NewReader("lankomumas_proc,streso_lygis\n80,3\n"))
	var se *features.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if len(se.Missing) != features.Count-2+1 {
		t.Errorf("missing = %v", se.Missing)
	}
}

func TestRead_CanonicalHeaderAndBlankCells(t *testing.T) {
	header := strings.Join(append(features.Names(), features.LabelColumn), ",")
	row := "90,,3,10,7,2,8,9,80,80,80,2,"
	ds, err := Read(strings.NewReader(header + "\n" + row + "\n"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	r := ds.Records[0]
	if !math.IsNaN(r.Values[features.IdxSelfStudy]) {
		t.Errorf("blank cell = %v, want NaN", r.Values[features.IdxSelfStudy])
	}
	if r.Label != 0 || r.Labeled() {
		t.Errorf("blank label = %d, want unlabeled", r.Label)
	}
}

func TestReadFeatures_LabelOptional(t *testing.T) {
	header := strings.Join(features.Columns(), ",")
	row := "90,10,3,10,7,2,8,9,80,80,80,2"
	input := header + "\n" + row + "\n"

	if _, err := Read(strings.NewReader(input)); err == nil {
		t.Fatal("Read accepted a dataset without the label column")
	}
	ds, err := ReadFeatures(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadFeatures: %v", err)
	}
	if ds.Len() != 1 || ds.Records[0].Labeled() {
		t.Fatalf("records = %+v", ds.Records)
	}
	if got := ds.Records[0].Values[features.IdxAttendance]; got != 90 {
		t.Errorf("attendance = %v, want 90", got)
	}

	// Feature columns stay mandatory.
	_, err = ReadFeatures(strings.NewReader("lankomumas_proc\n80\n"))
	var se *features.SchemaError
	if !errors.As(err, &se) || len(se.Missing) != features.Count-1 {
		t.Errorf("got %v, want SchemaError for the other features", err)
	}
}

func TestImputeMeans(t *testing.T) {
	a := sampleRecord(1, 0)
	b := sampleRecord(5, 10)
	c := sampleRecord(2, 0)
	c.Values[features.IdxGPA] = math.NaN()
	ds := &Dataset{Records: []features.Record{a, b, c}}

	if n := ds.ImputeMeans(); n != 1 {
		t.Errorf("filled %d, want 1", n)
	}
	want := (a.Values[features.IdxGPA] + b.Values[features.IdxGPA]) / 2
	if got := ds.Records[2].Values[features.IdxGPA]; got != want {
		t.Errorf("imputed %v, want %v", got, want)
	}
}

func TestClassCounts(t *testing.T) {
	ds := &Dataset{Records: []features.Record{
		sampleRecord(1, 0), sampleRecord(3, 0), sampleRecord(4, 0),
	}}
	no, yes := ds.ClassCounts()
	if no != 2 || yes != 1 {
		t.Errorf("counts = %d/%d, want 2/1", no, yes)
	}
}

func TestAppendFile_CreatesAndExtends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "students.csv")

	ds, err := AppendFile(path, []features.Record{sampleRecord(2, 1)})
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if ds.Len() != 1 {
		t.Fatalf("len = %d, want 1", ds.Len())
	}

	ds, err = AppendFile(path, []features.Record{sampleRecord(5, 2), sampleRecord(4, 3)})
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("len = %d, want 3", ds.Len())
	}

	onDisk, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if onDisk.Len() != 3 || onDisk.Records[0].Label != 2 {
		t.Errorf("on disk = %+v", onDisk.Records)
	}
}
