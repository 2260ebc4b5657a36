package features

import (
	"errors"
	"math"
	"testing"
)

func TestContractOrder(t *testing.T) {
	names := Names()
	if len(names) != Count {
		t.Fatalf("got %d features, want %d", len(names), Count)
	}
	if names[IdxAttendance] != string(AttendancePct) {
		t.Errorf("first feature = %q", names[IdxAttendance])
	}
	if names[IdxFinancialStress] != string(FinancialStress) {
		t.Errorf("last feature = %q", names[IdxFinancialStress])
	}
	if Columns()[IdxSleep] != "miego_valandos" {
		t.Errorf("sleep column = %q", Columns()[IdxSleep])
	}
}

func TestIndex_AcceptsCanonicalAndColumn(t *testing.T) {
	for _, name := range []string{"work_hours", "darbo_valandos", " darbo_valandos "} {
		i, ok := Index(name)
		if !ok || i != IdxWork {
			t.Errorf("Index(%q) = %d, %v", name, i, ok)
		}
	}
	if _, ok := Index("shoe_size"); ok {
		t.Error("unknown feature resolved")
	}
}

func TestRiskFromLabel(t *testing.T) {
	tests := []struct {
		label int
		want  Risk
	}{
		{1, NoRisk},
		{2, NoRisk},
		{3, NoRisk},
		{4, AtRisk},
		{5, AtRisk},
	}
	for _, tt := range tests {
		if got := RiskFromLabel(tt.label); got != tt.want {
			t.Errorf("RiskFromLabel(%d) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestSpecClamp(t *testing.T) {
	s := At(IdxStress)
	if got := s.Clamp(7); got != 5 {
		t.Errorf("Clamp(7) = %v, want 5", got)
	}
	if got := s.Clamp(0); got != 1 {
		t.Errorf("Clamp(0) = %v, want 1", got)
	}
	if got := s.Clamp(math.NaN()); !math.IsNaN(got) {
		t.Errorf("Clamp(NaN) = %v, want NaN", got)
	}
}

func TestVectorMissingFeatures(t *testing.T) {
	v := Missing()
	v.Set(GPA, 7.5)
	missing := v.MissingFeatures()
	if len(missing) != Count-1 {
		t.Fatalf("got %d missing, want %d", len(missing), Count-1)
	}
	if v.Get(GPA) != 7.5 {
		t.Errorf("GPA = %v", v.Get(GPA))
	}
}

func validStudent() Student {
	return Student{
		AttendancePct: 85, SelfStudyHours: 10, StressLevel: 3, WorkHours: 20,
		SleepHours: 7, SocialMediaHours: 2, GPA: 7.5, HighSchoolGPA: 8.5,
		ExamScore1: 75, ExamScore2: 80, ExamScore3: 70, FinancialStress: 2,
	}
}

func TestStudentValidate(t *testing.T) {
	s := validStudent()
	if err := s.Validate(); err != nil {
		t.Fatalf("valid student rejected: %v", err)
	}

	s.AttendancePct = 120
	s.StressLevel = 0
	err := s.Validate()
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want FieldErrors", err)
	}
	if _, ok := fe["attendance_pct"]; !ok {
		t.Errorf("attendance_pct not reported: %v", fe)
	}
	if _, ok := fe["stress_level"]; !ok {
		t.Errorf("stress_level not reported: %v", fe)
	}
}

func TestStudentValidate_IntentToQuit(t *testing.T) {
	s := validStudent()
	s.IntentToQuit = 6
	if err := s.Validate(); err == nil {
		t.Error("expected error for intent 6")
	}
	s.IntentToQuit = 0
	if err := s.Validate(); err != nil {
		t.Errorf("unanswered intent rejected: %v", err)
	}
}

func TestStudentRecordRoundTrip(t *testing.T) {
	s := validStudent()
	s.IntentToQuit = 4
	r := s.Record()
	if r.Risk() != AtRisk {
		t.Errorf("risk = %v, want at risk", r.Risk())
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if back := StudentFromRecord(r); back != s {
		t.Errorf("round trip = %+v, want %+v", back, s)
	}
}
