package features

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Student is the form-entry shape of a record, as submitted by an advisor
// or passed on the command line.
type Student struct {
	AttendancePct    float64 `json:"attendance_pct" validate:"gte=0,lte=100"`
	SelfStudyHours   float64 `json:"self_study_hours" validate:"gte=0,lte=60"`
	StressLevel      float64 `json:"stress_level" validate:"gte=1,lte=5"`
	WorkHours        float64 `json:"work_hours" validate:"gte=0,lte=80"`
	SleepHours       float64 `json:"sleep_hours" validate:"gte=0,lte=24"`
	SocialMediaHours float64 `json:"social_media_hours" validate:"gte=0,lte=24"`
	GPA              float64 `json:"gpa" validate:"gte=0,lte=10"`
	HighSchoolGPA    float64 `json:"high_school_gpa" validate:"gte=0,lte=10"`
	ExamScore1       float64 `json:"exam_score_1" validate:"gte=0,lte=100"`
	ExamScore2       float64 `json:"exam_score_2" validate:"gte=0,lte=100"`
	ExamScore3       float64 `json:"exam_score_3" validate:"gte=0,lte=100"`
	FinancialStress  float64 `json:"financial_stress" validate:"gte=1,lte=5"`

	// IntentToQuit is the optional 1-5 answer; zero when not given.
	IntentToQuit int `json:"ketinu_mesti_studijas" validate:"omitempty,gte=1,lte=5"`
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON names so messages match the feature contract.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FieldErrors maps a field name to its translated validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fe[k]
	}
	return "invalid student: " + strings.Join(parts, "; ")
}

// Validate checks every field against its domain.
func (s Student) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}

// Vector returns the feature values in contract order.
func (s Student) Vector() Vector {
	return Vector{
		s.AttendancePct,
		s.SelfStudyHours,
		s.StressLevel,
		s.WorkHours,
		s.SleepHours,
		s.SocialMediaHours,
		s.GPA,
		s.HighSchoolGPA,
		s.ExamScore1,
		s.ExamScore2,
		s.ExamScore3,
		s.FinancialStress,
	}
}

// Record converts the form into a record.
func (s Student) Record() Record {
	return Record{Values: s.Vector(), Label: s.IntentToQuit}
}

// StudentFromRecord is the inverse of Student.Record.
func StudentFromRecord(r Record) Student {
	v := r.Values
	return Student{
		AttendancePct:    v[IdxAttendance],
		SelfStudyHours:   v[IdxSelfStudy],
		StressLevel:      v[IdxStress],
		WorkHours:        v[IdxWork],
		SleepHours:       v[IdxSleep],
		SocialMediaHours: v[IdxSocialMedia],
		GPA:              v[IdxGPA],
		HighSchoolGPA:    v[IdxHighSchoolGPA],
		ExamScore1:       v[IdxExam1],
		ExamScore2:       v[IdxExam2],
		ExamScore3:       v[IdxExam3],
		FinancialStress:  v[IdxFinancialStress],
		IntentToQuit:     r.Label,
	}
}
