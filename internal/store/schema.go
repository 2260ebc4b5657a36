package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/abhisek/atrisk/internal/features"
)

const (
	studentsTableName    = "students"
	predictionsTableName = "predictions"
	llmRequestsTableName = "llm_requests"
)

// Student columns beyond the feature contract.
const (
	colID            = "id"
	colLabel         = features.LabelColumn
	colHasRealAnswer = "has_real_answer"
	colIsTrained     = "is_trained"
	colCreatedAt     = "created_at"
)

var (
	// studentsColumns holds the id, the feature columns in contract order,
	// then the label and bookkeeping flags.
	studentsColumns = func() []*schema.Column {
		cols := []*schema.Column{{Name: colID, Type: field.TypeInt64, Increment: true}}
		for _, c := range features.Columns() {
			cols = append(cols, &schema.Column{Name: c, Type: field.TypeFloat64})
		}
		return append(cols,
			&schema.Column{Name: colLabel, Type: field.TypeInt, Nullable: true},
			&schema.Column{Name: colHasRealAnswer, Type: field.TypeBool, Default: false},
			&schema.Column{Name: colIsTrained, Type: field.TypeBool, Default: false},
			&schema.Column{Name: colCreatedAt, Type: field.TypeTime},
		)
	}()
	studentsTable = &schema.Table{
		Name:       studentsTableName,
		Columns:    studentsColumns,
		PrimaryKey: []*schema.Column{studentsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "student_is_trained_has_real_answer",
				Columns: []*schema.Column{studentsColumns[len(studentsColumns)-3], studentsColumns[len(studentsColumns)-2]},
			},
		},
	}

	predictionsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: "student_id", Type: field.TypeInt64},
		{Name: "prediction", Type: field.TypeInt},
		{Name: "probability", Type: field.TypeFloat64},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "risk_level", Type: field.TypeString},
		{Name: "model_used", Type: field.TypeString},
		{Name: colCreatedAt, Type: field.TypeTime},
	}
	predictionsTable = &schema.Table{
		Name:       predictionsTableName,
		Columns:    predictionsColumns,
		PrimaryKey: []*schema.Column{predictionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "predictions_students_predictions",
				Columns:    []*schema.Column{predictionsColumns[1]},
				RefColumns: []*schema.Column{studentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "prediction_created_at", Columns: []*schema.Column{predictionsColumns[7]}},
		},
	}

	llmRequestsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	llmRequestsTable = &schema.Table{
		Name:       llmRequestsTableName,
		Columns:    llmRequestsColumns,
		PrimaryKey: []*schema.Column{llmRequestsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequest_purpose", Columns: []*schema.Column{llmRequestsColumns[4]}},
			{Name: "llmrequest_timestamp", Columns: []*schema.Column{llmRequestsColumns[1]}},
		},
	}

	// tables lists every table in creation order.
	tables = []*schema.Table{studentsTable, predictionsTable, llmRequestsTable}
)

func init() {
	predictionsTable.ForeignKeys[0].RefTable = studentsTable
}
