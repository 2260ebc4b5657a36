package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var predictionColumns = []string{
	colID, "student_id", "prediction", "probability", "confidence", "risk_level", "model_used", colCreatedAt,
}

// predictionRepo implements PredictionRepo.
type predictionRepo struct {
	db *sql.DB
}

func (r *predictionRepo) Save(ctx context.Context, p *Prediction) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query, args := builder.Insert(predictionsTableName).
		Columns(predictionColumns[1:]...).
		Values(p.StudentID, p.Prediction, p.Probability, p.Confidence, p.RiskLevel, p.ModelUsed, p.CreatedAt.UTC()).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	return nil
}

func (r *predictionRepo) List(ctx context.Context, opts QueryOpts) ([]Prediction, error) {
	sel := builder.Select(predictionColumns...).From(entsql.Table(predictionsTableName))
	applyOpts(sel, colCreatedAt, opts)
	return r.query(ctx, sel)
}

func (r *predictionRepo) ForStudent(ctx context.Context, studentID int64) ([]Prediction, error) {
	sel := builder.Select(predictionColumns...).
		From(entsql.Table(predictionsTableName)).
		Where(entsql.EQ("student_id", studentID))
	applyOpts(sel, colCreatedAt, QueryOpts{})
	return r.query(ctx, sel)
}

func (r *predictionRepo) Stats(ctx context.Context) (PredictionStats, error) {
	stats := PredictionStats{ByLevel: map[string]int{}}

	query, args := builder.Select(entsql.Count("*"), "COALESCE(AVG(`confidence`), 0)").
		From(entsql.Table(predictionsTableName)).
		Query()
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&stats.Total, &stats.AvgConfidence); err != nil {
		return stats, fmt.Errorf("prediction stats: %w", err)
	}

	risk, err := count(ctx, r.db, builder.Select(entsql.Count("*")).
		From(entsql.Table(predictionsTableName)).
		Where(entsql.EQ("prediction", 1)))
	if err != nil {
		return stats, fmt.Errorf("prediction stats: %w", err)
	}
	stats.Risk = risk

	query, args = builder.Select("risk_level", entsql.Count("*")).
		From(entsql.Table(predictionsTableName)).
		GroupBy("risk_level").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return stats, fmt.Errorf("prediction stats by level: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return stats, fmt.Errorf("scan prediction stats: %w", err)
		}
		stats.ByLevel[level] = n
	}
	return stats, rows.Err()
}

func (r *predictionRepo) query(ctx context.Context, sel *entsql.Selector) ([]Prediction, error) {
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.ID, &p.StudentID, &p.Prediction, &p.Probability, &p.Confidence,
			&p.RiskLevel, &p.ModelUsed, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	return out, nil
}
