package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/atrisk/internal/features"
)

// builder renders SQLite statements.
var builder = entsql.Dialect(dialect.SQLite)

// studentRepo implements StudentRepo.
type studentRepo struct {
	db  *sql.DB
	now func() time.Time
}

func studentSelectColumns() []string {
	cols := append([]string{colID}, features.Columns()...)
	return append(cols, colLabel, colHasRealAnswer, colIsTrained, colCreatedAt)
}

func (r *studentRepo) timestamp() time.Time {
	if r.now != nil {
		return r.now().UTC()
	}
	return time.Now().UTC()
}

func (r *studentRepo) Save(ctx context.Context, rec features.Record) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("save student: %w", err)
	}
	cols := append(features.Columns(), colLabel, colHasRealAnswer, colIsTrained, colCreatedAt)
	vals := make([]any, 0, len(cols))
	for _, x := range rec.Values {
		vals = append(vals, x)
	}
	var label any
	if rec.Labeled() {
		label = rec.Label
	}
	vals = append(vals, label, rec.Labeled(), false, r.timestamp())

	query, args := builder.Insert(studentsTableName).Columns(cols...).Values(vals...).Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("save student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save student: %w", err)
	}
	return id, nil
}

func (r *studentRepo) Get(ctx context.Context, id int64) (*Student, error) {
	sel := builder.Select(studentSelectColumns()...).
		From(entsql.Table(studentsTableName)).
		Where(entsql.EQ(colID, id))
	students, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, fmt.Errorf("student %d: %w", id, ErrNotFound)
	}
	return &students[0], nil
}

func (r *studentRepo) List(ctx context.Context, opts QueryOpts) ([]Student, error) {
	sel := builder.Select(studentSelectColumns()...).From(entsql.Table(studentsTableName))
	applyOpts(sel, colCreatedAt, opts)
	return r.query(ctx, sel)
}

func (r *studentRepo) Untrained(ctx context.Context) ([]Student, error) {
	sel := builder.Select(studentSelectColumns()...).
		From(entsql.Table(studentsTableName)).
		Where(untrainedPredicate()).
		OrderBy(entsql.Desc(colCreatedAt), entsql.Desc(colID))
	return r.query(ctx, sel)
}

func untrainedPredicate() *entsql.Predicate {
	return entsql.And(entsql.EQ(colIsTrained, false), entsql.EQ(colHasRealAnswer, true))
}

func (r *studentRepo) MarkTrained(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query, qargs := builder.Update(studentsTableName).
		Set(colIsTrained, true).
		Where(entsql.In(colID, args...)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, qargs...); err != nil {
		return fmt.Errorf("mark students trained: %w", err)
	}
	return nil
}

func (r *studentRepo) Counts(ctx context.Context) (total, untrained int, err error) {
	total, err = count(ctx, r.db, builder.Select(entsql.Count("*")).From(entsql.Table(studentsTableName)))
	if err != nil {
		return 0, 0, fmt.Errorf("count students: %w", err)
	}
	untrained, err = count(ctx, r.db, builder.Select(entsql.Count("*")).
		From(entsql.Table(studentsTableName)).
		Where(untrainedPredicate()))
	if err != nil {
		return 0, 0, fmt.Errorf("count untrained students: %w", err)
	}
	return total, untrained, nil
}

func (r *studentRepo) query(ctx context.Context, sel *entsql.Selector) ([]Student, error) {
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var (
			s     Student
			label sql.NullInt64
		)
		dest := []any{&s.ID}
		for i := range s.Record.Values {
			dest = append(dest, &s.Record.Values[i])
		}
		dest = append(dest, &label, &s.HasRealAnswer, &s.IsTrained, &s.CreatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		if label.Valid {
			s.Record.Label = int(label.Int64)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	return out, nil
}

// applyOpts adds time bounds, newest-first ordering and a limit.
func applyOpts(sel *entsql.Selector, timeCol string, opts QueryOpts) {
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE(timeCol, opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE(timeCol, opts.To.UTC()))
	}
	sel.OrderBy(entsql.Desc(timeCol), entsql.Desc(colID))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
}

func count(ctx context.Context, db *sql.DB, sel *entsql.Selector) (int, error) {
	query, args := sel.Query()
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
