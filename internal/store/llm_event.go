package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmEventColumns = []string{
	colID, "timestamp", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body",
}

// eventRepo implements EventRepo.
type eventRepo struct {
	db *sql.DB
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	query, args := builder.Insert(llmRequestsTableName).
		Columns(llmEventColumns[1:]...).
		Values(time.Now().UTC(), data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens,
			data.LatencyMs, data.Success, data.ErrorMessage, data.RequestBody, data.ResponseBody).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, q EventQuery) ([]LLMRequestEvent, error) {
	sel := builder.Select(llmEventColumns...).From(entsql.Table(llmRequestsTableName))
	if q.Purpose != "" {
		sel.Where(entsql.EQ("purpose", q.Purpose))
	}
	if q.FailedOnly {
		sel.Where(entsql.EQ("success", false))
	}
	applyOpts(sel, "timestamp", q.QueryOpts)
	return r.query(ctx, sel)
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error) {
	sel := builder.Select(llmEventColumns...).
		From(entsql.Table(llmRequestsTableName)).
		Where(entsql.EQ(colID, id))
	events, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "model")
}

func (r *eventRepo) usage(ctx context.Context, key string) ([]LLMUsage, error) {
	query, args := builder.Select(
		key,
		entsql.Count("*"),
		"COALESCE(SUM(`input_tokens`), 0)",
		"COALESCE(SUM(`output_tokens`), 0)",
		"CAST(COALESCE(AVG(`latency_ms`), 0) AS INTEGER)",
	).
		From(entsql.Table(llmRequestsTableName)).
		GroupBy(key).
		OrderBy(key).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("LLM usage by %s: %w", key, err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var u LLMUsage
		var name string
		if err := rows.Scan(&name, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		if key == "model" {
			u.Model = name
		} else {
			u.Purpose = name
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *eventRepo) query(ctx context.Context, sel *entsql.Selector) ([]LLMRequestEvent, error) {
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		var e LLMRequestEvent
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Provider, &e.Model, &e.Purpose, &e.InputTokens,
			&e.OutputTokens, &e.LatencyMs, &e.Success, &e.ErrorMessage, &e.RequestBody, &e.ResponseBody); err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return out, nil
}
