package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

var (
	noteOK   = MockResponse{Content: json.RawMessage(`{"summary":"ok","priority":1}`)}
	down     = MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
	offShape = MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`{}`), Err: errors.New("missing summary")}}
)

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		responses []MockResponse
		wantCalls int
		wantErr   bool
	}{
		{"first attempt", []MockResponse{noteOK}, 1, false},
		{"outage then note", []MockResponse{down, noteOK}, 2, false},
		{"rate limit honours retry-after", []MockResponse{
			{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}}, noteOK,
		}, 2, false},
		{"gives up after max attempts", []MockResponse{down, down, down, noteOK}, 3, true},
		{"truncation is final", []MockResponse{
			{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"summ`)}}, noteOK,
		}, 1, true},
		{"rejected request is final", []MockResponse{
			{Err: &ErrRejected{Status: 400, Err: errors.New("bad request")}}, noteOK,
		}, 1, true},
		{"off-schema retried once", []MockResponse{offShape, offShape, noteOK}, 2, true},
		{"off-schema then note", []MockResponse{offShape, noteOK}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			resp, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{Schema: testSchema()})

			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(resp.Content) != string(noteOK.Content) {
				t.Errorf("content = %s", resp.Content)
			}
			if mock.CallCount() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", mock.CallCount(), tt.wantCalls)
			}
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	mock := NewMockProvider(down, down, noteOK)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(mock, fastRetry()).Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetry_BackoffCapped(t *testing.T) {
	r := &RetryProvider{config: RetryConfig{InitialWait: time.Second, MaxWait: 2 * time.Second, Multiplier: 10}}
	for attempt := range 4 {
		// MaxWait plus 20% jitter.
		if w := r.backoff(attempt, errors.New("x")); w > 2400*time.Millisecond {
			t.Errorf("attempt %d waited %s", attempt, w)
		}
	}
}

func TestRetry_ModelIDDelegates(t *testing.T) {
	if id := WithRetry(NewMockProvider(), fastRetry()).ModelID(); id != "mock" {
		t.Fatalf("model = %q", id)
	}
}
