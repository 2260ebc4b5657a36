package llm

import (
	"encoding/json"
	"net/http"

	"github.com/abhisek/atrisk/internal/jsondoc"
)

// validateResponse checks raw against schema. A nil schema accepts
// anything. Failures are *ErrInvalidResponse.
func validateResponse(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}
	if err := jsondoc.Validate(schema.Document(), raw); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: err}
	}
	return nil
}

// finishResponse applies the checks every provider shares once the raw
// completion is in hand. Structured output cut off at the token limit is
// reported as truncated rather than as a schema failure.
func finishResponse(req Request, resp *Response) (*Response, error) {
	if resp.Stop == "" {
		resp.Stop = StopEnd
	}
	if req.Schema != nil && resp.Stop == StopMaxTokens {
		return nil, &ErrMaxTokensExceeded{Content: resp.Content}
	}
	if err := validateResponse(req.Schema, resp.Content); err != nil {
		return nil, err
	}
	return resp, nil
}

// stopFrom normalizes a provider finish reason given the provider's own
// name for hitting the token limit.
func stopFrom(reason, truncated string) Stop {
	if reason == truncated {
		return StopMaxTokens
	}
	return StopEnd
}

// statusError classifies a failed HTTP exchange. 429 is a rate limit, any
// other 4xx is a request the provider will keep rejecting, and the rest
// (5xx, status 0 for transport failures) is an outage.
func statusError(status int, retryAfter string, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{RetryAfter: parseRetryAfter(retryAfter), Err: err}
	case status >= 400 && status < 500:
		return &ErrRejected{Status: status, Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
