package search

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"mediastream/sourcesearch/internal/domain"
)

// SourceError lets an adapter state its own failure kind instead of relying
// on the orchestrator's heuristics.
type SourceError struct {
	Kind domain.ErrorKind
	Err  error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *SourceError) Unwrap() error { return e.Err }

// classifyError maps an adapter failure onto the outcome taxonomy. Explicit
// SourceError kinds win; otherwise timeouts, then network errors, then
// parse/ratelimit text markers.
func classifyError(err error) domain.ErrorKind {
	if err == nil {
		return domain.ErrorKindNone
	}

	var srcErr *SourceError
	if errors.As(err, &srcErr) && srcErr.Kind != domain.ErrorKindNone {
		return srcErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ErrorKindTimeout
		}
		return domain.ErrorKindNetwork
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.ErrorKindNetwork
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return domain.ErrorKindTimeout
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests"):
		return domain.ErrorKindRateLimit
	case strings.Contains(lower, "parse") || strings.Contains(lower, "unmarshal") || strings.Contains(lower, "unexpected payload") || strings.Contains(lower, "invalid character"):
		return domain.ErrorKindParse
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") || strings.Contains(lower, "no such host") || strings.Contains(lower, "tls") || strings.Contains(lower, "eof"):
		return domain.ErrorKindNetwork
	default:
		return domain.ErrorKindUnknown
	}
}
