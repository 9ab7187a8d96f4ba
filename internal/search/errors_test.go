package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"mediastream/sourcesearch/internal/domain"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type plainNetError struct{}

func (plainNetError) Error() string   { return "network unreachable" }
func (plainNetError) Timeout() bool   { return false }
func (plainNetError) Temporary() bool { return false }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"nil", nil, domain.ErrorKindNone},
		{"deadline", context.DeadlineExceeded, domain.ErrorKindTimeout},
		{"wrapped deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), domain.ErrorKindTimeout},
		{"net timeout", timeoutError{}, domain.ErrorKindTimeout},
		{"net other", plainNetError{}, domain.ErrorKindNetwork},
		{"eof", io.EOF, domain.ErrorKindNetwork},
		{"unexpected eof", io.ErrUnexpectedEOF, domain.ErrorKindNetwork},
		{"http 429", errors.New("aggregator HTTP 429: slow down"), domain.ErrorKindRateLimit},
		{"rate limit text", errors.New("rate limit exceeded"), domain.ErrorKindRateLimit},
		{"parse", errors.New("invalid character '<' looking for beginning of value"), domain.ErrorKindParse},
		{"unmarshal", errors.New("cannot unmarshal array"), domain.ErrorKindParse},
		{"refused", errors.New("dial tcp: connection refused"), domain.ErrorKindNetwork},
		{"unknown", errors.New("something odd"), domain.ErrorKindUnknown},
	}
	for _, tc := range tests {
		if got := classifyError(tc.err); got != tc.want {
			t.Fatalf("%s: classifyError = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSourceErrorKindWins(t *testing.T) {
	err := fmt.Errorf("variant: %w", &SourceError{
		Kind: domain.ErrorKindParse,
		Err:  errors.New("connection refused"),
	})
	if got := classifyError(err); got != domain.ErrorKindParse {
		t.Fatalf("explicit kind overridden: %q", got)
	}
}

func TestSourceErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &SourceError{Kind: domain.ErrorKindNetwork, Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("expected Unwrap to expose inner error")
	}
	if err.Error() != "boom" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
