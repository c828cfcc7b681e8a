package errors

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"testing"

	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	decodeErr := json.Unmarshal([]byte("{"), &map[string]any{})

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error", err: apperrors.NotFound("job missing"), want: "not_found"},
		{name: "wrapped app error", err: fmt.Errorf("load: %w", apperrors.Upstreamf("backend returned %d", 502)), want: "upstream"},
		{name: "deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "innermost type", err: fmt.Errorf("decode: %w", decodeErr), want: "json_syntaxerror"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
