package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want Kind
	}{
		{code: http.StatusUnauthorized, want: KindAuth},
		{code: http.StatusPaymentRequired, want: KindPayment},
		{code: http.StatusTooManyRequests, want: KindRateLimit},
		{code: http.StatusInternalServerError, want: KindGeneric},
		{code: http.StatusBadRequest, want: KindGeneric},
	}
	for _, tt := range tests {
		if got := KindFromStatus(tt.code); got != tt.want {
			t.Fatalf("KindFromStatus(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("analyze: %w", NewAPIError("openrouter", http.StatusTooManyRequests, "", ""))
	if !IsKind(err, KindRateLimit) {
		t.Fatalf("expected rate limit kind")
	}
	if IsKind(err, KindAuth) {
		t.Fatalf("unexpected auth kind")
	}
	if IsKind(errors.New("plain"), KindGeneric) {
		t.Fatalf("plain errors carry no kind")
	}
}

func TestGenericErrorMessageCarriesStatus(t *testing.T) {
	err := NewAPIError("openrouter", http.StatusBadGateway, "", "")
	if got := err.Error(); got != "openrouter: API error: 502 (Bad Gateway)" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestDisabledCompleterFailsWithAuth(t *testing.T) {
	_, err := DisabledCompleter{}.Complete(context.Background(), Request{})
	if !IsKind(err, KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}
