package fault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestKindOfClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"validation", Validation("empty", "empty input"), KindValidation},
		{"upstream", UpstreamStatus(502, "bad gateway"), KindUpstream},
		{"timeout", Timeout("slow", context.DeadlineExceeded), KindTimeout},
		{"cancelled", Cancelled(context.Canceled), KindCancelled},
		{"wrapped fault", fmt.Errorf("stage: %w", Validation("x", "y")), KindValidation},
		{"raw deadline", context.DeadlineExceeded, KindTimeout},
		{"raw cancel", context.Canceled, KindCancelled},
		{"unknown", errors.New("mystery"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUpstream, http.StatusBadGateway},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindCancelled, http.StatusRequestTimeout},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.kind); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestFromCallDistinguishesTimeoutFromCancellation(t *testing.T) {
	parent := context.Background()

	callCtx, cancel := context.WithTimeout(parent, time.Nanosecond)
	defer cancel()
	<-callCtx.Done()

	err := FromCall(parent, callCtx, "stage", callCtx.Err())
	if KindOf(err) != KindTimeout {
		t.Fatalf("adapter deadline: kind = %v, want timeout", KindOf(err))
	}

	cancelledParent, cancelParent := context.WithCancel(context.Background())
	cancelParent()
	childCtx, cancelChild := context.WithTimeout(cancelledParent, time.Minute)
	defer cancelChild()

	err = FromCall(cancelledParent, childCtx, "stage", context.Canceled)
	if KindOf(err) != KindCancelled {
		t.Fatalf("caller cancellation: kind = %v, want cancelled", KindOf(err))
	}
}

func TestFromCallPassesFaultsThrough(t *testing.T) {
	parent := context.Background()
	callCtx, cancel := context.WithTimeout(parent, time.Minute)
	defer cancel()

	orig := UpstreamStatus(429, "rate limited")
	err := FromCall(parent, callCtx, "stage", orig)
	var fe *Error
	if !errors.As(err, &fe) || fe != orig {
		t.Fatalf("FromCall() = %v, want original fault passed through", err)
	}
}

func TestUpstreamStatusCarriesCode(t *testing.T) {
	err := UpstreamStatus(503, "model loading")
	if got := CodeOf(err); got != "upstream_status_503" {
		t.Fatalf("CodeOf() = %q, want upstream_status_503", got)
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("IsRetryableHTTPStatus(%d) = false, want true", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("IsRetryableHTTPStatus(%d) = true, want false", code)
		}
	}
}
