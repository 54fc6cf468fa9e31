package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

var _ ports.DirectoryMetrics = Directory{}

func TestResult(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.NewValidationError("bad"), "validation"},
		{domain.InvalidManagerError("bad manager"), "invalid_manager"},
		{fmt.Errorf("get x: %w", domain.ErrUserNotFound), "not_found"},
		{domain.ErrUserExists, "exists"},
		{domain.ErrForbidden, "forbidden"},
		{domain.ErrConflict, "conflict"},
		{&domain.StoreError{Op: "put", Err: errors.New("down")}, "store"},
		{errors.New("boom"), "error"},
	}
	for _, tc := range cases {
		if got := Result(tc.err); got != tc.want {
			t.Fatalf("Result(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestDirectory_Counters(t *testing.T) {
	m := NewDirectory()

	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("metrics_test", "not_found"))
	m.ObserveOperation("metrics_test", domain.ErrUserNotFound, 5*time.Millisecond)
	if got := testutil.ToFloat64(OperationsTotal.WithLabelValues("metrics_test", "not_found")); got != before+1 {
		t.Fatalf("expected operations counter to grow by one, got %v -> %v", before, got)
	}

	before = testutil.ToFloat64(StoreConflictsTotal.WithLabelValues("metrics_test"))
	m.ObserveConflict("metrics_test")
	if got := testutil.ToFloat64(StoreConflictsTotal.WithLabelValues("metrics_test")); got != before+1 {
		t.Fatalf("expected conflict counter to grow by one")
	}

	before = testutil.ToFloat64(PartialWritesTotal.WithLabelValues("metrics_test"))
	m.ObservePartialWrite("metrics_test")
	if got := testutil.ToFloat64(PartialWritesTotal.WithLabelValues("metrics_test")); got != before+1 {
		t.Fatalf("expected partial write counter to grow by one")
	}

	before = testutil.ToFloat64(LoginsTotal.WithLabelValues("success"))
	m.ObserveLogin("success")
	if got := testutil.ToFloat64(LoginsTotal.WithLabelValues("success")); got != before+1 {
		t.Fatalf("expected login counter to grow by one")
	}
}
