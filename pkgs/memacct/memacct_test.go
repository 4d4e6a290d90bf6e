package memacct

import (
	"errors"
	"strings"
	"testing"

	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
)

func TestCounterIncDecRoundTrip(t *testing.T) {
	c := NewCounter(1024)
	if err := c.Inc(100); err != nil {
		t.Fatalf("Inc: %v", err)
	}
	if c.Used() != 100 {
		t.Errorf("Used() = %d, want 100", c.Used())
	}
	c.Dec(100)
	if !c.Baseline() {
		t.Error("counter should return to baseline after crediting back all charged bytes")
	}
}

func TestCounterDecNeverGoesNegative(t *testing.T) {
	c := NewCounter(0)
	c.Dec(50)
	if c.Used() != 0 {
		t.Errorf("Used() = %d, want 0 (decrementing past zero must clamp)", c.Used())
	}
}

func TestCounterIncOverflowNamesCapInMegabytes(t *testing.T) {
	c := NewCounter(1024 * 1024) // 1 MB
	err := c.Inc(2 * 1024 * 1024)
	if err == nil {
		t.Fatal("expected a memory-limit-exceeded error")
	}
	var e *queryerr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *queryerr.Error, got %T", err)
	}
	if e.Kind != queryerr.Memory {
		t.Errorf("Kind = %v, want Memory", e.Kind)
	}
	if !strings.Contains(e.Error(), "1 MB") {
		t.Errorf("error message %q should name the cap in megabytes", e.Error())
	}
	if c.Used() != 0 {
		t.Error("a failed Inc must not change the counter")
	}
}

func TestCounterUnlimitedCapNeverOverflows(t *testing.T) {
	c := NewCounter(0)
	if err := c.Inc(1 << 40); err != nil {
		t.Errorf("a zero cap should mean unlimited, got error: %v", err)
	}
}
