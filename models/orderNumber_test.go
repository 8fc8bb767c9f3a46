package models

import (
	"testing"
	"time"
)

func TestFormatOrderNumber(t *testing.T) {
	aug := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	if got := formatOrderNumber(aug, 1); got != "ORD-202608-0001" {
		t.Errorf("got %s, want ORD-202608-0001", got)
	}
	if got := formatOrderNumber(aug, 42); got != "ORD-202608-0042" {
		t.Errorf("got %s, want ORD-202608-0042", got)
	}
	// Beyond 4 digits the number widens rather than wrapping.
	if got := formatOrderNumber(aug, 12345); got != "ORD-202608-12345" {
		t.Errorf("got %s, want ORD-202608-12345", got)
	}

	jan := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := formatOrderNumber(jan, 7); got != "ORD-202701-0007" {
		t.Errorf("got %s, want ORD-202701-0007", got)
	}
}

func TestParseOrderNumberSequence(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"ORD-202608-0042", 42},
		{"ORD-202608-0001", 1},
		{"ORD-202608-12345", 12345},
		{"ORD-202608-", 0},
		{"legacy-format", 0},
		{"", 0},
		{"ORD-202608-00x2", 0},
	}
	for _, c := range cases {
		if got := parseOrderNumberSequence(c.in); got != c.want {
			t.Errorf("parseOrderNumberSequence(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestMaxSequence(t *testing.T) {
	if got := maxSequence(nil); got != 0 {
		t.Errorf("maxSequence(nil) = %d, want 0", got)
	}
	if got := maxSequence([]string{"ORD-202608-0001", "ORD-202608-0042", "ORD-202608-0007"}); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	// A widened sequence must outrank "9999" even though it sorts below it
	// as a string.
	if got := maxSequence([]string{"ORD-202608-9999", "ORD-202608-10000", "ORD-202608-0500"}); got != 10000 {
		t.Errorf("got %d, want 10000", got)
	}
	// Legacy rows that don't follow the scheme count as zero.
	if got := maxSequence([]string{"legacy-1", "ORD-202608-0003"}); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestOrderNumberMonthPrefix(t *testing.T) {
	dec := time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)
	if got := orderNumberMonthPrefix(dec); got != "ORD-202612-" {
		t.Errorf("got %s, want ORD-202612-", got)
	}
}
