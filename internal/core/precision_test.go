package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundStepPrecision(t *testing.T) {
	cases := []struct {
		name  string
		value string
		step  string
		want  string
	}{
		{"three digits", "1.23456", "0.001", "1.235"},
		{"trailing zeros stripped", "1.23456", "0.00100", "1.235"},
		{"tick with trailing zero", "65000.07", "0.10", "65000.1"},
		{"whole unit rounds to integer", "7.8", "1", "8"},
		{"zero pads to precision", "0", "0.001", "0.000"},
		{"half rounds away from zero", "0.0015", "0.001", "0.002"},
		{"snaps to nearest", "0.12349", "0.0001", "0.1235"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Round(decimal.RequireFromString(tc.value), tc.step)
			if err != nil {
				t.Fatalf("Round(%s, %s) error = %v", tc.value, tc.step, err)
			}
			if got != tc.want {
				t.Fatalf("Round(%s, %s) = %q, want %q", tc.value, tc.step, got, tc.want)
			}
		})
	}
}

func TestRoundIdempotent(t *testing.T) {
	first, err := Round(decimal.RequireFromString("1.23456"), "0.001")
	if err != nil {
		t.Fatalf("Round() error = %v", err)
	}
	second, err := Round(decimal.RequireFromString(first), "0.001")
	if err != nil {
		t.Fatalf("Round(rounded) error = %v", err)
	}
	if first != second {
		t.Fatalf("re-rounding changed value: %q -> %q", first, second)
	}
}

func TestRoundRejectsNegativeValue(t *testing.T) {
	_, err := Round(decimal.RequireFromString("-5"), "0.01")
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Round(-5) error = %v, want %v", err, ErrInvalidValue)
	}
}

func TestRoundRejectsBadStep(t *testing.T) {
	if _, err := Round(decimal.RequireFromString("1"), "abc"); err == nil {
		t.Fatalf("Round() with unparsable step should fail")
	}
	if _, err := Round(decimal.RequireFromString("1"), "0"); err == nil {
		t.Fatalf("Round() with zero step should fail")
	}
}

func TestStepPrecision(t *testing.T) {
	cases := []struct {
		step string
		want int32
	}{
		{"1", 0},
		{"0.001", 3},
		{"0.00100", 3},
		{"0.10", 1},
		{"0.00000001", 8},
	}
	for _, tc := range cases {
		if got := StepPrecision(tc.step); got != tc.want {
			t.Fatalf("StepPrecision(%q) = %d, want %d", tc.step, got, tc.want)
		}
	}
}
