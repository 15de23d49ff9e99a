package cmd

import (
	"testing"
	"time"
)

// TestResolveTimeout verifies the receive timeout keeps the flag's duration
// semantics, sub-second values included, and only falls back to the config
// file's whole seconds when the flag was not given.
func TestResolveTimeout(t *testing.T) {
	cases := []struct {
		name        string
		flagSet     bool
		flagValue   time.Duration
		fileSeconds int
		want        time.Duration
	}{
		{"sub-second flag survives", true, 500 * time.Millisecond, 5, 500 * time.Millisecond},
		{"fractional flag survives", true, 1500 * time.Millisecond, 5, 1500 * time.Millisecond},
		{"whole-second flag", true, 2 * time.Second, 5, 2 * time.Second},
		{"file value when flag unset", false, 0, 3, 3 * time.Second},
	}
	for _, c := range cases {
		if got := resolveTimeout(c.flagSet, c.flagValue, c.fileSeconds); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}
