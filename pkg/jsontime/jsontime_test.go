package jsontime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMilliRoundTrip(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	b, err := json.Marshal(Milli(now))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != "1700000000123" {
		t.Fatalf("Marshal = %s, want 1700000000123", b)
	}

	var m Milli
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !m.Time().Equal(now) {
		t.Fatalf("round trip = %v, want %v", m.Time(), now)
	}
}

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"string", `"3s"`, 3 * time.Second},
		{"nanoseconds", `5000000000`, 5 * time.Second},
		{"null", `null`, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var d Duration
			if err := json.Unmarshal([]byte(tc.input), &d); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tc.input, err)
			}
			if d.Duration() != tc.want {
				t.Fatalf("Unmarshal(%s) = %v, want %v", tc.input, d.Duration(), tc.want)
			}
		})
	}
}
