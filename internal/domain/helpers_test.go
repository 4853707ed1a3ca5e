package domain

import "testing"

func TestToID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Hunger Games", want: "hungergames"},
		{in: "  Mini-Survivor!! ", want: "minisurvivor"},
		{in: "Pokémon", want: "pokemon"},
		{in: "ABC123", want: "abc123"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ToID(tt.in); got != tt.want {
				t.Fatalf("ToID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCountdown(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{seconds: 300, want: "5 minutes"},
		{seconds: 60, want: "1 minute"},
		{seconds: 90, want: "1 minute and 30 seconds"},
		{seconds: 61, want: "1 minute and 1 second"},
		{seconds: 45, want: "45 seconds"},
	}
	for _, tt := range tests {
		if got := Countdown(tt.seconds); got != tt.want {
			t.Fatalf("Countdown(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
