package models

import (
	"testing"
	"time"
)

func TestTimeWindowToSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "1s", want: 1},
		{in: "10s", want: 10},
		{in: "5m", want: 300},
		{in: "1h", want: 3600},
		{in: "2d", want: 172800},
		{in: "1m30s", want: 90},
		{in: "1500ms", want: 1},
		{in: "abc", wantErr: true},
		{in: "5w", wantErr: true},
		{in: "-5s", wantErr: true},
		{in: "106751d", want: 106751 * 86400},
		{in: "106752d", wantErr: true},
		{in: "9223372036854775807d", wantErr: true},
		{in: "99999999999999999999s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := TimeWindowToSeconds(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TimeWindowToSeconds(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("TimeWindowToSeconds(%q)=%d want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestTimeWindow(t *testing.T) {
	d, err := TimeWindow("2m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 2*time.Minute {
		t.Fatalf("got %v want 2m", d)
	}
}
