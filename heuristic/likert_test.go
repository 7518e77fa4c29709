package heuristic

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizeLikert(t *testing.T) {
	tests := []struct {
		name    string
		raw     float64
		want    float64
		wantErr error
	}{
		{name: "lowest", raw: 1, want: 0},
		{name: "middle", raw: 3, want: 50},
		{name: "highest", raw: 5, want: 100},
		{name: "fractional", raw: 2.5, want: 37.5},
		{name: "below range", raw: 0, wantErr: ErrScoreOutOfRange},
		{name: "above range", raw: 6, wantErr: ErrScoreOutOfRange},
		{name: "negative sentinel", raw: -1, wantErr: ErrScoreOutOfRange},
		{name: "nan", raw: math.NaN(), wantErr: ErrScoreOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeLikert(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NormalizeLikert(%v) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeLikert(%v) unexpected error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeLikert(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
