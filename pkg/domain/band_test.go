package domain_test

import (
	"testing"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestBandTable_MaxAllowed(t *testing.T) {
	table := domain.NewBandTable([]domain.ScoreBand{
		{Min: 301, Max: 600, MaxLimit: 5000},
		{Min: 0, Max: 300, MaxLimit: 1000},
	})

	tests := []struct {
		name    string
		score   float64
		want    float64
		matched bool
	}{
		{"lower bound inclusive", 0, 1000, true},
		{"upper bound inclusive", 300, 1000, true},
		{"next band", 301, 5000, true},
		{"between integer bands", 300.5, 0, false},
		{"above table", 600.01, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.MaxAllowed(tt.score)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
