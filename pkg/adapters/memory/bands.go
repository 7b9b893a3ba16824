package memory

import (
	"context"

	"github.com/aretw0/guiche/pkg/domain"
)

// Bands implements ports.ScoreBandTable over a fixed table.
type Bands struct {
	table domain.BandTable
}

// NewBands creates a band table.
func NewBands(bands ...domain.ScoreBand) *Bands {
	return &Bands{table: domain.NewBandTable(bands)}
}

// LookupMaxAllowedLimit returns 0 when no band matches.
func (b *Bands) LookupMaxAllowedLimit(ctx context.Context, score float64) (float64, error) {
	limit, _ := b.table.MaxAllowed(score)
	return limit, nil
}

// Bands returns the ordered table.
func (b *Bands) Bands() []domain.ScoreBand {
	out := make([]domain.ScoreBand, len(b.table))
	copy(out, b.table)
	return out
}
