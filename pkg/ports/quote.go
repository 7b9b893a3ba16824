package ports

import (
	"context"

	"github.com/aretw0/guiche/pkg/domain"
)

// QuoteProvider converts an amount between currencies.
type QuoteProvider interface {
	// Quote returns domain.ErrUnsupportedCurrency for unknown pairs.
	Quote(ctx context.Context, base, target string, amount float64) (domain.Quote, error)
}
