package domain

import "sort"

// ScoreBand maps an inclusive score range to the maximum credit limit allowed.
type ScoreBand struct {
	Min      int     `json:"min" yaml:"min" mapstructure:"min"`
	Max      int     `json:"max" yaml:"max" mapstructure:"max"`
	MaxLimit float64 `json:"max_limit" yaml:"max_limit" mapstructure:"max_limit"`
}

// Contains reports whether score falls inside the band.
func (b ScoreBand) Contains(score float64) bool {
	return float64(b.Min) <= score && score <= float64(b.Max)
}

// BandTable is an ordered, in-memory score band table.
type BandTable []ScoreBand

// NewBandTable copies and orders bands by their lower bound.
func NewBandTable(bands []ScoreBand) BandTable {
	t := make(BandTable, len(bands))
	copy(t, bands)
	sort.SliceStable(t, func(i, j int) bool { return t[i].Min < t[j].Min })
	return t
}

// MaxAllowed returns the limit of the first band containing score and whether one matched.
// Bounds are inclusive, so fractional scores that fall between two integer
// bands (300.5 between 0-300 and 301-600) match nothing and report false,
// the same as scores outside the table.
func (t BandTable) MaxAllowed(score float64) (float64, bool) {
	for _, b := range t {
		if b.Contains(score) {
			return b.MaxLimit, true
		}
	}
	return 0, false
}
