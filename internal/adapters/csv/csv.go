/*
Package csv imports client and score-band tables from CSV files.

Headers are matched case-insensitively and may use either the Portuguese
column names of the bank's legacy exports (cpf, nome, data_nascimento, score,
limite_atual; score_min, score_max, limite_maximo) or their English
equivalents (id, name, birth_date, score, limit; min, max, max_limit).
*/
package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
)

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

var (
	clientColumns = map[string][]string{
		"id":         {"cpf", "id", "identifier"},
		"name":       {"nome", "name"},
		"birth_date": {"data_nascimento", "birth_date", "nascimento"},
		"score":      {"score"},
		"limit":      {"limite_atual", "limit", "limite"},
	}
	bandColumns = map[string][]string{
		"min":       {"score_min", "min", "min_score"},
		"max":       {"score_max", "max", "max_score"},
		"max_limit": {"limite_maximo", "max_limit"},
	}
)

// header maps canonical column names to their index.
type header map[string]int

func readHeader(r *stdcsv.Reader, columns map[string][]string) (header, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	pos := make(map[string]int, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		pos[name] = i
	}

	h := header{}
	for canonical, aliases := range columns {
		for _, alias := range aliases {
			if i, ok := pos[alias]; ok {
				h[canonical] = i
				break
			}
		}
		if _, ok := h[canonical]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, canonical)
		}
	}
	return h, nil
}

func (h header) get(row []string, column string) string {
	i := h[column]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func newReader(r io.Reader) *stdcsv.Reader {
	cr := stdcsv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// parseNumber accepts "650", "650.5" and "650,5".
func parseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
}

// ReadClients parses a client table. Identifiers and birth dates are normalized
// and scores clamped to the valid range.
func ReadClients(r io.Reader) ([]domain.Client, error) {
	cr := newReader(r)
	h, err := readHeader(cr, clientColumns)
	if err != nil {
		return nil, err
	}

	var out []domain.Client
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id, err := identity.NormalizeIdentifier(h.get(row, "id"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		birth, err := identity.ParseBirthDate(h.get(row, "birth_date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		score, err := parseNumber(h.get(row, "score"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid score: %w", line, err)
		}
		limit, err := parseNumber(h.get(row, "limit"))
		if err != nil || limit < 0 {
			return nil, fmt.Errorf("line %d: %w: %q", line, domain.ErrInvalidAmount, h.get(row, "limit"))
		}

		out = append(out, domain.Client{
			ID:        id,
			Name:      h.get(row, "name"),
			BirthDate: birth,
			Score:     domain.ClampScore(score),
			Limit:     domain.Round2(limit),
		})
	}
}

// ReadBands parses a score-band table.
func ReadBands(r io.Reader) ([]domain.ScoreBand, error) {
	cr := newReader(r)
	h, err := readHeader(cr, bandColumns)
	if err != nil {
		return nil, err
	}

	var out []domain.ScoreBand
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		minScore, err := parseNumber(h.get(row, "min"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid min score: %w", line, err)
		}
		maxScore, err := parseNumber(h.get(row, "max"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid max score: %w", line, err)
		}
		maxLimit, err := parseNumber(h.get(row, "max_limit"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid max limit: %w", line, err)
		}
		if minScore > maxScore {
			return nil, fmt.Errorf("line %d: band %v-%v is inverted", line, minScore, maxScore)
		}

		out = append(out, domain.ScoreBand{Min: int(minScore), Max: int(maxScore), MaxLimit: maxLimit})
	}
}
