package orchestrator

import (
	"strings"
	"testing"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "plain", input: "521.892.938-71", want: "521.892.938-71"},
		{name: "keeps newline and tab", input: "a\tb\nc", want: "a\tb\nc"},
		{name: "strips ansi escape", input: "\x1b[31m1990-05-17\x1b[0m", want: "[31m1990-05-17[0m"},
		{name: "strips null and bell", input: "12\x00\x073", want: "123"},
		{name: "invalid utf8", input: "\xff\xfe", wantErr: domain.ErrInvalidUTF8},
		{name: "too large", input: strings.Repeat("x", DefaultMaxInputSize+1), wantErr: domain.ErrInputTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input, 0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOption(t *testing.T) {
	tests := map[string]option{
		"1":                  optionLimit,
		"qual meu limite":    optionLimit,
		"2":                  optionIncrease,
		"aumentar limite":    optionIncrease,
		"3":                  optionInterview,
		"refazer entrevista": optionInterview,
		"4":                  optionQuote,
		"cotacao do dolar":   optionQuote,
		"ajuda":              optionHelp,
		"bom dia":            optionNone,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseOption(in), in)
	}
}

func TestParseQuoteRequest(t *testing.T) {
	base, target, amount, ok := parseQuoteRequest("USD BRL 100")
	require.True(t, ok)
	assert.Equal(t, "USD", base)
	assert.Equal(t, "BRL", target)
	assert.Equal(t, 100.0, amount)

	base, target, amount, ok = parseQuoteRequest("eur/brl")
	require.True(t, ok)
	assert.Equal(t, "EUR", base)
	assert.Equal(t, "BRL", target)
	assert.Equal(t, 1.0, amount)

	_, _, _, ok = parseQuoteRequest("USD")
	assert.False(t, ok)
	_, _, _, ok = parseQuoteRequest("USD BRL EUR")
	assert.False(t, ok)
}

func TestParseCountAndYesNo(t *testing.T) {
	n, ok := parseCount("2 filhos")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	n, ok = parseCount("nenhum")
	assert.True(t, ok)
	assert.Equal(t, 0, n)
	_, ok = parseCount("muitos")
	assert.False(t, ok)

	v, ok := parseYesNo("Sim")
	assert.True(t, ok)
	assert.True(t, v)
	v, ok = parseYesNo("não")
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = parseYesNo("talvez")
	assert.False(t, ok)
}
