package orchestrator

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/aretw0/guiche/pkg/identity"
)

type option int

const (
	optionNone option = iota
	optionLimit
	optionIncrease
	optionInterview
	optionQuote
	optionHelp
)

var (
	logoutWords = []string{"sair", "logout", "exit", "encerrar", "tchau"}
	cancelWords = []string{"menu", "voltar", "cancelar", "cancel", "back"}
)

// parseOption maps a folded menu input to an option. Increase is matched
// before limit so "aumentar limite" is not read as a query.
func parseOption(text string) option {
	switch text {
	case "1":
		return optionLimit
	case "2":
		return optionIncrease
	case "3":
		return optionInterview
	case "4":
		return optionQuote
	case "", "oi", "ola", "ajuda", "help", "?":
		return optionHelp
	}
	switch {
	case containsAny(text, "aument", "increase", "elevar", "subir"):
		return optionIncrease
	case containsAny(text, "entrevista", "interview", "score", "pontuacao"):
		return optionInterview
	case containsAny(text, "cambio", "cotacao", "moeda", "dolar", "euro", "quote", "currency"):
		return optionQuote
	case containsAny(text, "limite", "limit", "consult", "saldo"):
		return optionLimit
	}
	return optionNone
}

func isOneOf(text string, words []string) bool {
	for _, w := range words {
		if text == w {
			return true
		}
	}
	return false
}

func containsAny(text string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// parseYesNo reads a yes/no answer. The second result is false when unclear.
func parseYesNo(raw string) (bool, bool) {
	switch identity.Fold(strings.TrimSpace(raw)) {
	case "sim", "s", "yes", "y", "1", "tenho", "possuo":
		return true, true
	case "nao", "n", "no", "0", "nao tenho", "nenhuma":
		return false, true
	}
	return false, false
}

// parseCount reads a small non-negative integer ("2", "2 filhos", "nenhum").
func parseCount(raw string) (int, bool) {
	text := identity.Fold(strings.TrimSpace(raw))
	switch text {
	case "nenhum", "nenhuma", "zero", "nao", "none":
		return 0, true
	}
	digits := identity.Normalize(text)
	if digits == "" || len(digits) > 2 {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

var quoteStopWords = map[string]bool{"por": true, "pra": true, "ate": true, "com": true, "and": true, "for": true}

// parseQuoteRequest reads "USD BRL 100", "100 usd para brl" and similar.
// The amount defaults to 1 when omitted.
func parseQuoteRequest(raw string) (base, target string, amount float64, ok bool) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == '/' || r == '>'
	})
	var codes []string
	amount = 1
	amountSeen := false
	for _, f := range fields {
		if quoteStopWords[strings.ToLower(f)] {
			continue
		}
		if len(f) == 3 && isLetters(f) {
			codes = append(codes, strings.ToUpper(f))
			continue
		}
		if v, err := identity.ParseAmount(f); err == nil && !amountSeen {
			amount = v
			amountSeen = true
		}
	}
	if len(codes) != 2 || amount <= 0 {
		return "", "", 0, false
	}
	return codes[0], codes[1], amount, true
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
