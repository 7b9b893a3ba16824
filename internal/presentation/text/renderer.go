/*
Package text renders structured replies into Brazilian Portuguese markdown.

Templates are keyed by reply event. Rendering never changes a decision: it only
formats the payload the orchestrator already produced.
*/
package text

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/ports"
)

var _ ports.ReplyRenderer = (*Renderer)(nil)

const birthDateFormats = "Formatos aceitos:\n" +
	"- AAAA-MM-DD (2000-11-30)\n" +
	"- DD-MM-AAAA (30-11-2000)\n" +
	"- AAAAMMDD (20001130)\n" +
	"- DDMMAAAA (30112000)"

const menuText = "**Menu**\n\n" +
	"1. Consultar limite\n" +
	"2. Solicitar aumento de limite\n" +
	"3. Entrevista de crédito (atualiza seu score)\n" +
	"4. Cotação de moedas\n\n" +
	"Digite _sair_ para encerrar ou _menu_ para voltar."

var templates = map[domain.ReplyEvent]string{
	domain.ReplyAskIdentifier:        "Olá! Para continuar, envie seu CPF com 11 dígitos.",
	domain.ReplyIdentifierInvalid:    "O CPF precisa ter 11 dígitos. Pode enviar novamente?",
	domain.ReplyIdentifierNotFound:   "Não encontrei esse CPF. {{template \"attempts\" .}}Envie o CPF novamente.",
	domain.ReplyAskBirthDate:         "Obrigado! Agora, por favor, envie sua data de nascimento.\n\n" + birthDateFormats,
	domain.ReplyBirthDateInvalid:     "Não consegui entender a data. Use um dos formatos válidos.\n\n" + birthDateFormats,
	domain.ReplyBirthDateMismatch:    "Os dados não conferem. {{template \"attempts\" .}}Vamos recomeçar: envie seu CPF.",
	domain.ReplyAuthenticated:        "{{with .ClientName}}{{.}}, a{{else}}A{{end}}utenticação realizada com sucesso! Como posso ajudar hoje?\n\n" + menuText,
	domain.ReplyAlreadyAuthenticated: "Você já está autenticado! Como posso ajudar?",
	domain.ReplyBlocked:              "Foram várias tentativas sem sucesso. Por segurança, o atendimento foi encerrado.",
	domain.ReplyTransientError:       "Tivemos uma instabilidade e nada foi alterado. Tente novamente em instantes.",
	domain.ReplyMenu:                 menuText,
	domain.ReplyLimit:                "Seu limite atual é de **{{brl .Payload.Limit}}**.",
	domain.ReplyAskRequestedLimit:    "Qual o novo limite que você deseja? (ex.: 15.000,00)",
	domain.ReplyAmountInvalid:        "Não entendi o valor. Informe um número maior que zero, por exemplo 15.000,00.",
	domain.ReplyCreditDecision: `{{with .Payload}}{{if eq (status .Status) "approved"}}Pedido **aprovado**! Seu novo limite é de **{{brl .RequestedLimit}}**.` +
		`{{else if eq (status .Status) "rejected"}}Pedido **não aprovado**. Para o seu score, o limite máximo é de {{brl .MaxAllowed}}. ` +
		`Você pode fazer a entrevista de crédito (opção 3) para tentar melhorar seu score.` +
		`{{else}}O valor pedido ({{brl .RequestedLimit}}) é menor que o seu limite atual de {{brl .CurrentLimit}}; nada foi alterado.{{end}}{{end}}`,
	domain.ReplyInterviewQuestion: "Pergunta {{.Payload.Step}} de {{.Payload.Total}}: {{question .Payload.Field}}",
	domain.ReplyInterviewInvalid:  "Não consegui entender a resposta. {{question .Payload.Field}}",
	domain.ReplyInterviewResult:   "Entrevista concluída! Seu novo score é **{{printf \"%.2f\" .Payload.Score}}**.\n\n" + menuText,
	domain.ReplyAskQuote:          "Informe as moedas e o valor, por exemplo: `USD BRL 100`.",
	domain.ReplyQuoteInvalid:      "Não consegui fazer essa cotação. Use códigos de três letras, como `USD BRL 100`.",
	domain.ReplyQuote: "{{with .Payload}}{{printf \"%.2f\" .Amount}} {{.Base}} = **{{printf \"%.2f\" .ConvertedAmount}} {{.Target}}** " +
		"(taxa {{printf \"%.4f\" .Rate}}){{end}}",
	domain.ReplyLoggedOut:     "Atendimento encerrado. Até logo!",
	domain.ReplyNotFound:      "Não encontrei seu cadastro. Procure uma agência.",
	domain.ReplyNotUnderstood: "Não entendi. " + menuText,
}

var questions = map[string]string{
	"monthly_income":   "Qual a sua renda mensal?",
	"monthly_expenses": "Quais são suas despesas mensais?",
	"employment":       "Qual o seu tipo de emprego? (1) formal (2) autônomo (3) desempregado",
	"dependents":       "Quantos dependentes você tem?",
	"has_debt":         "Você possui dívidas ativas? (sim/não)",
}

// Renderer implements ports.ReplyRenderer.
type Renderer struct {
	tmpl *template.Template
}

// New parses the built-in templates.
func New() (*Renderer, error) {
	root := template.New("reply").Funcs(template.FuncMap{
		"brl":      FormatBRL,
		"question": func(field string) string { return questions[field] },
		"status":   func(s domain.DecisionStatus) string { return string(s) },
	})
	if _, err := root.New("attempts").Parse(
		`{{if gt .MaxAttempts 0}}Tentativa {{.Attempts}} de {{.MaxAttempts}}. {{end}}`,
	); err != nil {
		return nil, err
	}
	for event, body := range templates {
		if _, err := root.New(string(event)).Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", event, err)
		}
	}
	return &Renderer{tmpl: root}, nil
}

// Render formats a reply.
func (r *Renderer) Render(ctx context.Context, reply domain.Reply) (string, error) {
	t := r.tmpl.Lookup(string(reply.Event))
	if t == nil {
		return "", fmt.Errorf("no template for event %q", reply.Event)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, reply); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", reply.Event, err)
	}
	return buf.String(), nil
}

// FormatBRL formats an amount as Brazilian reais ("R$ 13.000,50").
func FormatBRL(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	whole, frac := cents/100, cents%100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), frac)
}
