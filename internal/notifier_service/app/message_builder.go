package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/loopintegra/boleto-notifier/internal/notifier_service/domain"
)

// RenderBoletoMessage builds the customer-facing notification text. Boleto
// detail wins over the título record for due date and amount when present;
// older Omie accounts return the boleto endpoint without them.
func RenderBoletoMessage(nome string, conta *domain.ContaReceber, boleto *domain.Boleto) string {
	vencimento := boleto.DataVencimento
	if vencimento == "" {
		vencimento = conta.DataVencimento
	}
	valor := boleto.Valor
	if valor == 0 {
		valor = conta.ValorDocumento
	}

	var b strings.Builder
	if nome != "" {
		fmt.Fprintf(&b, "Olá, %s!\n", nome)
	} else {
		b.WriteString("Olá!\n")
	}
	fmt.Fprintf(&b, "O boleto do documento %s já está disponível.\n\n", conta.NumeroDocumento)
	fmt.Fprintf(&b, "Vencimento: %s\n", vencimento)
	fmt.Fprintf(&b, "Valor: %s\n", FormatBRL(valor))
	if boleto.LinhaDigitavel != "" {
		fmt.Fprintf(&b, "Linha digitável: %s\n", boleto.LinhaDigitavel)
	}
	if boleto.LinkBoleto != "" {
		fmt.Fprintf(&b, "Link para pagamento: %s\n", boleto.LinkBoleto)
	}
	b.WriteString("\nSe o pagamento já foi realizado, por favor desconsidere esta mensagem.")
	return b.String()
}

// FormatBRL renders a value as Brazilian currency: 1234.56 -> "R$ 1.234,56".
func FormatBRL(valor float64) string {
	sign := ""
	if valor < 0 {
		sign = "-"
		valor = -valor
	}

	fixed := strconv.FormatFloat(valor, 'f', 2, 64)
	parts := strings.SplitN(fixed, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, grouped.String(), fracPart)
}
