package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Valores monetários circulam internamente em centavos (int64), como no resto
// da plataforma. Este pacote concentra as conversões decimal<->centavos para
// que arredondamento nunca seja refeito ad hoc.

// ToCents converte um valor em reais (2 casas) para centavos.
func ToCents(v float64) int64 {
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converte centavos para o valor decimal exposto nas respostas.
func FromCents(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}

// PotentialReturnCents calcula stake x odd arredondado ao centavo.
func PotentialReturnCents(stakeCents int64, odd float64) int64 {
	return decimal.NewFromInt(stakeCents).
		Mul(decimal.NewFromFloat(odd)).
		Round(0).
		IntPart()
}

// ValidCurrency valida o código ISO 4217 contra o registro do go-money.
func ValidCurrency(code string) bool {
	return gomoney.GetCurrency(code) != nil
}

// Format formata centavos na moeda dada, ex: Format(12345, "BRL") => "R$123.45"
func Format(cents int64, code string) string {
	return gomoney.New(cents, code).Display()
}
