package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farmaciaslf/medisync/pkg/catalog"
)

func item(description, equivalent string) catalog.SourceItem {
	return catalog.SourceItem{Description: description, Equivalent: equivalent}
}

func TestProductNameExpandsAbbreviations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"solution", "PARACETAMOL SOL 100 ML", "Paracetamol Solución 100 ml"},
		{"drops", "LORATADINA GTS 15 ML", "Loratadina Gotas 15 ml"},
		{"tablets", "IBUPROFENO COMP 400 MG", "Ibuprofeno Comprimidos 400 mg"},
		{"capsules", "OMEPRAZOL CAPS 20 MG", "Omeprazol Cápsulas 20 mg"},
		{"syrup", "AMBROXOL JBE 120 ML", "Ambroxol Jarabe 120 ml"},
		{"units", "JERINGA 5 ML X 10 UN", "Jeringa 5 ml x 10 Unidades"},
		{"ointment", "BETAMETASONA UNG 15 GRS", "Betametasona Ungüento 15 grs"},
		{"strong", "TAPSIN FTE COMP", "Tapsin Fuerte Comprimidos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProductName(item(tt.raw, "")))
		})
	}
}

func TestProductNameCompoundAbbreviationsBeforePrefixes(t *testing.T) {
	// UND must expand before UN would match inside it.
	assert.Equal(t, "Gasas 10 Unidades", ProductName(item("GASAS 10 UND", "")))
}

func TestProductNameStripsNoiseParens(t *testing.T) {
	assert.Equal(t, "Sedal Reparacion 340 ml",
		ProductName(item("SEDAL REPARACION 340 ML (SHAMPOO)", "")))
	assert.Equal(t, "Colgate Triple Accion 90 grs",
		ProductName(item("COLGATE TRIPLE ACCION 90 GRS (CREMA DENTAL)", "")))
}

func TestProductNameKeepsInformativeParens(t *testing.T) {
	got := ProductName(item("SUERO FISIOLOGICO (CLORURO DE SODIO) 500 ML", ""))
	assert.Contains(t, got, "(Cloruro De Sodio)")
}

func TestProductNameDropsMarketingCodes(t *testing.T) {
	assert.Equal(t, "Aspirina 500 mg", ProductName(item("ASPIRINA 500 MG (DM)", "")))
	assert.Equal(t, "Aspirina 500 mg", ProductName(item("ASPIRINA 500 MG DM", "")))
	assert.Equal(t, "Aspirina 500 mg", ProductName(item("ASPIRINA BE 500 MG", "")))
}

func TestProductNameAppendsIngredient(t *testing.T) {
	got := ProductName(item("TAPSIN DIA COMP", "PARACETAMOL"))
	assert.Equal(t, "Tapsin Dia Comprimidos (Paracetamol)", got)
}

func TestProductNameSkipsIngredientAlreadyPresent(t *testing.T) {
	got := ProductName(item("PARACETAMOL 500 MG COMP", "PARACETAMOL"))
	assert.Equal(t, "Paracetamol 500 mg Comprimidos", got)
}

func TestProductNameSkipsIngredientSentinel(t *testing.T) {
	got := ProductName(item("ALGODON 100 GRS", "NO APLICA"))
	assert.Equal(t, "Algodon 100 grs", got)
}

func TestProductNameCollapsesWhitespace(t *testing.T) {
	got := ProductName(item("  ASPIRINA   500  MG  ", ""))
	assert.Equal(t, "Aspirina 500 mg", got)
}

func TestProductNameDeterministic(t *testing.T) {
	in := item("TAPSIN DIA COMP (DM)", "PARACETAMOL")
	first := ProductName(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ProductName(in))
	}
}

func TestPriceAppliesMarkupAndRoundsUp(t *testing.T) {
	tests := []struct {
		base float64
		want int
	}{
		{100, 200},   // 171 -> 200
		{1000, 1800}, // 1710 -> 1800
		{59, 200},    // 100.89 -> 200
		{58, 100},    // 99.18 -> 100
		{5000, 8600}, // 8550 -> 8600
		{1, 100},     // 1.71 -> 100
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Price(tt.base), "base %v", tt.base)
	}
}

func TestPriceFailsClosed(t *testing.T) {
	assert.Equal(t, 0, Price(0))
	assert.Equal(t, 0, Price(-5))
	assert.Equal(t, 0, Price(math.NaN()))
	assert.Equal(t, 0, Price(math.Inf(1)))
	assert.Equal(t, 0, Price(math.Inf(-1)))
}

func TestRoundUpExactBoundaryNotBumped(t *testing.T) {
	assert.Equal(t, 200, roundUp(200))
	assert.Equal(t, 100, roundUp(100))
	assert.Equal(t, 300, roundUp(200.01))
}
