// Package normalize holds the pure functions that derive canonical target
// values from supplier records: the product name normalizer and the retail
// price calculator. Both are deterministic; the planner treats any mismatch
// against their output as a dirty signal, so the same input must always
// produce the same output.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/farmaciaslf/medisync/pkg/catalog"
)

// abbreviations is the ordered substitution table applied to the padded
// uppercase description. Order matters: longer forms must run before their
// prefixes (UND before UN, COMP before COM).
var abbreviations = []struct{ abbr, full string }{
	{" SOL ", " Solución "}, {" OFT ", " Oftálmica "}, {" SUSP ", " Suspensión "},
	{" INY ", " Inyectable "}, {" COMP ", " Comprimidos "}, {" COM ", " Comprimidos "},
	{" CAPS ", " Cápsulas "}, {" CAP ", " Cápsulas "}, {" JAR ", " Jarabe "},
	{" JBE ", " Jarabe "}, {" FCO ", " Frasco "}, {" UNG ", " Ungüento "},
	{" AER ", " Aerosol "}, {" AEROS ", " Aerosol "}, {" GRAT ", " Grageas "},
	{" SOB ", " Sobres "}, {" SBR ", " Sobres "}, {" SUP ", " Supositorios "},
	{" CREM ", " Crema "}, {" CRE ", " Crema "}, {" TAB ", " Tabletas "},
	{" GTS ", " Gotas "}, {" DISP ", " Dispersables "},
	{" UND ", " Unidades "}, {" UNI ", " Unidades "}, {" UN ", " Unidades "},
	{" UDS ", " Unidades "}, {" MTS ", " Metros "}, {" MT ", " Metros "},
	{" REF ", " Referencia "}, {" M ", " Metros "}, {" U ", " Unidades "},
	{" DES ", " Desodorante "}, {" ADH ", " Adhesivo "}, {" PROT ", " Protector "},
	{" DENT ", " Dental "}, {" DEN ", " Dental "}, {" PVO ", " Polvo "},
	{" S/SAB ", " Sin Sabor "}, {" P NORMAL ", " Piel Normal "}, {" P SECA ", " Piel Seca "},
	{" P MIXTA ", " Piel Mixta "}, {" EX SECA ", " Extra Seca "}, {" OTI ", " Otótica "},
	{" REPAR & BLANQ ", " Reparación & Blanqueamiento "}, {" FTE ", " Fuerte "},
}

// noiseWords flag parenthesized segments as categorical noise: a segment whose
// uppercase content contains any of these is dropped from the title.
var noiseWords = []string{
	"MAQUILLAJE", "CUIDADO", "PROTECCION", "CEPILLOS", "CREMA DENTAL",
	"DESODORANTES", "DESODORANTE", "SHAMPOO", "ENJUAGUES", "PAÑAL", "VITAMINA", "JABON",
	"COLORACION", "COLONIA", "PRESERVATIVO", "APOSITO", "ADHESIVO", "GEL",
	"TALCO", "ACONDICIONADOR", "DEPILACION", "PROBIOTICO", "SOLAR",
	"DESMAQUILLANTE", "BALSAMO", "ACCESORIOS", "BEBES", "DENTAL",
	"ESPUMAS", "SUPLEMENTOS", "TOALLAS", "PROTECTORES", "INCONTINENCIA",
	"COLONIAS", "LOCIONES", "MAQUINAS", "AFEITADO", "DM", "BE",
}

// marketingCodes are 2-letter distributor codes dropped even on exact match.
var marketingCodes = map[string]bool{"DM": true, "BE": true}

var (
	parenRe      = regexp.MustCompile(`\([^)]+\)`)
	bareDmRe     = regexp.MustCompile(`(?i)\bDm\b`)
	bareBeRe     = regexp.MustCompile(`(?i)\bBe\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// noIngredient is the supplier's sentinel for "no distinguishing ingredient".
const noIngredient = "NO APLICA"

// ProductName derives the canonical storefront title for a supplier item. It
// expands abbreviations, strips parenthesized noise tags and loose marketing
// codes, title-cases the result, normalizes unit notation and appends the
// distinguishing active ingredient when the raw description does not already
// mention it.
func ProductName(item catalog.SourceItem) string {
	raw := strings.ToUpper(item.Description)
	ingredient := strings.ToUpper(strings.TrimSpace(item.Equivalent))

	// Abbreviation table over a whitespace-padded copy so edge tokens match.
	name := " " + raw + " "
	for _, sub := range abbreviations {
		name = strings.ReplaceAll(name, sub.abbr, sub.full)
	}
	name = titleCase(strings.TrimSpace(name))

	name = stripNoiseParens(name)

	name = bareDmRe.ReplaceAllString(name, "")
	name = bareBeRe.ReplaceAllString(name, "")

	name = fixUnits(name)

	if ingredient != "" && ingredient != noIngredient {
		if !strings.Contains(letters(raw), letters(ingredient)) {
			name = name + " (" + titleCase(ingredient) + ")"
		}
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(name, " "))
}

// stripNoiseParens removes parenthesized segments whose content matches the
// noise denylist or a known marketing code; all other segments are kept.
func stripNoiseParens(name string) string {
	var b strings.Builder
	last := 0
	for _, loc := range parenRe.FindAllStringIndex(name, -1) {
		b.WriteString(name[last:loc[0]])
		segment := name[loc[0]:loc[1]]
		content := strings.ToUpper(segment[1 : len(segment)-1])
		if !isNoise(content) {
			b.WriteString(segment)
		}
		last = loc[1]
	}
	b.WriteString(name[last:])
	return b.String()
}

func isNoise(content string) bool {
	if marketingCodes[strings.TrimSpace(content)] {
		return true
	}
	for _, word := range noiseWords {
		if strings.Contains(content, word) {
			return true
		}
	}
	return false
}

// fixUnits lowercases measurement suffixes the title caser capitalized and
// expands the leftover "Ref " shorthand. Applied sequentially, mirroring the
// abbreviation pass.
func fixUnits(name string) string {
	name = strings.ReplaceAll(name, "Ml", "ml")
	name = strings.ReplaceAll(name, "Mg", "mg")
	name = strings.ReplaceAll(name, "Grs", "grs")
	name = strings.ReplaceAll(name, "Mcg", "mcg")
	name = strings.ReplaceAll(name, " X ", " x ")
	name = strings.ReplaceAll(name, "Ref ", "Referencia ")
	return name
}

// letters keeps only the ASCII uppercase letters of s, the comparison
// alphabet for ingredient containment.
func letters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// titleCase title-cases s with Spanish casing rules.
func titleCase(s string) string {
	return cases.Title(language.Spanish).String(s)
}
