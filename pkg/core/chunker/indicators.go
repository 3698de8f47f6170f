package chunker

import (
	"fmt"
	"strings"
)

// Dictionary maps each category to its keyword list for one language.
type Dictionary map[Category][]string

// Indicators is the immutable set of keyword dictionaries, one per language
// and category. It is built once at start-up and shared read-only by every
// scan.
type Indicators struct {
	terms map[Language]map[Category][]string
}

// NewIndicators normalizes every term the same way document text is
// normalized (lowercase, accents stripped), drops blanks and duplicates while
// keeping first-seen order, and requires a non-empty list for every language
// and category.
func NewIndicators(dicts map[Language]Dictionary) (*Indicators, error) {
	ind := &Indicators{terms: make(map[Language]map[Category][]string, 2)}
	for _, lang := range []Language{EN, ES} {
		dict, ok := dicts[lang]
		if !ok {
			return nil, fmt.Errorf("missing %s dictionary", lang)
		}
		ind.terms[lang] = make(map[Category][]string, len(Categories))
		for _, cat := range Categories {
			terms := normalizeTerms(dict[cat])
			if len(terms) == 0 {
				return nil, fmt.Errorf("empty %s %s dictionary", lang, cat)
			}
			ind.terms[lang][cat] = terms
		}
	}
	return ind, nil
}

// MustIndicators is NewIndicators that panics on error.
func MustIndicators(dicts map[Language]Dictionary) *Indicators {
	ind, err := NewIndicators(dicts)
	if err != nil {
		panic(err)
	}
	return ind
}

// For returns a copy of the terms for lang and cat.
func (i *Indicators) For(lang Language, cat Category) []string {
	terms := i.terms[lang][cat]
	out := make([]string, len(terms))
	copy(out, terms)
	return out
}

// lookup returns the shared slice. Callers must not modify it.
func (i *Indicators) lookup(lang Language, cat Category) []string {
	return i.terms[lang][cat]
}

func normalizeTerms(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(NormalizeText(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// DefaultDictionaries returns a fresh copy of the built-in dictionaries.
func DefaultDictionaries() map[Language]Dictionary {
	out := make(map[Language]Dictionary, len(defaultDictionaries))
	for lang, dict := range defaultDictionaries {
		d := make(Dictionary, len(dict))
		for cat, terms := range dict {
			d[cat] = append([]string(nil), terms...)
		}
		out[lang] = d
	}
	return out
}

// DefaultIndicators returns the built-in dictionaries.
func DefaultIndicators() *Indicators {
	return MustIndicators(defaultDictionaries)
}

var defaultDictionaries = map[Language]Dictionary{
	EN: {
		Balance: {
			"total assets", "total liabilities", "current assets", "non-current assets",
			"current liabilities", "non-current liabilities", "cash and cash equivalents",
			"inventories", "trade receivables", "accounts receivable", "accounts payable",
			"retained earnings", "share capital", "total equity", "property, plant and equipment",
			"balance sheet", "statement of financial position", "goodwill", "intangible assets",
			"borrowings",
		},
		Income: {
			"revenue", "net sales", "cost of sales", "gross profit", "operating income",
			"operating profit", "income before taxes", "profit before tax", "income tax",
			"net income", "net profit", "earnings per share", "basic", "diluted",
			"income statement", "statement of operations", "statement of profit or loss",
			"selling, general and administrative", "research and development", "finance costs",
		},
		CashFlow: {
			"cash flows from operating activities", "operating activities", "investing activities",
			"financing activities", "depreciation and amortization", "net cash provided by",
			"net cash used in", "purchase of property", "capital expenditures", "dividends paid",
			"proceeds from", "repayment of", "cash at beginning", "cash at end",
			"net increase in cash", "net decrease in cash", "statement of cash flows",
			"changes in working capital",
		},
	},
	ES: {
		Balance: {
			"total activo", "total activos", "activo corriente", "activo no corriente",
			"pasivo corriente", "pasivo no corriente", "total pasivo", "patrimonio neto",
			"efectivo y otros activos liquidos", "existencias", "inventarios",
			"deudores comerciales", "acreedores comerciales", "capital social", "reservas",
			"inmovilizado material", "inmovilizado intangible", "fondo de comercio",
			"balance de situacion", "estado de situacion financiera",
			"deudas con entidades de credito",
		},
		Income: {
			"importe neto de la cifra de negocios", "ingresos ordinarios", "ventas",
			"aprovisionamientos", "gastos de personal", "resultado de explotacion",
			"resultado financiero", "resultado antes de impuestos", "impuesto sobre beneficios",
			"resultado del ejercicio", "beneficio neto", "beneficio por accion",
			"ganancias por accion", "cuenta de perdidas y ganancias", "cuenta de resultados",
			"amortizacion del inmovilizado", "otros gastos de explotacion",
			"ingresos financieros", "gastos financieros",
		},
		CashFlow: {
			"flujos de efectivo de las actividades de explotacion", "actividades de explotacion",
			"actividades de inversion", "actividades de financiacion", "estado de flujos de efectivo",
			"pagos por inversiones", "cobros por desinversiones", "pagos por dividendos",
			"cobros y pagos por instrumentos", "efectivo al inicio", "efectivo al final",
			"aumento/disminucion neta del efectivo", "ajustes del resultado",
			"cambios en el capital corriente", "flujos de efectivo",
		},
	},
}
