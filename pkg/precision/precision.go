// Package precision concentra la aritmética decimal de montos y cantidades.
// Ningún valor monetario o de inventario pasa por float64: todo es decimal.Decimal
// y el redondeo a 2 decimales ocurre solo al formatear.
package precision

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DivisionPrecision dígitos de trabajo usados en Div.
const DivisionPrecision = 20

// MoneyPlaces decimales de montos y cantidades presentadas al usuario.
const MoneyPlaces = 2

// StorageScale decimales que guarda una columna NUMERIC(20,4).
const StorageScale = 4

// MaxStorable cota exclusiva del valor absoluto que cabe en NUMERIC(20,4).
var MaxStorable = decimal.New(1, 20-StorageScale)

// DefaultEpsilon tolerancia de IsZero.
var DefaultEpsilon = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// Add devuelve a + b sin redondeo.
func Add(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) }

// Sub devuelve a - b sin redondeo.
func Sub(a, b decimal.Decimal) decimal.Decimal { return a.Sub(b) }

// Mul devuelve a * b sin redondeo.
func Mul(a, b decimal.Decimal) decimal.Decimal { return a.Mul(b) }

// Div devuelve a / b con DivisionPrecision dígitos; 0 si b es cero.
func Div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, DivisionPrecision)
}

// Round redondea a 2 decimales, mitad alejándose de cero (2.995 -> 3.00).
func Round(x decimal.Decimal) decimal.Decimal {
	return x.Round(MoneyPlaces)
}

// Storable indica si x se guarda sin redondeo ni desborde en NUMERIC(20,4):
// a lo sumo StorageScale decimales significativos y |x| < MaxStorable.
func Storable(x decimal.Decimal) bool {
	return x.Equal(x.Truncate(StorageScale)) && x.Abs().LessThan(MaxStorable)
}

// IsZero indica si |x| < 0.01.
func IsZero(x decimal.Decimal) bool {
	return IsZeroWithin(x, DefaultEpsilon)
}

// IsZeroWithin indica si |x| < eps.
func IsZeroWithin(x, eps decimal.Decimal) bool {
	return x.Abs().LessThan(eps.Abs())
}

// NonNegative recorta los negativos a cero.
func NonNegative(x decimal.Decimal) decimal.Decimal {
	if x.IsNegative() {
		return decimal.Zero
	}
	return x
}

// Margin calcula (price-cost)/price*100. Valid=false cuando price es cero,
// que no es lo mismo que un margen real de 0%.
func Margin(price, cost decimal.Decimal) decimal.NullDecimal {
	if price.IsZero() {
		return decimal.NullDecimal{}
	}
	m := Div(price.Sub(cost), price).Mul(hundred)
	return decimal.NewNullDecimal(m)
}

// Value devuelve price * qty sin redondear.
func Value(price, qty decimal.Decimal) decimal.Decimal {
	return price.Mul(qty)
}

// Sum suma todos los valores.
func Sum(xs ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, x := range xs {
		total = total.Add(x)
	}
	return total
}

// Parse convierte cualquier entrada numérica a decimal. Una entrada inválida
// se convierte en cero y deja un warning en el log; nunca devuelve error.
func Parse(v any) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero
		}
		return *t
	case decimal.NullDecimal:
		if !t.Valid {
			return decimal.Zero
		}
		return t.Decimal
	case int:
		return decimal.NewFromInt(int64(t))
	case int32:
		return decimal.NewFromInt32(t)
	case int64:
		return decimal.NewFromInt(t)
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(t)), 0)
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(t), 0)
	case float32:
		return parseFloat(float64(t), v)
	case float64:
		return parseFloat(t, v)
	case json.Number:
		return parseString(string(t), v)
	case string:
		return parseString(t, v)
	}
	log.Warn().Interface("value", v).Msg("precision: tipo no numérico, se usa 0")
	return decimal.Zero
}

func parseFloat(f float64, raw any) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		log.Warn().Interface("value", raw).Msg("precision: valor no finito, se usa 0")
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func parseString(s string, raw any) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Warn().Err(err).Interface("value", raw).Msg("precision: valor inválido, se usa 0")
		return decimal.Zero
	}
	return d
}

// Format redondea a 2 decimales y devuelve la representación fija ("0.30").
func Format(x decimal.Decimal) string {
	return Round(x).StringFixed(MoneyPlaces)
}

// FormatCurrency formatea x con el separador de miles y decimales del idioma y
// antepone el símbolo. El signo va antes del símbolo: "-$1,234.50".
// La parte entera se agrupa como entero y los centavos salen de StringFixed,
// así ningún dígito pasa por float64.
func FormatCurrency(x decimal.Decimal, tag language.Tag, symbol string) string {
	r := Round(x)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Abs()
	}
	p := message.NewPrinter(tag)
	whole, cents, _ := strings.Cut(r.StringFixed(MoneyPlaces), ".")
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = p.Sprint(number.Decimal(n))
	}
	return sign + symbol + whole + decimalSeparator(p) + cents
}

// decimalSeparator obtiene el separador decimal del idioma del printer.
func decimalSeparator(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	return strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
}
