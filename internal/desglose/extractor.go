package desglose

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Registro is a raw sale or payment reduced to the three shapes historical
// tables have used. A record may carry more than one shape; the matcher chain
// decides which one wins. Absent parts are nil or empty.
type Registro struct {
	// Direct columns (pago_efectivo, pago_tarjeta, pago_transferencia).
	Efectivo      *decimal.Decimal
	Tarjeta       *decimal.Decimal
	Transferencia *decimal.Decimal

	// Anidado is a nested breakdown: json.RawMessage, []byte, a JSON string,
	// map[string]any or []any.
	Anidado any

	// Single amount + method fallback.
	Monto  *decimal.Decimal
	Metodo string
}

// Regla names the matcher that produced a breakdown.
type Regla string

const (
	ReglaColumnas    Regla = "columnas"
	ReglaAnidado     Regla = "anidado"
	ReglaMontoMetodo Regla = "monto_metodo"
	ReglaNinguna     Regla = "ninguna"
)

// Resultado is the outcome of one matcher.
type Resultado struct {
	Desglose Desglose
	Regla    Regla
	// SinClasificar is the amount whose method label had no synonym.
	SinClasificar decimal.Decimal
}

// Matcher inspects one shape of a record. ok is false when the shape is absent.
type Matcher func(r Registro) (res Resultado, ok bool)

// Cadena is the fixed matcher priority order.
var Cadena = []Matcher{PorColumnas, PorAnidado, PorMontoMetodo}

// Extraer returns the canonical breakdown of r. Records no matcher understands
// yield a zero breakdown.
func Extraer(r Registro) Desglose {
	return ExtraerDetalle(r).Desglose
}

// ExtraerDetalle runs the chain and reports which rule matched.
func ExtraerDetalle(r Registro) Resultado {
	sinClasificar := decimal.Zero
	for _, m := range Cadena {
		res, ok := m(r)
		if !ok {
			continue
		}
		if !res.Desglose.IsZero() {
			res.Desglose = res.Desglose.sinNegativos().Redondear()
			return res
		}
		sinClasificar = decimal.Max(sinClasificar, res.SinClasificar)
	}
	return Resultado{Regla: ReglaNinguna, SinClasificar: sinClasificar}
}

// PorColumnas reads the direct cash / card / transfer columns.
func PorColumnas(r Registro) (Resultado, bool) {
	if r.Efectivo == nil && r.Tarjeta == nil && r.Transferencia == nil {
		return Resultado{}, false
	}
	var d Desglose
	if r.Efectivo != nil {
		d.Efectivo = *r.Efectivo
	}
	if r.Tarjeta != nil {
		d.Tarjeta = *r.Tarjeta
	}
	if r.Transferencia != nil {
		d.Transferencia = *r.Transferencia
	}
	return Resultado{Desglose: d, Regla: ReglaColumnas}, true
}

// PorAnidado parses a nested breakdown.
func PorAnidado(r Registro) (Resultado, bool) {
	v, ok := decodificar(r.Anidado, 0)
	if !ok {
		return Resultado{}, false
	}
	acc := &acumulador{}
	acc.visitar(v, 0)
	return Resultado{Desglose: acc.d, Regla: ReglaAnidado, SinClasificar: acc.sinClasificar}, true
}

// PorMontoMetodo classifies a single amount by its method label.
func PorMontoMetodo(r Registro) (Resultado, bool) {
	if r.Monto == nil {
		return Resultado{}, false
	}
	m, ok := Clasificar(r.Metodo)
	if !ok {
		return Resultado{Regla: ReglaMontoMetodo, SinClasificar: r.Monto.Abs()}, true
	}
	return Resultado{Desglose: De(m, *r.Monto), Regla: ReglaMontoMetodo}, true
}

// ── Nested parsing ────────────────────────────────────────────────────────────

const maxProfundidad = 4

var (
	camposMetodo = []string{"metodo", "method", "metodo_pago", "payment_method", "forma_pago", "tipo", "type"}
	camposMonto  = []string{"monto", "amount", "importe", "valor", "total"}
	camposLista  = []string{"pagos", "payments", "detalle", "items"}

	// Keys of the keyed form that describe the record rather than a tender.
	camposIgnorados = map[string]bool{"total": true, "cambio": true, "vuelto": true, "change": true, "saldo": true}
)

// decodificar normalizes raw JSON or Go values into map[string]any / []any.
// A JSON-encoded string holding JSON is unwrapped once more.
func decodificar(v any, depth int) (any, bool) {
	if depth > 1 {
		return nil, false
	}
	switch t := v.(type) {
	case nil:
		return nil, false
	case json.RawMessage:
		return decodificarBytes([]byte(t), depth)
	case []byte:
		return decodificarBytes(t, depth)
	case string:
		return decodificarBytes([]byte(t), depth)
	case map[string]any, []any:
		return t, true
	}
	return nil, false
}

func decodificarBytes(b []byte, depth int) (any, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	if s, ok := out.(string); ok {
		return decodificar(s, depth+1)
	}
	switch out.(type) {
	case map[string]any, []any:
		return out, true
	}
	return nil, false
}

type acumulador struct {
	d             Desglose
	sinClasificar decimal.Decimal
}

func (a *acumulador) visitar(v any, depth int) {
	if depth > maxProfundidad {
		return
	}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			a.visitar(e, depth+1)
		}
	case map[string]any:
		a.visitarObjeto(t, depth)
	}
}

// visitarObjeto handles the three object forms:
// {"metodo": "zelle", "monto": 25}, {"pagos": [...]} and
// {"efectivo": 10, "tarjeta": 5}.
func (a *acumulador) visitarObjeto(obj map[string]any, depth int) {
	metodo, hasMetodo := campo(obj, camposMetodo)
	montoRaw, hasMonto := campo(obj, camposMonto)
	if hasMetodo && hasMonto {
		monto, ok := numero(montoRaw)
		if !ok {
			return
		}
		label, _ := metodo.(string)
		if m, ok := Clasificar(label); ok {
			a.d = a.d.Sumar(m, monto)
		} else {
			a.sinClasificar = a.sinClasificar.Add(monto.Abs())
		}
		return
	}
	if lista, ok := campo(obj, camposLista); ok {
		a.visitar(lista, depth+1)
		return
	}
	for k, raw := range obj {
		if camposIgnorados[normalizar(k)] {
			continue
		}
		monto, ok := numero(raw)
		if !ok {
			continue
		}
		if m, ok := Clasificar(k); ok {
			a.d = a.d.Sumar(m, monto)
		} else {
			a.sinClasificar = a.sinClasificar.Add(monto.Abs())
		}
	}
}

// campo returns the first present key in nombres order.
func campo(obj map[string]any, nombres []string) (any, bool) {
	for _, n := range nombres {
		for k, v := range obj {
			if normalizar(k) == normalizar(n) {
				return v, true
			}
		}
	}
	return nil, false
}

func numero(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "$"))
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	case decimal.Decimal:
		return t, true
	}
	return decimal.Zero, false
}
