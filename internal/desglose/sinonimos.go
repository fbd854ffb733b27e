package desglose

import "strings"

// sinonimos maps normalized method labels to a channel. Lookups go through
// normalizar, so keys here are lower case, single spaced and unaccented.
var sinonimos = map[string]Medio{
	// cash
	"efectivo":      MedioEfectivo,
	"cash":          MedioEfectivo,
	"contado":       MedioEfectivo,
	"billete":       MedioEfectivo,
	"billetes":      MedioEfectivo,
	"pago efectivo": MedioEfectivo,

	// card
	"tarjeta":            MedioTarjeta,
	"card":               MedioTarjeta,
	"debit":              MedioTarjeta,
	"debito":             MedioTarjeta,
	"credit":             MedioTarjeta,
	"credito":            MedioTarjeta,
	"credit card":        MedioTarjeta,
	"debit card":         MedioTarjeta,
	"tarjeta de credito": MedioTarjeta,
	"tarjeta de debito":  MedioTarjeta,
	"tarjeta credito":    MedioTarjeta,
	"tarjeta debito":     MedioTarjeta,
	"visa":               MedioTarjeta,
	"mastercard":         MedioTarjeta,
	"amex":               MedioTarjeta,
	"pos":                MedioTarjeta,
	"stripe":             MedioTarjeta,
	"pago tarjeta":       MedioTarjeta,

	// transfer
	"transferencia":          MedioTransferencia,
	"transferencia bancaria": MedioTransferencia,
	"transfer":               MedioTransferencia,
	"bank transfer":          MedioTransferencia,
	"wire":                   MedioTransferencia,
	"wire transfer":          MedioTransferencia,
	"zelle":                  MedioTransferencia,
	"ach":                    MedioTransferencia,
	"deposito":               MedioTransferencia,
	"deposit":                MedioTransferencia,
	"pago transferencia":     MedioTransferencia,
}

var acentos = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"_", " ", "-", " ",
)

func normalizar(s string) string {
	s = acentos.Replace(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(strings.Fields(s), " ")
}

// Clasificar maps a free-text method label to its channel.
func Clasificar(metodo string) (Medio, bool) {
	m, ok := sinonimos[normalizar(metodo)]
	return m, ok
}

// Normalizar exposes the label normalization used for matching, for callers
// that key on raw method labels.
func Normalizar(metodo string) string { return normalizar(metodo) }
