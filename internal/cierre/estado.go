package cierre

import "tools4care/internal/model"

// Estado is the lifecycle of one (van, día). The only transition is
// Abierto -> Cerrado and it happens once.
type Estado string

const (
	EstadoAbierto Estado = "abierto"
	EstadoCerrado Estado = "cerrado"
	// EstadoCerradoConPendientes is Cerrado with movements that arrived after
	// the confirm. It is a view state, never stored.
	EstadoCerradoConPendientes Estado = "cerrado_con_pendientes"
)

// EstadoDe derives the state from the closeout record and the late arrivals.
func EstadoDe(c *model.CierreVan, pendientes int) Estado {
	switch {
	case c == nil:
		return EstadoAbierto
	case pendientes > 0:
		return EstadoCerradoConPendientes
	default:
		return EstadoCerrado
	}
}

// PuedeConfirmar checks the preconditions of a confirm.
func PuedeConfirmar(c *model.CierreVan, movimientos int) error {
	if c != nil {
		return ErrYaCerrado
	}
	if movimientos == 0 {
		return ErrSinMovimientos
	}
	return nil
}
