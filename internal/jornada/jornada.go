// Package jornada maps instants to business days in one fixed civil timezone.
//
// Every day key used to query movements or to bucket them in memory must come
// from a Resolver. Callers never format dates for business purposes themselves.
package jornada

import (
	"errors"
	"fmt"
	"time"
)

// Dia is a business-day key formatted YYYY-MM-DD in the resolver's timezone.
type Dia string

// DiaDesconocido is returned for absent or zero instants. It never matches a
// real day and Limites rejects it.
const DiaDesconocido Dia = "desconocido"

const layout = "2006-01-02"

// ErrDiaInvalido is returned when a day key cannot be parsed.
var ErrDiaInvalido = errors.New("día de negocio inválido")

// Resolver converts instants to day keys and day keys to instant bounds.
// It holds no clock: the same input always yields the same output.
type Resolver struct {
	loc *time.Location
}

// NewResolver loads the IANA timezone tz (e.g. "America/New_York").
func NewResolver(tz string) (*Resolver, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("zona horaria %q: %w", tz, err)
	}
	return &Resolver{loc: loc}, nil
}

// NewResolverIn builds a resolver from an already loaded location.
func NewResolverIn(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Dia returns the business day containing t.
func (r *Resolver) Dia(t time.Time) Dia {
	if t.IsZero() {
		return DiaDesconocido
	}
	return Dia(t.In(r.loc).Format(layout))
}

// DiaDe is Dia for nullable timestamps.
func (r *Resolver) DiaDe(t *time.Time) Dia {
	if t == nil {
		return DiaDesconocido
	}
	return r.Dia(*t)
}

// Parse validates s as a day key.
func (r *Resolver) Parse(s string) (Dia, error) {
	if _, err := time.ParseInLocation(layout, s, r.loc); err != nil {
		return DiaDesconocido, fmt.Errorf("%w: %q", ErrDiaInvalido, s)
	}
	return Dia(s), nil
}

// Limites returns the half-open interval [inicio, fin) covering d.
// Days that cross a DST change are 23 or 25 hours long.
func (r *Resolver) Limites(d Dia) (inicio, fin time.Time, err error) {
	inicio, err = time.ParseInLocation(layout, string(d), r.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrDiaInvalido, d)
	}
	fin = time.Date(inicio.Year(), inicio.Month(), inicio.Day()+1, 0, 0, 0, 0, r.loc)
	return inicio, fin, nil
}

// Contiene reports whether t falls on business day d.
func (r *Resolver) Contiene(d Dia, t time.Time) bool {
	return d != DiaDesconocido && r.Dia(t) == d
}

func (d Dia) String() string { return string(d) }

// Conocido reports whether d is a real day key.
func (d Dia) Conocido() bool { return d != DiaDesconocido && d != "" }
