package handler

import (
	"errors"
	"net/http"
	"reflect"

	"tools4care/internal/apierror"
	"tools4care/internal/cierre"
	"tools4care/internal/jornada"
	"tools4care/internal/middleware"
	"tools4care/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0 work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false after writing the error response; the caller must return.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New("Solicitud invalida"))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Namespace()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// parseUUID reads a path param. Returns false after writing a 400.
func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode("id_invalido", param+" invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// handleError maps domain errors to HTTP responses. Anything unknown is a
// 500 with a generic message; the cause is only logged.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, jornada.ErrDiaInvalido):
		c.JSON(http.StatusBadRequest, apierror.WithCode("dia_invalido", "Dia invalido, formato esperado AAAA-MM-DD"))
	case errors.Is(err, service.ErrCierreNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.WithCode("cierre_no_encontrado", "Cierre no encontrado"))
	case errors.Is(err, cierre.ErrYaCerrado):
		c.JSON(http.StatusConflict, apierror.WithCode("ya_cerrado", "El dia ya fue cerrado para esta van"))
	case errors.Is(err, cierre.ErrSinMovimientos):
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode("sin_movimientos", "No hay movimientos pendientes para cerrar"))
	case errors.Is(err, cierre.ErrCommitParcial):
		logError(c, err, "handler: tagging still incomplete")
		c.JSON(http.StatusServiceUnavailable, apierror.WithCode("etiquetado_incompleto", "El cierre sigue con movimientos sin etiquetar, se reintentara automaticamente"))
	case errors.Is(err, cierre.ErrFetchFailed):
		logError(c, err, "handler: movement fetch failed")
		c.JSON(http.StatusServiceUnavailable, apierror.WithCode("lectura_fallida", "No se pudieron leer los movimientos del dia, intente nuevamente"))
	default:
		logError(c, err, "handler: unexpected error")
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	}
}

func logError(c *gin.Context, err error, msg string) {
	log.Error().Err(err).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("path", c.FullPath()).
		Msg(msg)
}
