package handler

import (
	"errors"
	"net/http"

	"tools4care/internal/cierre"
	"tools4care/internal/dto"
	"tools4care/internal/middleware"
	"tools4care/internal/service"

	"github.com/gin-gonic/gin"
)

type CierreHandler struct{ svc service.CierreService }

func NewCierreHandler(svc service.CierreService) *CierreHandler { return &CierreHandler{svc: svc} }

// ObtenerVista godoc
// @Summary Vista de conciliacion de una van para un dia
// @Description Devuelve la grilla esperada, CxC y los movimientos. Un dia cerrado
// @Description muestra ademas los movimientos llegados despues del cierre.
// @Tags cierres
// @Produce json
// @Security BearerAuth
// @Param van_id path string true "ID de la van"
// @Param dia path string true "Dia (AAAA-MM-DD)"
// @Success 200 {object} dto.VistaCierreResponse
// @Failure 400 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/vans/{van_id}/cierres/{dia} [get]
func (h *CierreHandler) ObtenerVista(c *gin.Context) {
	vanID, ok := parseUUID(c, "van_id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerVista(c.Request.Context(), vanID, c.Param("dia"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Variacion godoc
// @Summary Previsualiza la variacion de un conteo sin confirmar
// @Tags cierres
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param van_id path string true "ID de la van"
// @Param dia path string true "Dia (AAAA-MM-DD)"
// @Param body body dto.VariacionRequest true "Montos contados"
// @Success 200 {object} dto.VariacionResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/vans/{van_id}/cierres/{dia}/variacion [post]
func (h *CierreHandler) Variacion(c *gin.Context) {
	vanID, ok := parseUUID(c, "van_id")
	if !ok {
		return
	}
	var req dto.VariacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.PrevisualizarVariacion(c.Request.Context(), vanID, c.Param("dia"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Confirmar godoc
// @Summary Confirma el cierre del dia
// @Description 201 cuando el cierre queda completo. 202 cuando el cierre se guardo
// @Description pero el etiquetado quedo pendiente; se reintenta en segundo plano.
// @Tags cierres
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param van_id path string true "ID de la van"
// @Param dia path string true "Dia (AAAA-MM-DD)"
// @Param body body dto.ConfirmarCierreRequest true "Conteo y comentario"
// @Success 201 {object} dto.CierreResponse
// @Success 202 {object} dto.CierreResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/vans/{van_id}/cierres/{dia} [post]
func (h *CierreHandler) Confirmar(c *gin.Context) {
	vanID, ok := parseUUID(c, "van_id")
	if !ok {
		return
	}
	var req dto.ConfirmarCierreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Confirmar(c.Request.Context(), vanID, c.Param("dia"), middleware.UsuarioID(c), req)
	if err != nil {
		if errors.Is(err, cierre.ErrCommitParcial) && resp != nil {
			c.JSON(http.StatusAccepted, resp)
			return
		}
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ObtenerCierre godoc
// @Summary Obtiene un cierre guardado
// @Tags cierres
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del cierre"
// @Success 200 {object} dto.CierreResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cierres/{id} [get]
func (h *CierreHandler) ObtenerCierre(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerCierre(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reetiquetar godoc
// @Summary Reintenta el etiquetado de los movimientos de un cierre
// @Tags cierres
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del cierre"
// @Success 200 {object} dto.ReetiquetarResponse
// @Failure 404 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/cierres/{id}/reetiquetar [post]
func (h *CierreHandler) Reetiquetar(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Reetiquetar(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
