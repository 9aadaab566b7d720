package handler

import (
	"net/http"

	"tillsync/internal/apierror"
	"tillsync/internal/dto"
	"tillsync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SaleHandler struct{ svc service.SaleService }

func NewSaleHandler(svc service.SaleService) *SaleHandler { return &SaleHandler{svc: svc} }

// Record persists a completed ticket and queues it for upload. The sale is
// accepted regardless of connectivity; sync happens in the background.
func (h *SaleHandler) Record(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordSale(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SaleHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid sale id"))
		return
	}
	resp, err := h.svc.GetSale(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
