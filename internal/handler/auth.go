package handler

import (
	"net/http"

	"tillsync/internal/dto"
	"tillsync/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// ValidatePin checks a supervisor PIN for override-protected actions such as
// cash withdrawals. An unknown PIN is a valid:false response, not an error,
// so callers cannot distinguish wrong PINs from missing users.
func (h *AuthHandler) ValidatePin(c *gin.Context) {
	var req dto.ValidatePinRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ValidatePin(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
