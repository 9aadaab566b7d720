package handler

import (
	"context"
	"net/http"
	"strconv"

	"tillsync/internal/apierror"
	"tillsync/internal/dto"
	"tillsync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CashHandler struct{ svc service.CashService }

func NewCashHandler(svc service.CashService) *CashHandler { return &CashHandler{svc: svc} }

// Open creates a new drawer session for this terminal's point of sale.
func (h *CashHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.OpenSession(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Movement records a deposit or withdrawal on the open session.
func (h *CashHandler) Movement(c *gin.Context) {
	var req dto.MovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordMovement(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close reconciles the physical count against the expected amount and closes
// the session. A non-zero difference is part of the response, not a failure.
func (h *CashHandler) Close(c *gin.Context) {
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CloseSession(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CashHandler) Suspend(c *gin.Context) {
	h.sessionAction(c, h.svc.SuspendSession)
}

func (h *CashHandler) Resume(c *gin.Context) {
	h.sessionAction(c, h.svc.ResumeSession)
}

// Transfer performs the shift handover: close out to transferred, open the
// successor session, both as one unit.
func (h *CashHandler) Transfer(c *gin.Context) {
	var req dto.TransferSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.TransferSession(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Active returns the session currently owning the drawer, if any.
func (h *CashHandler) Active(c *gin.Context) {
	resp, err := h.svc.ActiveSession(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Report returns a session with its live expected amount and, once closed,
// its summary.
func (h *CashHandler) Report(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	resp, err := h.svc.SessionReport(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns a paginated list of past sessions.
func (h *CashHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sessions, total, err := h.svc.ListSessions(c.Request.Context(), page, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions, "total": total, "page": page, "limit": limit})
}

func (h *CashHandler) sessionAction(c *gin.Context, action func(ctx context.Context, sessionID uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	if err := action(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
