package handler

import (
	"context"
	"net/http"
	"time"

	"tillsync/internal/infra"
	"tillsync/internal/model"
	"tillsync/internal/repository"
	"tillsync/internal/worker"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// The local store is the only hard dependency; backend connectivity is
// reported through the circuit state but never fails the check, since the
// terminal is expected to run offline.
func Health(db *gorm.DB, queue repository.QueueRepository, flusher *worker.Flusher, cb *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		pending, _ := queue.CountByStatus(ctx, model.QueuePending)

		status := http.StatusOK
		if dbStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":       status == http.StatusOK,
			"db":       dbStatus,
			"circuit":  cb.State().String(),
			"degraded": flusher.Degraded(),
			"pending":  pending,
		})
	}
}
