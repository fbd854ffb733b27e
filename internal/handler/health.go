package handler

import (
	"context"
	"net/http"
	"time"

	"tools4care/internal/infra"
	"tools4care/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and, when the hosted movement source is
// configured, the backend and its breaker. Never exposes credentials.
func Health(db *gorm.DB, rdb *redis.Client, hosted *infra.HostedClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"db":    dbStatus,
			"redis": redisStatus,
		}

		if redisStatus == "connected" {
			if n, err := worker.NewDLQ(rdb).Len(ctx, worker.QueueReetiquetado); err == nil {
				body["reetiquetado_dlq"] = n
			}
		}

		if hosted != nil {
			hostedStatus := "connected"
			if hosted.Ping(ctx) != nil {
				hostedStatus = "error"
				status = http.StatusServiceUnavailable
			}
			body["hosted"] = hostedStatus
			body["hosted_breaker"] = hosted.Breaker().State().String()
		}

		body["ok"] = status == http.StatusOK
		c.JSON(status, body)
	}
}
