package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/eaglebank/ge-api/internal/models"
	"github.com/gin-gonic/gin"
)

// DatabaseProbe reports database reachability.
type DatabaseProbe interface {
	Now(ctx context.Context) (time.Time, error)
	Ping(ctx context.Context) (int, error)
}

type HealthHandler struct {
	db DatabaseProbe
}

func NewHealthHandler(db DatabaseProbe) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(c *gin.Context) {
	now, err := h.db.Now(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, models.HealthView{OK: true, DBTime: now.UTC().Format(time.RFC3339Nano)})
}

func (h *HealthHandler) Ping(c *gin.Context) {
	result, err := h.db.Ping(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
