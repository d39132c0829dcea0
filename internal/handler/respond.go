package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/eaglebank/ge-api/internal/middleware"
	"github.com/eaglebank/ge-api/internal/models"
	"github.com/gin-gonic/gin"
)

// bindJSON decodes the body into obj. An empty body binds as {} so that
// validation can name the missing fields.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		middleware.RespondWithError(c, http.StatusBadRequest, "invalid_body")
		return false
	}
	return true
}

// respondServiceError maps service errors onto the HTTP contract. Anything
// unrecognised is handed to the error middleware as a 500.
func respondServiceError(c *gin.Context, err error) {
	var domainErr *models.DomainError
	switch {
	case errors.As(err, &domainErr):
		c.JSON(http.StatusBadRequest, domainErr.Body())
	case errors.Is(err, models.ErrInvalidCredentials):
		middleware.RespondWithError(c, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, models.ErrInvalidRefreshToken):
		middleware.RespondWithError(c, http.StatusUnauthorized, "invalid_refresh_token")
	default:
		_ = c.Error(err)
		c.Abort()
	}
}
