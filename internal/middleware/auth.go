package middleware

import (
	"net/http"
	"strings"

	"github.com/eaglebank/ge-api/internal/models"
	"github.com/eaglebank/ge-api/internal/security"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// TokenVerifier checks a bearer token and returns the principal it asserts.
type TokenVerifier interface {
	Verify(token string, class security.KeyClass) (models.Principal, error)
}

// AuthMiddleware requires a valid access token and stores its principal on
// the context. Requests without one stop here with 401.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			RespondWithError(c, http.StatusUnauthorized, "unauthenticated")
			return
		}

		principal, err := verifier.Verify(strings.TrimSpace(parts[1]), security.AccessKey)
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, "unauthenticated")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

func SetPrincipal(c *gin.Context, p models.Principal) {
	c.Set(principalKey, p)
}

func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}
