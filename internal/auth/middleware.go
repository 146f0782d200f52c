package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	UserIDKey               = "userID"
)

// Authenticate validates the bearer token and stores the user id in the
// gin context. It is a no-op when the service is disabled.
func (s *Service) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Enabled() {
			c.Next()
			return
		}

		fields := strings.Fields(c.GetHeader(AuthorizationHeaderKey))
		if len(fields) != 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		userID, err := s.Validate(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// Identify is Authenticate for routes that also serve anonymous callers:
// a missing header passes, a present but invalid one is rejected.
func (s *Service) Identify() gin.HandlerFunc {
	authenticate := s.Authenticate()
	return func(c *gin.Context) {
		if c.GetHeader(AuthorizationHeaderKey) == "" {
			c.Next()
			return
		}
		authenticate(c)
	}
}

// RequireUserParam rejects requests whose path parameter param is not the
// authenticated user. Must run after Authenticate.
func (s *Service) RequireUserParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
			return
		}
		if !s.Allows(c, id) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// Allows reports whether the request may act on behalf of userID.
func (s *Service) Allows(c *gin.Context, userID int64) bool {
	if !s.Enabled() {
		return true
	}
	current, ok := CurrentUser(c)
	return ok && current == userID
}

// CurrentUser returns the authenticated user id, if any.
func CurrentUser(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
