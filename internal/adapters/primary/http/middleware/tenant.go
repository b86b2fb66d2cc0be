package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spec-registry-service/internal/core/domain"
)

// Tenant and user identity are resolved upstream (API gateway authorizer)
// and forwarded as headers.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"

	ContextTenantID = "tenant_id"
	ContextUser     = "user"
)

// Tenant rejects requests without a usable tenant ID.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(HeaderTenantID)
		if err := domain.ValidateTenantID(tenantID); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Set(ContextTenantID, tenantID)

		if userID := c.GetHeader(HeaderUserID); userID != "" {
			c.Set(ContextUser, &domain.UserRef{UserID: userID, UserName: c.GetHeader(HeaderUserName)})
		}
		c.Next()
	}
}

func TenantID(c *gin.Context) string {
	return c.GetString(ContextTenantID)
}

// User returns nil for anonymous callers.
func User(c *gin.Context) *domain.UserRef {
	u, _ := c.Get(ContextUser)
	ref, _ := u.(*domain.UserRef)
	return ref
}
