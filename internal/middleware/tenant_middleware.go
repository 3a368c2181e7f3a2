package middleware

import (
	"context"

	common_models "go-approvals/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

// TenantMiddleware extracts the X-Tenant-ID header and adds it to the context
func TenantMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenant := c.Get("X-Tenant-ID")
		if tenant != "" {
			ctx := context.WithValue(c.UserContext(), common_models.TenantIDKey, tenant)
			c.SetUserContext(ctx)
		}
		return c.Next()
	}
}
