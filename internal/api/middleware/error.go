package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matsimonsen7/tid-er-penge/internal/api/models"
)

// ErrorHandler middleware handles panics and errors
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("handler panicked", "path", c.Request.URL.Path, "panic", recovered)
		if msg, ok := recovered.(string); ok {
			c.JSON(http.StatusInternalServerError, models.NewError(models.CodeInternal, msg))
		} else {
			c.JSON(http.StatusInternalServerError, models.NewError(models.CodeInternal, "An unexpected error occurred"))
		}
		c.Abort()
	})
}
