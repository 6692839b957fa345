package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/isomatch/internal/httputil"
)

func respondError(c *gin.Context, status int, code, message string) {
	httputil.RespondError(c, status, code, message)
}
