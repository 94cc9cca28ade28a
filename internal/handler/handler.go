package handler

import (
	"net/http"

	"Code_Connect/internal/pkg"

	"github.com/gin-gonic/gin"
)

// userIDFromCtx 取中间件注入的已认证用户
func userIDFromCtx(c *gin.Context) uint64 {
	if v, ok := c.Get("user_id"); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

// fail 错误分类映射 HTTP 状态码
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch pkg.KindOf(err) {
	case pkg.KindInvalidInput:
		status = http.StatusBadRequest
	case pkg.KindNotAuthorized:
		status = http.StatusForbidden
	case pkg.KindNotFound:
		status = http.StatusNotFound
	case pkg.KindConflict:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"msg": err.Error()})
}
