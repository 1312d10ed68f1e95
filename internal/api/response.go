package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumecraft/internal/errcode"
)

// errorBody 是统一的错误响应体。code 取 errcode 的业务码，
// 前端据此区分可降级继续的预期错误与需要提示的系统错误。
type errorBody struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

func Error(c *gin.Context, status, code int, msg string) {
	c.JSON(status, errorBody{Code: code, Error: msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
		Code:  errcode.NotAuthenticated,
		Error: "unauthorized",
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, errcode.NotAuthenticated, "unauthorized")
}

func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, errcode.InvalidArgument, msg)
}

func NotFound(c *gin.Context, msg string) {
	Error(c, http.StatusNotFound, errcode.ResourceMissing, msg)
}

func Internal(c *gin.Context, msg string) {
	Error(c, http.StatusInternalServerError, errcode.SystemError, msg)
}
