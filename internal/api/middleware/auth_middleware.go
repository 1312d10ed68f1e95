package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumecraft/internal/auth"
	"resumecraft/internal/session"
)

const credentialKey = "credential"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将登录凭证注入上下文。
// 档案字段直接来自令牌声明，验证通过即可还原凭证，无需读库。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil || claims.TokenType != "access" {
			abortUnauthorized(c)
			return
		}

		c.Set(credentialKey, &session.Credential{
			UID:         claims.UID,
			DisplayName: claims.DisplayName,
			PhotoURL:    claims.PhotoURL,
			Email:       claims.Email,
		})
		c.Next()
	}
}

// OptionalAuthMiddleware 与 AuthMiddleware 类似，但缺少或无效的
// 令牌不会中断请求，只是不注入凭证。用于匿名可访问的列表接口。
func OptionalAuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if claims, err := authService.ValidateToken(parts[1]); err == nil && claims.TokenType == "access" {
				c.Set(credentialKey, &session.Credential{
					UID:         claims.UID,
					DisplayName: claims.DisplayName,
					PhotoURL:    claims.PhotoURL,
					Email:       claims.Email,
				})
			}
		}
		c.Next()
	}
}

// CredentialFromContext 返回上下文中的登录凭证；匿名请求返回 nil。
func CredentialFromContext(c *gin.Context) *session.Credential {
	if value, ok := c.Get(credentialKey); ok {
		if cred, ok := value.(*session.Credential); ok {
			return cred
		}
	}
	return nil
}

// AdminOnlyMiddleware 限制接口只对白名单内的 UID 开放。
// 白名单在服务端配置，客户端无法绕过。
func AdminOnlyMiddleware(adminUIDs []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(adminUIDs))
	for _, uid := range adminUIDs {
		uid = strings.TrimSpace(uid)
		if uid != "" {
			allowed[uid] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		cred := CredentialFromContext(c)
		if cred == nil {
			abortUnauthorized(c)
			return
		}
		if _, ok := allowed[cred.UID]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
