package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumkit/config"
	"github.com/cppla/forumkit/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the resolved role inside Gin context.
	ContextRoleKey = "role"
)

// AuthRequired ensures the request carries a valid JWT from the identity
// collaborator and places the resolved {userID, username, role} triple in
// the context. Usernames listed in AdminUsernames are promoted to admin.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		role := claims.Role
		if role == "" {
			role = "user"
		}
		cfg := config.Get()
		for _, u := range cfg.AdminUsernames {
			if strings.EqualFold(strings.TrimSpace(u), claims.Username) {
				role = "admin"
				break
			}
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextRoleKey, role)
		ctx.Next()
	}
}

// OptionalAuth resolves identity when a bearer token is present and serves
// the request anonymously otherwise. Malformed tokens are ignored, not
// rejected, so cached public reads stay reachable.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Next()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			ctx.Next()
			return
		}

		role := claims.Role
		if role == "" {
			role = "user"
		}
		cfg := config.Get()
		for _, u := range cfg.AdminUsernames {
			if strings.EqualFold(strings.TrimSpace(u), claims.Username) {
				role = "admin"
				break
			}
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextRoleKey, role)
		ctx.Next()
	}
}
