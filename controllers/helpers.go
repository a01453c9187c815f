package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumkit/middleware"
	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/services"
)

// currentActor reads the authenticated identity placed into the context by
// the JWT middleware. ok is false on routes without RequireAuth.
func currentActor(ctx *gin.Context) (services.Actor, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return services.Actor{}, false
	}

	var userID uint
	switch v := value.(type) {
	case uint:
		userID = v
	case int:
		userID = uint(v)
	case int64:
		userID = uint(v)
	case float64:
		userID = uint(v)
	default:
		return services.Actor{}, false
	}

	actor := services.Actor{UserID: userID, Role: models.RoleUser}
	if name, exists := ctx.Get(middleware.ContextUsernameKey); exists {
		if s, ok := name.(string); ok {
			actor.Username = s
		}
	}
	if role, exists := ctx.Get(middleware.ContextRoleKey); exists {
		switch r := role.(type) {
		case models.Role:
			actor.Role = r
		case string:
			actor.Role = models.Role(r)
		}
	}
	return actor, true
}

// optionalActor returns the zero Actor for anonymous requests so read
// endpoints can be served without authentication.
func optionalActor(ctx *gin.Context) services.Actor {
	actor, _ := currentActor(ctx)
	return actor
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
