package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smilecare/clinic-api/internal/model"
)

const ContextActor = "actor"

// Actor returns the authenticated actor the auth middleware stored on the
// request. The second return is false on unauthenticated routes.
func Actor(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

// MustActor aborts with 401 when no actor is present.
func MustActor(c *gin.Context) (model.Actor, bool) {
	actor, ok := Actor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse("authentication required"))
	}
	return actor, ok
}
