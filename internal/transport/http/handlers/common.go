package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/transport/http/middleware"
)

func requestActor(c *gin.Context) domain.Actor {
	actor, _ := middleware.GetActor(c)
	return actor
}

func requestCad(c *gin.Context) domain.Cad {
	cad, _ := middleware.GetCad(c)
	return cad
}

// bindJSON decodes the body into dst and answers 400 on malformed JSON.
// Field rules are enforced by the usecases.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadBody(c, err)
		return false
	}
	return true
}
