package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stajtakip/internship-api/internal/middleware"
	"github.com/stajtakip/internship-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func advisorFromClaims(claims *models.JWTClaims) models.AdvisorIdentity {
	return models.AdvisorIdentity{ID: claims.UserID, Email: claims.Email}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
