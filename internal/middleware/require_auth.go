// Package middleware contain utilities middleware code
package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// RequireAuth function is a middleware that validates a Bearer token in the Authorization
// header and loads the user the token was issued to before allowing access to the endpoint.
func RequireAuth(db *database.DBinstanceStruct, provider *auth.Provider, log logrus.FieldLogger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, err := utilities.ExtractBearerToken(ctx)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, utilities.ErrorResponse{
				Error: err.Error(),
			})
			return
		}

		userID, err := provider.Validate(tokenString)
		if err != nil {
			msg := fmt.Sprintf("Failed to validate token: %s", err.Error())
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				msg = "Access token expired"
			case errors.Is(err, auth.ErrInvalidIssuer):
				msg = "Invalid token issuer"
			}
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: msg})
			return
		}

		var foundUser model.User
		if err := db.WithContext(ctx.Request.Context()).Where("id = ?", userID).First(&foundUser).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{
					Error: "User not exist",
				})
				return
			}

			log.WithError(err).Error("failed to load authenticated user")
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: "Failed to retrieve user data",
			})
			return
		}

		ctx.Set("user", foundUser)
		ctx.Next()
	}
}
