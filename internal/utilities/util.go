// Package utilities contain utility code that use across the package
package utilities

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/model"
)

// ErrorResponse type for swagger docs
type ErrorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageResponse type for swagger docs
type MessageResponse struct {
	Message string `json:"message"`
}

// ExtractUser extracts the user model from Gin context.
// It does not abort the request; instead returns an error when missing/invalid.
func ExtractUser(c *gin.Context) (model.User, error) {
	u, _ := c.Get("user")
	if u == nil {
		return model.User{}, errors.New("User information not provided")
	}

	user, ok := u.(model.User)
	if !ok {
		return model.User{}, errors.New("Failed to assert type")
	}
	return user, nil
}

// RespondError aborts the request with the status matching the kind of err.
// Internal faults are logged and answered without their cause.
func RespondError(c *gin.Context, log logrus.FieldLogger, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)

	resp := ErrorResponse{Kind: string(kind)}
	var appErr *apperror.Error
	if errors.As(err, &appErr) && kind != apperror.KindInternal {
		resp.Error = appErr.Message
		resp.Fields = appErr.Fields
	} else {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		resp.Error = "Internal server error"
	}
	c.AbortWithStatusJSON(status, resp)
}

// ParamID parses a positive numeric path parameter.
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("Invalid "+name, map[string]string{name: "Must be a positive integer"})
	}
	return uint(id), nil
}

// BindJSON binds the request body into dst and reports a validation error on failure.
func BindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperror.Validation(fmt.Sprintf("Invalid request body: %s", err.Error()), nil)
	}
	return nil
}
