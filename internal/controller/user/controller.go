// Package user provides HTTP handlers for the user directory.
package user

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// UserController handles user directory endpoints
type UserController struct {
	DB  *database.DBinstanceStruct
	Log logrus.FieldLogger
}

// NewUserController creates a new instance of UserController.
func NewUserController(db *database.DBinstanceStruct, log logrus.FieldLogger) *UserController {
	return &UserController{DB: db, Log: log}
}

// ContactRequest holds the contact fields a user may change. Empty strings clear a field.
type ContactRequest struct {
	Email *string `json:"email"`
	Tel   *string `json:"tel"`
}

// RegisterRequest adds a user known to the external sign-in provider.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role" binding:"required"`
	ContactRequest
}

// GetMe returns the caller.
// @Summary Get my profile
// @Tags User
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} model.User
// @Router /me [get]
func (uc *UserController) GetMe(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, user)
}

// EditContact changes where notifications of the caller are delivered.
// @Summary Edit my contact information
// @Tags User
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param contact body ContactRequest true "Contact information"
// @Success 200 {object} model.User
// @Failure 400 {object} utilities.ErrorResponse "Invalid email"
// @Router /me/contact [patch]
func (uc *UserController) EditContact(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	var req ContactRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, uc.Log, err)
		return
	}
	contact, err := applyContact(user.ContactInfo, req)
	if err != nil {
		utilities.RespondError(c, uc.Log, err)
		return
	}

	if err := uc.DB.WithContext(c.Request.Context()).Model(&user).
		Select("tel", "email").
		Updates(model.User{ContactInfo: contact}).Error; err != nil {
		utilities.RespondError(c, uc.Log, apperror.Internal("failed to update contact information", err))
		return
	}
	user.ContactInfo = contact
	c.JSON(http.StatusOK, user)
}

// RegisterUser adds a user to the directory.
// @Summary Register user
// @Description Only admin can access this endpoint. The id is the subject of the user's access tokens.
// @Tags User
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param user body RegisterRequest true "User"
// @Success 201 {object} model.User
// @Failure 409 {object} utilities.ErrorResponse "Username already taken"
// @Router /admin/users [post]
func (uc *UserController) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, uc.Log, err)
		return
	}
	if req.Role != model.RoleAdmin && req.Role != model.RoleApplicant {
		utilities.RespondError(c, uc.Log, apperror.Validation("Invalid role", map[string]string{"role": "Role must be admin or applicant"}))
		return
	}
	contact, err := applyContact(model.ContactInfo{}, req.ContactRequest)
	if err != nil {
		utilities.RespondError(c, uc.Log, err)
		return
	}

	user := model.User{Username: strings.TrimSpace(req.Username), Role: req.Role, ContactInfo: contact}
	if err := uc.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err, "") {
			c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: "Username already taken"})
			return
		}
		utilities.RespondError(c, uc.Log, apperror.Internal("failed to create user", err))
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GetUserByID returns one user of the directory.
// @Summary Get user
// @Description Only admin can access this endpoint
// @Tags User
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} utilities.ErrorResponse "User not found"
// @Router /admin/users/{id} [get]
func (uc *UserController) GetUserByID(c *gin.Context) {
	var user model.User
	err := uc.DB.WithContext(c.Request.Context()).Where("id = ?", c.Param("id")).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || database.PgCode(err) == "22P02" {
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "User not found", Kind: string(apperror.KindNotFound)})
		return
	}
	if err != nil {
		utilities.RespondError(c, uc.Log, apperror.Internal("failed to get user", err))
		return
	}
	c.JSON(http.StatusOK, user)
}

func applyContact(current model.ContactInfo, req ContactRequest) (model.ContactInfo, error) {
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		switch {
		case email == "":
			current.Email = nil
		default:
			addr, err := mail.ParseAddress(email)
			if err != nil || addr.Address != email {
				return current, apperror.Validation("Invalid email", map[string]string{"email": "Invalid email address"})
			}
			current.Email = &email
		}
	}
	if req.Tel != nil {
		tel := strings.TrimSpace(*req.Tel)
		if tel == "" {
			current.Tel = nil
		} else {
			current.Tel = &tel
		}
	}
	return current, nil
}
