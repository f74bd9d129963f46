// Package notification provides HTTP handlers for the in-app notification inbox.
package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/notify"
	"InternHub-backend/internal/utilities"
)

// NotificationController handles notification inbox endpoints
type NotificationController struct {
	Dispatcher *notify.Dispatcher
	Log        logrus.FieldLogger
}

// NewNotificationController creates a new instance of NotificationController.
func NewNotificationController(d *notify.Dispatcher, log logrus.FieldLogger) *NotificationController {
	return &NotificationController{Dispatcher: d, Log: log}
}

// ListNotifications lists the notifications of the caller, newest first.
// @Summary List my notifications
// @Tags Notification
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param unread query bool false "Only unread notifications"
// @Success 200 {array} model.Notification
// @Router /notifications [get]
func (nc *NotificationController) ListNotifications(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	list, err := nc.Dispatcher.List(c.Request.Context(), user.ID, unread)
	if err != nil {
		utilities.RespondError(c, nc.Log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkRead marks one notification of the caller as read.
// @Summary Mark notification read
// @Tags Notification
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Notification ID"
// @Success 200 {object} utilities.MessageResponse
// @Failure 404 {object} utilities.ErrorResponse "Notification not found"
// @Router /notifications/{id}/read [post]
func (nc *NotificationController) MarkRead(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, nc.Log, err)
		return
	}
	if err := nc.Dispatcher.MarkRead(c.Request.Context(), user.ID, id); err != nil {
		utilities.RespondError(c, nc.Log, err)
		return
	}
	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Notification marked as read"})
}
