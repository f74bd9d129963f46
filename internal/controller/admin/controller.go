// Package admin provides HTTP handlers for the admin review of applications.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/capacity"
	"InternHub-backend/internal/review"
	"InternHub-backend/internal/utilities"
)

// AdminController handles application review endpoints
type AdminController struct {
	Review *review.Service
	Ledger *capacity.Ledger
	Log    logrus.FieldLogger
}

// NewAdminController creates a new instance of AdminController.
func NewAdminController(svc *review.Service, ledger *capacity.Ledger, log logrus.FieldLogger) *AdminController {
	return &AdminController{Review: svc, Ledger: ledger, Log: log}
}

// ReviewRequest is an admin decision.
type ReviewRequest struct {
	Decision        review.Decision `json:"decision" binding:"required"`
	RejectionReason string          `json:"rejection_reason"`
}

// ReopenRequest carries the note of a re-review.
type ReopenRequest struct {
	Note string `json:"note"`
}

// ReviewApplication applies approve, reject or offer to an application.
// @Summary Review an application
// @Description Approving consumes a seat. Rejecting requires a reason.
// @Tags Admin
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Param decision body ReviewRequest true "Decision"
// @Success 200 {object} model.Application
// @Failure 400 {object} utilities.ErrorResponse "Unknown decision or missing reason"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "No free seat or transition not allowed"
// @Router /admin/applications/{id}/review [post]
func (ac *AdminController) ReviewApplication(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	var req ReviewRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}

	app, err := ac.Review.Review(c.Request.Context(), review.ReviewInput{
		ApplicationID:   id,
		ReviewerID:      user.ID,
		Decision:        req.Decision,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ReopenApplication returns a rejected application to pending.
// @Summary Re-review a rejected application
// @Tags Admin
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Param note body ReopenRequest true "Why the application is reopened"
// @Success 200 {object} model.Application
// @Failure 409 {object} utilities.ErrorResponse "Application is not rejected or its payment reference was reused"
// @Router /admin/applications/{id}/reopen [post]
func (ac *AdminController) ReopenApplication(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	var req ReopenRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}

	app, err := ac.Review.Reopen(c.Request.Context(), review.ReopenInput{ApplicationID: id, ReviewerID: user.ID, Note: req.Note})
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ApplicationHistory lists the review trail of an application.
// @Summary Review history
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Success 200 {array} model.ApplicationReview
// @Router /admin/applications/{id}/history [get]
func (ac *AdminController) ApplicationHistory(c *gin.Context) {
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	history, err := ac.Review.History(c.Request.Context(), id)
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// ListApplications lists the applications of an internship.
// @Summary List applications of an internship
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Param status query string false "pending, approved, offered or rejected"
// @Success 200 {array} model.Application
// @Router /admin/internships/{id}/applications [get]
func (ac *AdminController) ListApplications(c *gin.Context) {
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	apps, err := ac.Review.ListForInternship(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// CapacitySnapshot reports the seat counters of an internship.
// @Summary Seat usage of an internship
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Success 200 {object} capacity.Snapshot
// @Router /admin/internships/{id}/capacity [get]
func (ac *AdminController) CapacitySnapshot(c *gin.Context) {
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	snap, err := ac.Ledger.Snapshot(c.Request.Context(), id)
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
