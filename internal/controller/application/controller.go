// Package application provides HTTP handlers for internship applications.
package application

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/intake"
	"InternHub-backend/internal/utilities"
)

// ApplicationController handles application related endpoints
type ApplicationController struct {
	Intake *intake.Service
	Log    logrus.FieldLogger
}

// NewApplicationController creates a new instance of ApplicationController.
func NewApplicationController(svc *intake.Service, log logrus.FieldLogger) *ApplicationController {
	return &ApplicationController{Intake: svc, Log: log}
}

// SubmitRequest is the body of an application submission.
type SubmitRequest struct {
	InternshipID     uint   `json:"internship_id" binding:"required"`
	DurationWeeks    int    `json:"duration_weeks"`
	CertificateName  string `json:"certificate_name"`
	PaymentReference string `json:"payment_reference"`
	PaymentProofRef  string `json:"payment_proof_ref"`
}

// SubmitApplication handles the creation of a new application by an applicant.
// @Summary Apply for an internship
// @Description Only applicant can access this endpoint. The payment proof must be uploaded first.
// @Tags Application
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param application body SubmitRequest true "Application information"
// @Success 201 {object} model.Application "Application submitted"
// @Failure 400 {object} utilities.ErrorResponse "Invalid body, duration or missing fields"
// @Failure 409 {object} utilities.ErrorResponse "Unknown or full internship, payment reference already used"
// @Router /applications [post]
func (ac *ApplicationController) SubmitApplication(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	var req SubmitRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}

	app, err := ac.Intake.SubmitApplication(c.Request.Context(), intake.SubmitInput{
		ApplicantID:      user.ID,
		InternshipID:     req.InternshipID,
		DurationWeeks:    req.DurationWeeks,
		CertificateName:  req.CertificateName,
		PaymentReference: req.PaymentReference,
		PaymentProofRef:  req.PaymentProofRef,
	})
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// ListMyApplications returns the applications of the caller.
// @Summary List my applications
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} model.Application
// @Router /applications/me [get]
func (ac *ApplicationController) ListMyApplications(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	apps, err := ac.Intake.ListMine(c.Request.Context(), user.ID)
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// WithdrawApplication withdraws a pending application of the caller.
// @Summary Withdraw an application
// @Description Only pending applications can be withdrawn. The record is kept.
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Success 200 {object} model.Application
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Application already reviewed"
// @Router /applications/{id}/withdraw [post]
func (ac *ApplicationController) WithdrawApplication(c *gin.Context) {
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

	app, err := ac.Intake.Withdraw(c.Request.Context(), user.ID, id)
	if err != nil {
		utilities.RespondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
