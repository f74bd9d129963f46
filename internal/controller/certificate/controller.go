// Package certificate provides HTTP handlers for certificate issuance and verification.
package certificate

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	cert "InternHub-backend/internal/certificate"
	"InternHub-backend/internal/utilities"
)

// CertificateController handles certificate related endpoints
type CertificateController struct {
	Certificates *cert.Service
	Log          logrus.FieldLogger
}

// NewCertificateController creates a new instance of CertificateController.
func NewCertificateController(svc *cert.Service, log logrus.FieldLogger) *CertificateController {
	return &CertificateController{Certificates: svc, Log: log}
}

// IssueRequest names the internship a certificate is requested for.
type IssueRequest struct {
	InternshipID uint `json:"internship_id" binding:"required"`
}

// RevokeRequest carries the reason of a revocation.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// IssueCertificate issues the caller's certificate for an internship. Calling
// it again returns the certificate already issued.
// @Summary Request certificate
// @Tags Certificate
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param request body IssueRequest true "Internship"
// @Success 200 {object} model.Certificate
// @Failure 422 {object} utilities.ErrorResponse "Not all tasks completed"
// @Failure 503 {object} utilities.ErrorResponse "Rendering failed, retry later"
// @Router /certificates [post]
func (cc *CertificateController) IssueCertificate(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	var req IssueRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, cc.Log, err)
		return
	}
	certificate, err := cc.Certificates.IssueCertificate(c.Request.Context(), user.ID, req.InternshipID)
	if err != nil {
		utilities.RespondError(c, cc.Log, err)
		return
	}
	c.JSON(http.StatusOK, certificate)
}

// Eligibility reports whether the caller may request a certificate.
// @Summary Certificate eligibility
// @Tags Certificate
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Success 200 {object} cert.Eligibility
// @Router /certificates/eligibility/{id} [get]
func (cc *CertificateController) Eligibility(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, cc.Log, err)
		return
	}
	e, err := cc.Certificates.Eligible(c.Request.Context(), user.ID, id)
	if err != nil {
		utilities.RespondError(c, cc.Log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ListMyCertificates lists the certificates of the caller.
// @Summary List my certificates
// @Tags Certificate
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} model.Certificate
// @Router /certificates/me [get]
func (cc *CertificateController) ListMyCertificates(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	certs, err := cc.Certificates.ListMine(c.Request.Context(), user.ID)
	if err != nil {
		utilities.RespondError(c, cc.Log, err)
		return
	}
	c.JSON(http.StatusOK, certs)
}

// VerifyCertificate is the public lookup of a certificate id. It always
// answers 200 and only says whether the id is valid.
// @Summary Verify certificate
// @Tags Certificate
// @Produce json
// @Param certificate_id path string true "Certificate ID"
// @Success 200 {object} cert.Verification
// @Router /certificates/verify/{certificate_id} [get]
func (cc *CertificateController) VerifyCertificate(c *gin.Context) {
	c.JSON(http.StatusOK, cc.Certificates.Verify(c.Request.Context(), c.Param("certificate_id")))
}

// RevokeCertificate tombstones a certificate so that it no longer verifies.
// @Summary Revoke certificate
// @Description Only admin can access this endpoint
// @Tags Certificate
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param certificate_id path string true "Certificate ID"
// @Param request body RevokeRequest true "Reason"
// @Success 200 {object} model.CertificateRevocation
// @Failure 404 {object} utilities.ErrorResponse "Certificate not found"
// @Router /admin/certificates/{certificate_id}/revoke [post]
func (cc *CertificateController) RevokeCertificate(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	var req RevokeRequest
	if err := utilities.BindJSON(c, &req); err != nil {
		utilities.RespondError(c, cc.Log, err)
		return
	}
	rev, err := cc.Certificates.Revoke(c.Request.Context(), c.Param("certificate_id"), user.ID, req.Reason)
	if err != nil {
		utilities.RespondError(c, cc.Log, err)
		return
	}
	c.JSON(http.StatusOK, rev)
}
