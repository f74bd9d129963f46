// Package file provides HTTP handlers for file uploads and downloads.
package file

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/blob"
	"InternHub-backend/internal/utilities"
)

// FileController handles file related endpoints
type FileController struct {
	Store *blob.Store
	Log   logrus.FieldLogger
}

// NewFileController creates a new instance of FileController
func NewFileController(store *blob.Store, log logrus.FieldLogger) *FileController {
	return &FileController{Store: store, Log: log}
}

// UploadResponse is the reference of a stored file.
type UploadResponse struct {
	Ref string `json:"ref"`
	URL string `json:"url"`
}

var (
	proofExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".pdf":  true,
	}
	projectExtensions = map[string]bool{
		".pdf": true,
		".zip": true,
	}
)

// UploadPaymentProof stores a payment screenshot.
// @Summary Upload payment proof
// @Description Only .jpg, .jpeg, .png and .pdf files smaller than 10 MB are permitted
// @Tags File
// @Accept mpfd
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param file formData file true "Payment screenshot"
// @Success 201 {object} UploadResponse
// @Failure 413 {object} utilities.ErrorResponse "File size is larger than 10 MB"
// @Failure 415 {object} utilities.ErrorResponse "File extension is not allowed"
// @Router /files/payment-proof [post]
func (fc *FileController) UploadPaymentProof(c *gin.Context) {
	fc.upload(c, blob.CategoryPaymentProof, proofExtensions)
}

// UploadProject stores a project file for a task submission.
// @Summary Upload project file
// @Description Only .pdf and .zip files smaller than 10 MB are permitted
// @Tags File
// @Accept mpfd
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param file formData file true "Project archive or report"
// @Success 201 {object} UploadResponse
// @Failure 413 {object} utilities.ErrorResponse "File size is larger than 10 MB"
// @Failure 415 {object} utilities.ErrorResponse "File extension is not allowed"
// @Router /files/project [post]
func (fc *FileController) UploadProject(c *gin.Context) {
	fc.upload(c, blob.CategoryProject, projectExtensions)
}

func (fc *FileController) upload(c *gin.Context, category string, allowed map[string]bool) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	rawFile, err := c.FormFile("file")
	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		c.JSON(http.StatusRequestEntityTooLarge, utilities.ErrorResponse{
			Error: "Entity too large",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve file: %s", err.Error()),
		})
		return
	}

	extension := strings.ToLower(filepath.Ext(rawFile.Filename))
	if !allowed[extension] {
		c.JSON(http.StatusUnsupportedMediaType, utilities.ErrorResponse{
			Error: fmt.Sprintf("Unsupported file extension: %s", extension),
		})
		return
	}

	f, err := rawFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Cannot open file"})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			fc.Log.WithError(err).Warn("failed to close uploaded file")
		}
	}()

	fileBytes, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Cannot read file"})
		return
	}

	owner := user.ID
	ref, err := fc.Store.Store(c.Request.Context(), fileBytes, extension, category, &owner)
	if err != nil {
		utilities.RespondError(c, fc.Log, err)
		return
	}
	url, err := fc.Store.Resolve(c.Request.Context(), ref)
	if err != nil {
		utilities.RespondError(c, fc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, UploadResponse{Ref: ref, URL: url})
}

// GetFile streams a stored file to its owner or an admin.
// @Summary Download file
// @Tags File
// @Produce octet-stream
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param ref path string true "File reference"
// @Success 200 {file} binary
// @Failure 404 {object} utilities.ErrorResponse "File not found"
// @Router /file/{ref} [get]
func (fc *FileController) GetFile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	obj, err := fc.Store.Open(c.Request.Context(), c.Param("ref"))
	if err != nil {
		utilities.RespondError(c, fc.Log, err)
		return
	}
	defer func() {
		if err := obj.Reader.Close(); err != nil {
			fc.Log.WithError(err).Warn("failed to close file reader")
		}
	}()

	owned := obj.File.OwnerID != nil && *obj.File.OwnerID == user.ID.String()
	if !owned && !user.IsAdmin() {
		utilities.RespondError(c, fc.Log, apperror.New(apperror.KindNotFound, "File not found"))
		return
	}

	c.DataFromReader(http.StatusOK, obj.Size, obj.MediaType, obj.Reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`inline; filename="%s"`, obj.FileName),
	})
}
