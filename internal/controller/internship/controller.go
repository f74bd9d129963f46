// Package internship provides HTTP handlers for internship listings.
package internship

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/catalog"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// InternshipController handles internship listing endpoints
type InternshipController struct {
	Catalog *catalog.Catalog
	Log     logrus.FieldLogger
}

// NewInternshipController creates a new instance of InternshipController.
func NewInternshipController(c *catalog.Catalog, log logrus.FieldLogger) *InternshipController {
	return &InternshipController{Catalog: c, Log: log}
}

// InternshipResponse is a listing with its free seat count.
type InternshipResponse struct {
	model.Internship
	FreeSeats int `json:"free_seats"`
}

func toResponse(i model.Internship) InternshipResponse {
	return InternshipResponse{Internship: i, FreeSeats: i.FreeSeats()}
}

// GetInternships lists internships.
// @Summary List internships
// @Tags Internship
// @Produce json
// @Param accepting query bool false "Only listings accepting applications"
// @Success 200 {array} InternshipResponse
// @Router /internships [get]
func (ic *InternshipController) GetInternships(c *gin.Context) {
	acceptingOnly, _ := strconv.ParseBool(c.DefaultQuery("accepting", "false"))
	listings, err := ic.Catalog.List(c.Request.Context(), acceptingOnly)
	if err != nil {
		utilities.RespondError(c, ic.Log, err)
		return
	}
	out := make([]InternshipResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toResponse(l))
	}
	c.JSON(http.StatusOK, out)
}

// GetInternshipByID returns one internship.
// @Summary Get internship
// @Tags Internship
// @Produce json
// @Param id path int true "Internship ID"
// @Success 200 {object} InternshipResponse
// @Failure 404 {object} utilities.ErrorResponse "Internship not found"
// @Router /internships/{id} [get]
func (ic *InternshipController) GetInternshipByID(c *gin.Context) {
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, ic.Log, err)
		return
	}
	listing, err := ic.Catalog.GetInternship(c.Request.Context(), id)
	if err != nil {
		utilities.RespondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(*listing))
}

// CreateInternship adds a listing.
// @Summary Create internship
// @Description Only admin can access this endpoint
// @Tags Internship
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param internship body catalog.CreateInput true "Listing"
// @Success 201 {object} InternshipResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid listing"
// @Router /admin/internships [post]
func (ic *InternshipController) CreateInternship(c *gin.Context) {
	var in catalog.CreateInput
	if err := utilities.BindJSON(c, &in); err != nil {
		utilities.RespondError(c, ic.Log, err)
		return
	}
	listing, err := ic.Catalog.Create(c.Request.Context(), in)
	if err != nil {
		utilities.RespondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(*listing))
}

// EditInternship changes a listing.
// @Summary Edit internship
// @Description Only admin can access this endpoint. Total positions cannot drop below consumed seats.
// @Tags Internship
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Internship ID"
// @Param internship body catalog.UpdateInput true "Fields to change"
// @Success 200 {object} InternshipResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid fields"
// @Failure 404 {object} utilities.ErrorResponse "Internship not found"
// @Router /admin/internships/{id} [patch]
func (ic *InternshipController) EditInternship(c *gin.Context) {
	id, err := utilities.ParamID(c, "id")
	if err != nil {
		utilities.RespondError(c, ic.Log, err)
		return
	}
	var in catalog.UpdateInput
	if err := utilities.BindJSON(c, &in); err != nil {
		utilities.RespondError(c, ic.Log, err)
		return
	}
	listing, err := ic.Catalog.Update(c.Request.Context(), id, in)
	if err != nil {
		utilities.RespondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(*listing))
}
