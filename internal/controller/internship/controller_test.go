package internship

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/catalog"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/logger"
	"InternHub-backend/internal/testutil"
)

var (
	db     *database.DBinstanceStruct
	router *gin.Engine
)

func TestMain(m *testing.M) {
	teardown, testDB, err := database.GetTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}
	db = testDB

	gin.SetMode(gin.TestMode)
	ic := NewInternshipController(catalog.NewCatalog(db.DB, logger.Discard()), logger.Discard())
	router = gin.New()
	router.GET("/internships", ic.GetInternships)
	router.GET("/internships/:id", ic.GetInternshipByID)
	router.POST("/internships", ic.CreateInternship)
	router.PATCH("/internships/:id", ic.EditInternship)

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Printf("could not teardown postgres container: %v", err)
		}
	}
	os.Exit(code)
}

func TestCreateInternship(t *testing.T) {
	body := gin.H{
		"title":            "Data Engineering Internship",
		"domain":           "Data",
		"total_positions":  3,
		"registration_fee": "150.00",
	}
	rec, resp := testutil.MakeJSONRequest(body, "", router, "/internships", http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Data Engineering Internship", resp["title"])
	assert.EqualValues(t, 3, resp["free_seats"])
	assert.Equal(t, true, resp["is_accepting"])

	rec, resp = testutil.MakeJSONRequest(gin.H{"title": "Bad", "total_positions": -1}, "", router, "/internships", http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields, _ := resp["fields"].(map[string]interface{})
	assert.Contains(t, fields, "total_positions")

	rec, _ = testutil.MakeJSONRequest(gin.H{"domain": "No title"}, "", router, "/internships", http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetInternshipByID(t *testing.T) {
	rec, resp := testutil.MakeJSONRequest(nil, "", router, fmt.Sprintf("/internships/%d", database.TestInternship1.ID), http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, database.TestInternship1.Title, resp["title"])

	rec, _ = testutil.MakeJSONRequest(nil, "", router, "/internships/999999", http.MethodGet)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = testutil.MakeJSONRequest(nil, "", router, "/internships/abc", http.MethodGet)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditInternship(t *testing.T) {
	listing, err := database.CreateTestInternship(db, "Editable Internship", 2)
	require.NoError(t, err)
	require.NoError(t, db.Model(&listing).Update("current_registrations", 2).Error)
	path := fmt.Sprintf("/internships/%d", listing.ID)

	rec, _ := testutil.MakeJSONRequest(gin.H{"total_positions": 1}, "", router, path, http.MethodPatch)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "cannot shrink below consumed seats")

	rec, resp := testutil.MakeJSONRequest(gin.H{"total_positions": 4, "is_accepting": false}, "", router, path, http.MethodPatch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, resp["free_seats"])
	assert.Equal(t, false, resp["is_accepting"])

	rec, list := testutil.MakeListRequest("", router, "/internships?accepting=true")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, l := range list {
		assert.NotEqual(t, float64(listing.ID), l["id"], "closed listing must not be listed as accepting")
	}
}
