package application

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/logger"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

// These cases are rejected before the intake service is reached, so no database is needed.
func TestApplicationController_RejectsBeforeIntake(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ac := NewApplicationController(nil, logger.Discard())
	applicant := &model.User{ID: uuid.New(), Username: "applicant_x", Role: model.RoleApplicant}

	t.Run("submit without caller", func(t *testing.T) {
		rec, resp, err := utilities.SimulateAPICall(ac.SubmitApplication, http.MethodPost, gin.H{"internship_id": 1}, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, resp["error"])
	})

	t.Run("submit without internship id", func(t *testing.T) {
		rec, resp, err := utilities.SimulateAPICall(ac.SubmitApplication, http.MethodPost, gin.H{"duration_weeks": 8}, applicant)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_failed", resp["kind"])
	})

	t.Run("submit with malformed body", func(t *testing.T) {
		rec, _, err := utilities.SimulateAPICall(ac.SubmitApplication, http.MethodPost, gin.H{"internship_id": "one"}, applicant)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list without caller", func(t *testing.T) {
		rec, _, err := utilities.SimulateAPICall(ac.ListMyApplications, http.MethodGet, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	for _, id := range []string{"abc", "0", "-3"} {
		t.Run("withdraw with id "+id, func(t *testing.T) {
			rec, resp, err := utilities.SimulateAPICall(ac.WithdrawApplication, http.MethodPost, nil, applicant, gin.Param{Key: "id", Value: id})
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			fields, _ := resp["fields"].(map[string]interface{})
			assert.Contains(t, fields, "id")
		})
	}
}
