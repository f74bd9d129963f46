package utilities

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/logger"
	"InternHub-backend/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
		msg    string
	}{
		{"validation", apperror.Validation("Invalid application", map[string]string{"certificate_name": "required"}), http.StatusBadRequest, "validation_failed", "Invalid application"},
		{"capacity", apperror.New(apperror.KindCapacityExhausted, "No seats left"), http.StatusConflict, "capacity_exhausted", "No seats left"},
		{"duplicate", apperror.New(apperror.KindDuplicatePaymentReference, "Payment reference already used"), http.StatusConflict, "duplicate_payment_reference", "Payment reference already used"},
		{"not eligible", apperror.New(apperror.KindNotEligible, "Complete all tasks"), http.StatusUnprocessableEntity, "not_eligible", "Complete all tasks"},
		{"rendering", apperror.New(apperror.KindRenderingFailed, "retry"), http.StatusServiceUnavailable, "rendering_failed", "retry"},
		{"internal hides cause", apperror.Internal("failed to save", errors.New("pq: password leaked")), http.StatusInternalServerError, "internal", "Internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal", "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := func(c *gin.Context) { RespondError(c, logger.Discard(), tc.err) }
			rec, resp, err := SimulateAPICall(handler, http.MethodGet, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.kind, resp["kind"])
			assert.Equal(t, tc.msg, resp["error"])
			assert.NotContains(t, rec.Body.String(), "password")
		})
	}
}

func TestRespondError_Fields(t *testing.T) {
	handler := func(c *gin.Context) {
		RespondError(c, logger.Discard(), apperror.Validation("bad", map[string]string{"duration_weeks": "required"}))
	}
	_, resp, err := SimulateAPICall(handler, http.MethodPost, nil, nil)
	require.NoError(t, err)
	fields, ok := resp["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "required", fields["duration_weeks"])
}

func TestExtractUser(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, err := ExtractUser(c)
	assert.Error(t, err)

	c.Set("user", "not a user")
	_, err = ExtractUser(c)
	assert.Error(t, err)

	c.Set("user", model.User{Username: "asha", Role: model.RoleApplicant})
	user, err := ExtractUser(c)
	require.NoError(t, err)
	assert.Equal(t, "asha", user.Username)
}

func TestExtractBearerToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractBearerToken(c)
	assert.Error(t, err)

	c.Request.Header.Set("Authorization", "Basic abc")
	_, err = ExtractBearerToken(c)
	assert.Error(t, err)

	c.Request.Header.Set("Authorization", "Bearer abc.def")
	token, err := ExtractBearerToken(c)
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"admin", "applicant"}, "admin"))
	assert.False(t, Contains([]string{"applicant"}, "admin"))
}
