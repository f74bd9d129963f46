package utilities

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"InternHub-backend/internal/model"
)

// SimulateAPICall runs handlerFunc on a single request without building a router.
// caller, when not nil, is installed as the authenticated user the way RequireAuth
// does, and params fill the path parameters. A nil body sends no payload.
func SimulateAPICall(
	handlerFunc func(*gin.Context),
	method string,
	body interface{},
	caller *model.User,
	params ...gin.Param,
) (*httptest.ResponseRecorder, map[string]interface{}, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		payload = b
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req, err := http.NewRequest(method, "/", bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	if caller != nil {
		c.Set("user", *caller)
	}
	handlerFunc(c)

	resp := map[string]interface{}{}
	if rec.Body.Len() == 0 {
		return rec, resp, nil
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		return rec, nil, err
	}
	return rec, resp, nil
}
