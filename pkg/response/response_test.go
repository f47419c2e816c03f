package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
)

func TestErrorRendersTypedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Clone(appErrors.ErrPayloadInsufficient, "insufficient data in qr code"))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	require.Equal(t, "PAYLOAD_INSUFFICIENT_DATA", body.Error.Code)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestJSONIncludesMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, map[string]int{"present": 2}, map[string]interface{}{"session_id": "s-1"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"session_id":"s-1"`)
	require.Contains(t, w.Body.String(), `"present":2`)
}

func TestErrorCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "scanner-7-0009")

	Error(c, appErrors.ErrConflict)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "scanner-7-0009", body.Meta["request_id"])
}

func TestAcceptedWarns(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Accepted(c, map[string]string{"name": "JOHN SMITH"}, "attendance row not saved")

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), `"warning":"attendance row not saved"`)
}
