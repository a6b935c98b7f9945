package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/infrastructure/gateway/mpesa"
)

func newCallbackRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewMpesaHandler(nil, nil, nil, secret, zap.NewNop())
	engine := gin.New()
	engine.POST("/callbacks/mpesa/:school_id", h.Callback)
	return engine
}

func postCallback(t *testing.T, engine *gin.Engine, schoolID string, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/callbacks/mpesa/%s", schoolID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func failedSTKPayload() []byte {
	return []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user"
			}
		}
	}`)
}

func TestMpesaHandler_Callback_RejectsBadSignature(t *testing.T) {
	engine := newCallbackRouter("webhook-secret")

	w := postCallback(t, engine, uuid.NewString(), failedSTKPayload(), "deadbeef")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "ERR_INVALID_SIGNATURE", resp.Error.Code)
}

func TestMpesaHandler_Callback_RejectsInvalidSchoolID(t *testing.T) {
	engine := newCallbackRouter("")

	w := postCallback(t, engine, "not-a-uuid", failedSTKPayload(), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMpesaHandler_Callback_AcknowledgesFailedPush(t *testing.T) {
	secret := "webhook-secret"
	engine := newCallbackRouter(secret)
	body := failedSTKPayload()

	// A cancelled push is acknowledged with 200 so the gateway stops
	// retrying; no ingestion happens (the handler has no service wired).
	w := postCallback(t, engine, uuid.NewString(), body, mpesa.SignPayload(body, secret))

	assert.Equal(t, http.StatusOK, w.Code)
	var ack struct {
		ResultCode int `json:"ResultCode"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, 0, ack.ResultCode)
}

func TestMpesaHandler_Callback_RejectsUnrecognizedPayload(t *testing.T) {
	engine := newCallbackRouter("")

	w := postCallback(t, engine, uuid.NewString(), []byte(`{"hello":"world"}`), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
