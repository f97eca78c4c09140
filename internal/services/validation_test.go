package services

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationFixture struct {
	LookupCode string `validate:"required,max=64"`
	Method     string `validate:"required,oneof=cash check transfer card other"`
	Note       string `validate:"max=500"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&validationFixture{LookupCode: "FT-0042", Method: "cash"})
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		err := vh.ValidateStruct(&validationFixture{Method: "cash"})
		assert.Error(t, err)
	})

	t.Run("method outside the closed set", func(t *testing.T) {
		err := vh.ValidateStruct(&validationFixture{LookupCode: "FT-0042", Method: "crypto"})
		assert.Error(t, err)
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain message", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Access denied", 403, nil)

		assert.Equal(t, 403, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Access denied", resp.Error)
		assert.Empty(t, resp.Details)
	})

	t.Run("validation details included", func(t *testing.T) {
		vh := NewValidationHelper()
		err := vh.ValidateStruct(&validationFixture{Method: "crypto"})
		require.Error(t, err)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", 400, err)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Details, "LookupCode")
		assert.Contains(t, resp.Details, "Method")
	})
}
