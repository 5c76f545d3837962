package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationDateRange, http.StatusBadRequest},
		{ErrCodeValidationBatchSize, http.StatusBadRequest},
		{ErrCodeAuthTokenMissing, http.StatusUnauthorized},
		{ErrCodePermissionNotMember, http.StatusForbidden},
		{ErrCodeNotFoundEvent, http.StatusNotFound},
		{ErrCodeNotFoundPhoto, http.StatusNotFound},
		{ErrCodeUpstreamPush, http.StatusBadGateway},
		{ErrCodeUpstreamQueue, http.StatusBadGateway},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.HTTPStatus(), string(tt.code))
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := NewAppError(ErrCodeInternalDB, "query failed", cause)

	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrCodeInternalDB, appErr.Code)
}

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeNotFoundPhoto, "photo not found", nil)
	assert.Equal(t, "not_found_photo: photo not found", err.Error())
}
