package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondErrorMapsDomainErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "validation error",
			err:    &models.ValidationError{Field: "quantity", Reason: "must be positive"},
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name:   "insufficient stock",
			err:    &models.InsufficientStockError{ProductID: 1, ProductName: "Desk Lamp", Requested: 5, Available: 2},
			status: http.StatusBadRequest,
			code:   "insufficient_stock",
		},
		{
			name:   "not found by id",
			err:    &models.NotFoundError{Entity: "order", ID: 9},
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "not found by key",
			err:    &models.NotFoundError{Entity: "order", Key: "TRK-20260101000000-DEADBEEF"},
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "conflict",
			err:    &models.ConflictError{Op: "place order", Err: errors.New("serialization failure")},
			status: http.StatusConflict,
			code:   "conflict",
		},
		{
			name:   "unknown error stays generic",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestSetupRoutesRegistersAndServes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// gin.New here, same as main: SetupRoutes owns the middleware chain.
	// Registration itself is part of the test; a route conflict would panic.
	router := gin.New()
	h := NewHandler(nil, nil, nil, nil, nil, 0)
	h.SetupRoutes(router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
