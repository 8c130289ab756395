package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"stillopen-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPlaceService is a mock implementation of the PlaceService interface
type MockPlaceService struct {
	mock.Mock
}

func (m *MockPlaceService) Detail(ctx context.Context, placeID string) (models.PlaceDetail, error) {
	args := m.Called(ctx, placeID)
	return args.Get(0).(models.PlaceDetail), args.Error(1)
}

func TestPlaceHandler_GetPlace(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		placeID        string
		mockDetail     models.PlaceDetail
		mockError      error
		expectedStatus int
		expectedBody   map[string]any
	}{
		{
			name:    "open place",
			placeID: "p-joes",
			mockDetail: models.PlaceDetail{
				PlaceID:      "p-joes",
				Name:         "Joe's Diner",
				Address:      "Springfield, IL",
				Category:     "diner",
				Status:       models.StatusOpen,
				Confidence:   float64Ptr(0.8),
				Explanation:  []string{"Website listed, supporting an OPEN signal"},
				ModelVersion: "logit-test",
			},
			expectedStatus: http.StatusOK,
			expectedBody: map[string]any{
				"id":            "p-joes",
				"name":          "Joe's Diner",
				"address":       "Springfield, IL",
				"category":      "diner",
				"status":        "OPEN",
				"confidence":    0.8,
				"explanation":   []any{"Website listed, supporting an OPEN signal"},
				"model_version": "logit-test",
			},
		},
		{
			name:    "unknown prediction is still a 200",
			placeID: "p-sparse",
			mockDetail: models.PlaceDetail{
				PlaceID:     "p-sparse",
				Name:        "Sparse",
				Address:     "Unknown Location",
				Status:      models.StatusUnknown,
				Explanation: []string{"Prediction model is not available right now."},
				Reason:      models.ReasonModelUnavailable,
			},
			expectedStatus: http.StatusOK,
			expectedBody: map[string]any{
				"id":          "p-sparse",
				"name":        "Sparse",
				"address":     "Unknown Location",
				"status":      "UNKNOWN",
				"confidence":  nil,
				"explanation": []any{"Prediction model is not available right now."},
				"reason":      "model_unavailable",
			},
		},
		{
			name:           "not found",
			placeID:        "p-missing",
			mockError:      fmt.Errorf("service: place %q: %w", "p-missing", models.ErrNotFound),
			expectedStatus: http.StatusNotFound,
			expectedBody:   map[string]any{"error": "place not found"},
		},
		{
			name:           "service error",
			placeID:        "p-joes",
			mockError:      assert.AnError,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   map[string]any{"error": "internal server error"},
		},
		{
			name:           "deadline exceeded",
			placeID:        "p-joes",
			mockError:      context.DeadlineExceeded,
			expectedStatus: http.StatusGatewayTimeout,
			expectedBody:   map[string]any{"error": "request timed out"},
		},
		{
			name:           "client went away",
			placeID:        "p-joes",
			mockError:      fmt.Errorf("service: place %q: %w", "p-joes", context.Canceled),
			expectedStatus: StatusClientClosedRequest,
			expectedBody:   map[string]any{"error": "request canceled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockPlaceService)
			handler := NewPlaceHandler(mockSvc)
			mockSvc.On("Detail", mock.Anything, tt.placeID).Return(tt.mockDetail, tt.mockError)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/place/"+tt.placeID, nil)
			c.Params = gin.Params{{Key: "id", Value: tt.placeID}}

			handler.GetPlace(c)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var actualBody map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actualBody))
			assert.Equal(t, tt.expectedBody, actualBody)
			mockSvc.AssertExpectations(t)
		})
	}
}
