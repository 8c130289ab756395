package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stillopen-api/internal/cache"
	"stillopen-api/internal/classifier"
	"stillopen-api/internal/explain"
	"stillopen-api/internal/features"
	"stillopen-api/internal/geo"
	"stillopen-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPlaceRepository is a mock implementation of the PlaceRepository interface
type MockPlaceRepository struct {
	mock.Mock
}

// GetByID implements PlaceRepository.
func (m *MockPlaceRepository) GetByID(ctx context.Context, placeID string) (models.Place, error) {
	args := m.Called(ctx, placeID)
	return args.Get(0).(models.Place), args.Error(1)
}

// MockClassifier is a mock implementation of the Classifier interface
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Version() string {
	return m.Called().String(0)
}

func (m *MockClassifier) Predict(v features.Vector) (classifier.Prediction, error) {
	args := m.Called(v)
	return args.Get(0).(classifier.Prediction), args.Error(1)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func boolPtr(b bool) *bool { return &b }

// testModel is a logistic model that rewards a website and penalizes stale
// records.
func testModel(t *testing.T, pipeline *features.Pipeline) *classifier.Model {
	schema := pipeline.Schema()
	weights := make([]float64, schema.Len())
	means := make([]float64, schema.Len())
	weights[schema.Index(features.FeatureHasWebsite)] = 1.5
	means[schema.Index(features.FeatureHasWebsite)] = 0.5
	weights[schema.Index(features.FeatureDaysSinceUpdate)] = -0.005
	means[schema.Index(features.FeatureDaysSinceUpdate)] = 180
	model, err := classifier.New(&classifier.Artifact{
		ModelVersion: "test-v1",
		Schema:       schema,
		Kind:         classifier.KindLogistic,
		Logistic:     &classifier.Logistic{Intercept: 0.2, Weights: weights, Means: means},
	}, schema)
	require.NoError(t, err)
	return model
}

func diner(id string, website bool, age time.Duration) models.Place {
	return models.Place{
		PlaceID:     id,
		Name:        "Joe's Diner",
		Category:    "diner",
		Location:    &geo.Point{Lat: 40.7128, Lon: -74.006},
		Metadata:    models.Metadata{HasWebsite: boolPtr(website)},
		LastUpdated: testNow.Add(-age),
	}
}

func newTestPredictionService(t *testing.T, repo PlaceRepository, model Classifier, opts PredictionOptions) *PredictionService {
	pipeline := features.NewPipeline(features.Options{})
	if model == nil {
		return NewPredictionService(repo, pipeline, nil, explain.New(explain.Options{}), opts)
	}
	opts.Now = func() time.Time { return testNow }
	return NewPredictionService(repo, pipeline, model, explain.New(explain.Options{}), opts)
}

func TestPredictionService_PredictByID(t *testing.T) {
	pipeline := features.NewPipeline(features.Options{})
	model := testModel(t, pipeline)

	tests := []struct {
		name           string
		placeID        string
		mockPlace      models.Place
		mockError      error
		withoutModel   bool
		expectNotFound bool
		expectStatus   models.Status
		expectReason   models.UnknownReason
	}{
		{
			name:         "fresh place with website is open",
			placeID:      "p-fresh",
			mockPlace:    diner("p-fresh", true, 24*time.Hour),
			expectStatus: models.StatusOpen,
		},
		{
			name:         "stale place without website is closed",
			placeID:      "p-stale",
			mockPlace:    diner("p-stale", false, 400*24*time.Hour),
			expectStatus: models.StatusClosed,
		},
		{
			name:           "unknown id",
			placeID:        "missing",
			mockError:      models.ErrNotFound,
			expectNotFound: true,
		},
		{
			name:           "unknown id without model",
			placeID:        "missing",
			mockError:      models.ErrNotFound,
			withoutModel:   true,
			expectNotFound: true,
		},
		{
			name:         "catalog failure",
			placeID:      "p-1",
			mockError:    assert.AnError,
			expectStatus: models.StatusUnknown,
			expectReason: models.ReasonCatalogError,
		},
		{
			name:         "model unavailable",
			placeID:      "p-fresh",
			mockPlace:    diner("p-fresh", true, 24*time.Hour),
			withoutModel: true,
			expectStatus: models.StatusUnknown,
			expectReason: models.ReasonModelUnavailable,
		},
		{
			name:         "too many missing signals",
			placeID:      "p-bare",
			mockPlace:    models.Place{PlaceID: "p-bare", Name: "Somewhere"},
			expectStatus: models.StatusUnknown,
			expectReason: models.ReasonInsufficientSignals,
		},
		{
			name:    "invalid coordinate still predicts",
			placeID: "p-offmap",
			mockPlace: func() models.Place {
				p := diner("p-offmap", true, 24*time.Hour)
				p.Location = &geo.Point{Lat: 200, Lon: 10}
				return p
			}(),
			expectStatus: models.StatusOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockPlaceRepository)
			mockRepo.On("GetByID", mock.Anything, tt.placeID).Return(tt.mockPlace, tt.mockError)

			var classifierModel Classifier = model
			if tt.withoutModel {
				classifierModel = nil
			}
			service := newTestPredictionService(t, mockRepo, classifierModel, PredictionOptions{})

			result, err := service.PredictByID(context.Background(), tt.placeID)
			mockRepo.AssertExpectations(t)

			if tt.expectNotFound {
				assert.ErrorIs(t, err, models.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.placeID, result.PlaceID)
			assert.Equal(t, tt.expectStatus, result.Status)
			assert.Equal(t, tt.expectReason, result.Reason)
			assert.NotEmpty(t, result.Explanation)
			assert.LessOrEqual(t, len(result.Explanation), explain.DefaultMaxItems)

			if tt.expectStatus == models.StatusUnknown {
				assert.Nil(t, result.Confidence)
				assert.Nil(t, result.OpenProbability)
				return
			}
			require.NotNil(t, result.Confidence)
			assert.GreaterOrEqual(t, *result.Confidence, 0.5)
			assert.LessOrEqual(t, *result.Confidence, 1.0)
			assert.Equal(t, "test-v1", result.ModelVersion)
		})
	}
}

func TestPredictionService_StalenessLowersOpenConfidence(t *testing.T) {
	pipeline := features.NewPipeline(features.Options{})
	service := newTestPredictionService(t, new(MockPlaceRepository), testModel(t, pipeline), PredictionOptions{})

	stale := service.PredictPlace(diner("p-1", false, 400*24*time.Hour))
	fresh := service.PredictPlace(diner("p-1", true, 24*time.Hour))

	require.NotNil(t, stale.OpenProbability)
	require.NotNil(t, fresh.OpenProbability)
	assert.Less(t, *stale.OpenProbability, *fresh.OpenProbability)

	assert.Equal(t, []string{
		"Last updated 400 days ago, lowering confidence of being open",
		"No website found, lowering confidence of being open",
	}, stale.Explanation)
	assert.Equal(t, []string{
		"Updated recently, supporting an OPEN signal",
		"Website is listed, supporting an OPEN signal",
	}, fresh.Explanation)
}

func TestPredictionService_ClassifierError(t *testing.T) {
	mockModel := new(MockClassifier)
	mockModel.On("Version").Return("broken").Maybe()
	mockModel.On("Predict", mock.Anything).Return(classifier.Prediction{}, errors.New("boom"))

	service := newTestPredictionService(t, new(MockPlaceRepository), mockModel, PredictionOptions{})
	result := service.PredictPlace(diner("p-1", true, time.Hour))

	assert.Equal(t, models.StatusUnknown, result.Status)
	assert.Equal(t, models.ReasonClassifierError, result.Reason)
	assert.Nil(t, result.Confidence)
	mockModel.AssertExpectations(t)
}

func TestPredictionService_Cache(t *testing.T) {
	mockModel := new(MockClassifier)
	mockModel.On("Version").Return("cached-v1")
	mockModel.On("Predict", mock.Anything).Return(classifier.Prediction{
		Label:           models.StatusOpen,
		OpenProbability: 0.9,
	}, nil).Once()

	service := newTestPredictionService(t, new(MockPlaceRepository), mockModel, PredictionOptions{
		Cache: cache.NewPredictions(time.Minute),
	})

	place := diner("p-1", true, time.Hour)
	first := service.PredictPlace(place)
	second := service.PredictPlace(place)
	assert.Equal(t, first, second)
	assert.Equal(t, models.StatusOpen, second.Status)
	assert.Equal(t, []string{"Model predicts this place is likely open.", "Website is active.", "Recent data updates found."}, second.Explanation)
	mockModel.AssertNumberOfCalls(t, "Predict", 1)

	assert.NoError(t, service.Ready())
	assert.Equal(t, "cached-v1", service.ModelVersion())
}

func TestPredictionService_EmptyID(t *testing.T) {
	mockRepo := new(MockPlaceRepository)
	service := newTestPredictionService(t, mockRepo, nil, PredictionOptions{})

	_, err := service.PredictByID(context.Background(), "  ")
	assert.ErrorIs(t, err, models.ErrNotFound)
	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	assert.ErrorIs(t, service.Ready(), models.ErrModelUnavailable)
	assert.Equal(t, features.NewPipeline(features.Options{}).Schema().Fingerprint(), service.SchemaFingerprint())
	assert.Empty(t, service.ModelVersion())
}

func TestPredictionService_Detail(t *testing.T) {
	pipeline := features.NewPipeline(features.Options{})
	place := diner("p-fresh", true, 24*time.Hour)
	place.Metadata.Address = &models.Address{Locality: "New York", Region: "NY"}

	mockRepo := new(MockPlaceRepository)
	mockRepo.On("GetByID", mock.Anything, "p-fresh").Return(place, nil)
	mockRepo.On("GetByID", mock.Anything, "p-broken").Return(models.Place{}, assert.AnError)
	mockRepo.On("GetByID", mock.Anything, "missing").Return(models.Place{}, models.ErrNotFound)

	service := newTestPredictionService(t, mockRepo, testModel(t, pipeline), PredictionOptions{})

	detail, err := service.Detail(context.Background(), "p-fresh")
	require.NoError(t, err)
	assert.Equal(t, "p-fresh", detail.PlaceID)
	assert.Equal(t, "Joe's Diner", detail.Name)
	assert.Equal(t, "New York, NY", detail.Address)
	assert.Equal(t, models.StatusOpen, detail.Status)
	assert.NotEmpty(t, detail.Explanation)

	broken, err := service.Detail(context.Background(), "p-broken")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, broken.Status)
	assert.Equal(t, "Unknown Location", broken.Address)
	assert.Equal(t, models.ReasonCatalogError, broken.Reason)

	_, err = service.Detail(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
