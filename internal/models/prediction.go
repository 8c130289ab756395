package models

// Status is the predicted operating status of a place.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusClosed  Status = "CLOSED"
	StatusUnknown Status = "UNKNOWN"
)

// UnknownReason says why a prediction degraded to UNKNOWN.
type UnknownReason string

const (
	ReasonModelUnavailable    UnknownReason = "model_unavailable"
	ReasonInsufficientSignals UnknownReason = "insufficient_signals"
	ReasonClassifierError     UnknownReason = "classifier_error"
	ReasonCatalogError        UnknownReason = "catalog_error"
)

// PredictionResult is the outcome of classifying one place. Confidence and
// OpenProbability are nil when Status is UNKNOWN.
type PredictionResult struct {
	PlaceID         string        `json:"place_id"`
	Status          Status        `json:"status"`
	Confidence      *float64      `json:"confidence"`
	OpenProbability *float64      `json:"open_probability,omitempty"`
	Explanation     []string      `json:"explanation"`
	Reason          UnknownReason `json:"reason,omitempty"`
	ModelVersion    string        `json:"model_version,omitempty"`
}

// Unknown builds an UNKNOWN result carrying a single explanatory sentence.
func Unknown(placeID string, reason UnknownReason, explanation string) PredictionResult {
	return PredictionResult{
		PlaceID:     placeID,
		Status:      StatusUnknown,
		Explanation: []string{explanation},
		Reason:      reason,
	}
}

// PlaceDetail is the single-place view: identity, location summary and
// prediction.
type PlaceDetail struct {
	PlaceID      string        `json:"id"`
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	Category     string        `json:"category,omitempty"`
	Status       Status        `json:"status"`
	Confidence   *float64      `json:"confidence"`
	Explanation  []string      `json:"explanation"`
	Reason       UnknownReason `json:"reason,omitempty"`
	ModelVersion string        `json:"model_version,omitempty"`
}

// NewPlaceDetail combines a place with its prediction.
func NewPlaceDetail(place Place, result PredictionResult) PlaceDetail {
	return PlaceDetail{
		PlaceID:      result.PlaceID,
		Name:         place.Name,
		Address:      place.AddressSummary(),
		Category:     place.Category,
		Status:       result.Status,
		Confidence:   result.Confidence,
		Explanation:  result.Explanation,
		Reason:       result.Reason,
		ModelVersion: result.ModelVersion,
	}
}
