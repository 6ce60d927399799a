package dto

// SuccessResponse acknowledges a request that produced no resource, such as a
// webhook event that does not map to a payment
type SuccessResponse struct {
	Message string `json:"message"`
	EventID string `json:"event_id,omitempty"`
}
