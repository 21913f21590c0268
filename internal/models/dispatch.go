// internal/models/dispatch.go
package models

// DispatchStatus classifies the outcome of one recipient within a dispatch.
type DispatchStatus string

const (
	StatusSent              DispatchStatus = "sent"
	StatusFailed            DispatchStatus = "failed"
	StatusSkippedOutOfRange DispatchStatus = "skipped_out_of_range"
	StatusSkippedNoToken    DispatchStatus = "skipped_no_token"
	StatusSkippedIsAuthor   DispatchStatus = "skipped_is_author"
)

// DispatchResult is the per-recipient outcome of a dispatch invocation.
// Reason is only populated for failed sends.
type DispatchResult struct {
	RecipientID string         `json:"recipientId"`
	Status      DispatchStatus `json:"status"`
	Reason      string         `json:"reason,omitempty"`
}

// PushNotification is one addressed payload handed to the delivery transport.
// Data is opaque metadata for client-side deep linking; the pipeline never
// makes decisions based on it.
type PushNotification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
	Token string            `json:"token"`
}
