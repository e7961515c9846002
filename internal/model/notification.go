package model

// Priority levels understood by the service.
const (
	PriorityLow    = -1
	PriorityNormal = 0
	PriorityHigh   = 1
)

// NotificationRequest models a single notification. Zero values mean the
// field is absent; only Message is required.
type NotificationRequest struct {
	Device   string `json:"device" form:"device"`
	Sound    string `json:"sound" form:"sound"`
	Priority int    `json:"priority" form:"priority"`
	Title    string `json:"title" form:"title"`
	Message  string `json:"message" form:"message"`
	URL      string `json:"url" form:"url"`
	URLTitle string `json:"urlTitle" form:"url_title"`
	HTML     bool   `json:"html" form:"html"`
}

// DeliveryResult summarises a send attempt.
type DeliveryResult struct {
	Device      string   `json:"device,omitempty"`
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

const (
	DeliveryStatusSuccess = "SUCCESS"
	DeliveryStatusFailed  = "FAILED"
)
