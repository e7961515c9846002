package model

// Sound is an alert tone recognised by the service.
type Sound struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
