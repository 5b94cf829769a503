package rest

// ErrorResponse is the JSON envelope returned by handlers on 4xx/5xx.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
