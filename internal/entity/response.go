package entity

// ErrorResponse is the single error object every JSON endpoint renders.
type ErrorResponse struct {
	Error string `json:"error"`
}
