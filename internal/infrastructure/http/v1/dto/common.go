// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorsToProblems converts a list of errors into API problems.
func ErrorsToProblems(errs []error) []Problem {
	out := make([]Problem, 0, len(errs))
	for _, err := range errs {
		out = append(out, NewProblem(err))
	}
	return out
}
