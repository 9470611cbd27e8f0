package dto

import (
	"time"

	"staffnum/internal/core/apperror"
	"staffnum/internal/core/id"
	corenumerator "staffnum/internal/core/numerator"
	"staffnum/internal/core/pattern"
	"staffnum/internal/domain/employeeid"
)

// EmployeeDTO references the entities an employee number is built from.
type EmployeeDTO struct {
	ID             string `json:"id"`
	Company        string `json:"company"`
	Department     string `json:"department"`
	Branch         string `json:"branch"`
	EmploymentType string `json:"employment_type"`
}

// ToDomain converts the DTO. An empty or malformed id yields a nil id.
func (e EmployeeDTO) ToDomain() employeeid.Employee {
	emp := employeeid.Employee{
		Company:        e.Company,
		Department:     e.Department,
		Branch:         e.Branch,
		EmploymentType: e.EmploymentType,
	}
	if parsed, err := id.Parse(e.ID); err == nil {
		emp.ID = parsed
	}
	return emp
}

// GenerateRequest is the body of generate and preview calls.
type GenerateRequest struct {
	Employee EmployeeDTO `json:"employee"`
	// Override is a manually entered employee number.
	Override string `json:"override,omitempty"`
	// Pattern replaces the configured pattern for this call.
	Pattern string `json:"pattern,omitempty"`
	// At is the generation time. Empty means now.
	At *time.Time `json:"at,omitempty"`
}

// ToDomain converts the DTO to a generation request.
func (r GenerateRequest) ToDomain() employeeid.Request {
	req := employeeid.Request{
		Employee: r.Employee.ToDomain(),
		Override: r.Override,
	}
	if r.At != nil {
		req.Now = *r.At
	}
	return req
}

// ValidateRequest carries a pattern to validate.
type ValidateRequest struct {
	Pattern string `json:"pattern"`
}

// Problem is one validation finding.
type Problem struct {
	Code    string         `json:"code" yaml:"code"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// NewProblem converts an error into a Problem.
func NewProblem(err error) Problem {
	if appErr, ok := apperror.AsAppError(err); ok {
		return Problem{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	}
	return Problem{Code: apperror.CodeValidation, Message: err.Error()}
}

// ValidateResponse lists every problem found in a pattern.
type ValidateResponse struct {
	Valid    bool      `json:"valid" yaml:"valid"`
	Pattern  string    `json:"pattern" yaml:"pattern"`
	Problems []Problem `json:"problems" yaml:"problems"`
	// KnownTokens is filled when a problem names an unknown token.
	KnownTokens []string `json:"known_tokens,omitempty" yaml:"known_tokens,omitempty"`
}

// NewValidateResponse builds the response for the problems found in raw.
func NewValidateResponse(raw string, errs []error) ValidateResponse {
	resp := ValidateResponse{
		Valid:    len(errs) == 0,
		Pattern:  raw,
		Problems: ErrorsToProblems(errs),
	}
	for _, err := range errs {
		if apperror.IsUnknownToken(err) {
			resp.KnownTokens = pattern.KnownTokens()
			break
		}
	}
	return resp
}

// CountersResponse lists counter records.
type CountersResponse struct {
	Counters []corenumerator.Record `json:"counters"`
}

// CheckResponse lists abbreviation warnings.
type CheckResponse struct {
	Warnings []employeeid.AbbreviationWarning `json:"warnings"`
}
