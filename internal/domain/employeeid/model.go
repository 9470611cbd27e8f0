// Package employeeid assigns unique, human-readable employee numbers from a
// configurable token pattern.
//
// A pattern such as "{COMPANY_ABBR}-{YY}-{####}" is resolved against the
// employee's references and the request time, a counter value is allocated
// for the (scope, period) the pattern implies, and the rendered candidate is
// checked for uniqueness before it is returned.
package employeeid

import (
	"context"
	"time"

	"staffnum/internal/core/id"
	"staffnum/internal/core/pattern"
)

// MaxAttempts bounds the collision retry loop of Generate.
const MaxAttempts = 100

// MaxOverrideLength is the longest manual employee number accepted.
const MaxOverrideLength = 140

// Employee references the entities an employee number can be built from.
// Entity references are names; empty means "not set".
type Employee struct {
	ID             id.ID  `json:"id" yaml:"id"`
	Company        string `json:"company" yaml:"company"`
	Department     string `json:"department" yaml:"department"`
	Branch         string `json:"branch" yaml:"branch"`
	EmploymentType string `json:"employment_type" yaml:"employment_type"`
}

// EntityName returns the referenced entity name for kind.
func (e Employee) EntityName(kind pattern.Entity) string {
	switch kind {
	case pattern.EntityCompany:
		return e.Company
	case pattern.EntityDepartment:
		return e.Department
	case pattern.EntityBranch:
		return e.Branch
	case pattern.EntityEmploymentType:
		return e.EmploymentType
	default:
		return ""
	}
}

// Request is a single generation request. It is never persisted.
type Request struct {
	Employee Employee
	// Override is a manually entered employee number.
	Override string
	// Now is the generation timestamp. Zero means time.Now().
	Now time.Time
}

// Result describes an issued (or previewed) employee number.
type Result struct {
	EmployeeNumber string `json:"employee_number" yaml:"employee_number"`
	Pattern        string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Scope          string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Period         string `json:"period,omitempty" yaml:"period,omitempty"`
	Counter        int64  `json:"counter,omitempty" yaml:"counter,omitempty"`
	Attempts       int    `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Override       bool   `json:"override,omitempty" yaml:"override,omitempty"`
}

// DirectoryEntry is one entity known to the directory, with its custom
// abbreviation if any.
type DirectoryEntry struct {
	Name         string `db:"name" json:"name" yaml:"name"`
	Abbreviation string `db:"abbreviation" json:"abbreviation,omitempty" yaml:"abbr,omitempty"`
}

// AbbreviationSource reads the custom abbreviation field of an entity.
// An empty result means the entity has none (or does not exist).
type AbbreviationSource interface {
	Abbreviation(ctx context.Context, kind pattern.Entity, name string) (string, error)
}

// UniquenessChecker reports whether an employee number is already taken.
// With ignoreCase, "emp-0001" and "EMP-0001" are the same number.
type UniquenessChecker interface {
	Exists(ctx context.Context, number string, ignoreCase bool) (bool, error)
}

// EntityLister lists the known entities of one kind.
type EntityLister interface {
	Entities(ctx context.Context, kind pattern.Entity) ([]DirectoryEntry, error)
}

// NumberLister lists every employee number already in use.
type NumberLister interface {
	Numbers(ctx context.Context) ([]string, error)
}

// Directory is everything the service needs from the employee records system.
type Directory interface {
	AbbreviationSource
	UniquenessChecker
	EntityLister
	NumberLister
}
