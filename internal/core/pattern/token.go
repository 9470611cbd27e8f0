// Package pattern parses identifier patterns such as "{COMPANY_ABBR}-{YY}-{####}"
// into ordered segments and renders resolved segments back into identifiers.
//
// The package knows the token vocabulary and the structural rules (exactly one
// counter, scope detection, reset period detection). Looking up abbreviations
// for referenced entities is the caller's job.
package pattern

import "sort"

// Kind classifies a pattern segment.
type Kind int

const (
	// KindLiteral is plain text copied to the output.
	KindLiteral Kind = iota
	// KindEntity resolves to the referenced entity's name.
	KindEntity
	// KindAbbreviation resolves to the referenced entity's abbreviation.
	KindAbbreviation
	// KindTemporal resolves from the generation timestamp.
	KindTemporal
	// KindCounter is the zero-padded sequence number.
	KindCounter
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindEntity:
		return "entity"
	case KindAbbreviation:
		return "abbreviation"
	case KindTemporal:
		return "temporal"
	case KindCounter:
		return "counter"
	default:
		return "unknown"
	}
}

// Entity names the kind of record an entity token refers to.
type Entity string

const (
	EntityCompany        Entity = "company"
	EntityDepartment     Entity = "department"
	EntityBranch         Entity = "branch"
	EntityEmploymentType Entity = "employment_type"
)

// Entities lists all entity kinds in canonical order.
var Entities = []Entity{EntityCompany, EntityDepartment, EntityBranch, EntityEmploymentType}

// Temporal token names.
const (
	TokenYear4 = "YYYY"
	TokenYear2 = "YY"
	TokenMonth = "MM"
	TokenDay   = "DD"
)

type tokenDef struct {
	kind   Kind
	entity Entity
}

var tokens = map[string]tokenDef{
	"COMPANY":              {kind: KindEntity, entity: EntityCompany},
	"COMPANY_ABBR":         {kind: KindAbbreviation, entity: EntityCompany},
	"DEPARTMENT":           {kind: KindEntity, entity: EntityDepartment},
	"DEPARTMENT_ABBR":      {kind: KindAbbreviation, entity: EntityDepartment},
	"BRANCH":               {kind: KindEntity, entity: EntityBranch},
	"BRANCH_ABBR":          {kind: KindAbbreviation, entity: EntityBranch},
	"EMPLOYMENT_TYPE":      {kind: KindEntity, entity: EntityEmploymentType},
	"EMPLOYMENT_TYPE_ABBR": {kind: KindAbbreviation, entity: EntityEmploymentType},
	TokenYear4:             {kind: KindTemporal},
	TokenYear2:             {kind: KindTemporal},
	TokenMonth:             {kind: KindTemporal},
	TokenDay:               {kind: KindTemporal},
}

// KnownTokens returns the names of all recognised non-counter tokens,
// sorted. Validation responses list them next to an unknown token.
func KnownTokens() []string {
	names := make([]string, 0, len(tokens))
	for name := range tokens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Segment is one element of a parsed pattern.
type Segment struct {
	Kind Kind
	// Text is the literal text, or the token name for token segments.
	Text string
	// Entity is set for entity and abbreviation tokens.
	Entity Entity
	// Width is the padding width of the counter token.
	Width int
}

// Scoping reports whether the segment participates in counter scoping
// when it appears before the counter.
func (s Segment) Scoping() bool {
	return s.Kind == KindEntity || s.Kind == KindAbbreviation
}
