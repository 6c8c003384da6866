package graph

type RelationKind string

const (
	// RelationUsesType links a component to the owner of a type it references.
	RelationUsesType RelationKind = "uses_type"
)

type UnresolvedReason string

const (
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	ReasonAmbiguous   UnresolvedReason = "ambiguous"
)

// Unresolved is a referenced identifier that could not be attributed to
// exactly one component.
type Unresolved struct {
	From       string           `json:"from"`
	Identifier string           `json:"identifier"`
	Reason     UnresolvedReason `json:"reason"`
	Candidates []string         `json:"candidates,omitempty"`
}
