package extractor

import "errors"

// DeclKind is the declared mutability of a constant.
type DeclKind string

const (
	KindConst DeclKind = "const"
	KindFinal DeclKind = "final"
)

// Declaration is one `[static] const|final [Type] name = value;` statement.
type Declaration struct {
	Name  string   `json:"name"`
	Type  string   `json:"type,omitempty"`
	Value string   `json:"value"`
	Kind  DeclKind `json:"kind"`
	// Static is true for class members; false for top-level declarations.
	Static bool `json:"static"`
	Line   int  `json:"line"`
}

// Module is what a foundation source file yields: the first declared class
// and its constant declarations in source order.
type Module struct {
	Path         string        `json:"path"`
	ClassName    string        `json:"class_name"`
	Declarations []Declaration `json:"declarations"`
	Strategy     string        `json:"strategy"`
}

// Strategy extracts a Module from Dart source. Implementations are
// interchangeable; an Extractor tries them in order.
type Strategy interface {
	Name() string
	Extract(src []byte) (*Module, error)
}

var (
	ErrNoClass    = errors.New("no class declaration found")
	ErrUnbalanced = errors.New("unbalanced braces")
)
