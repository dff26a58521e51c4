package primitives

import "fmt"

// OpId is an operator identity. The operational variant carries a
// {name, country} pair (e.g. name="T-Mobile", country="DE"); a handful of
// sentinel identities identify network-wide roles rather than a single
// operator. Equality is structural (comparable struct, safe as a map key).
type OpId struct {
	kind    opKind
	Name    string
	Country string
}

type opKind uint8

const (
	opOperator opKind = iota
	opConsortium
	opDevNet
	opTestNet
	opMainNet
)

// Sentinel identities recognized by the global registry.
var (
	Consortium = OpId{kind: opConsortium}
	DevNet     = OpId{kind: opDevNet}
	TestNet    = OpId{kind: opTestNet}
	MainNet    = OpId{kind: opMainNet}
)

// NewOperator builds the operational OpId variant for a named operator in
// a given country.
func NewOperator(name, country string) OpId {
	return OpId{kind: opOperator, Name: name, Country: country}
}

// IsOperator reports whether id is a {name, country} operator rather than
// a sentinel identity.
func (id OpId) IsOperator() bool { return id.kind == opOperator }

// String renders "name:country" for operators and the sentinel name
// otherwise, matching the distilled source's Display impl.
func (id OpId) String() string {
	switch id.kind {
	case opConsortium:
		return "Consortium"
	case opDevNet:
		return "DevNet"
	case opTestNet:
		return "TestNet"
	case opMainNet:
		return "MainNet"
	default:
		return fmt.Sprintf("%s:%s", id.Name, id.Country)
	}
}
