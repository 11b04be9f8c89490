package graph

// Kind is the closed set of vertex variants.
type Kind int

// Vertex kinds.
const (
	// Probabilistic vertices draw values from a Distribution over their parents.
	Probabilistic Kind = iota
	// Deterministic vertices compute their value from their parents with an Op.
	Deterministic
	// Constant vertices hold a fixed value and have no parents.
	Constant
	// Placeholder vertices hold a fed value, or mirror a default vertex.
	// They appear in isolated log-probability sub-graphs.
	Placeholder
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Probabilistic:
		return "probabilistic"
	case Deterministic:
		return "deterministic"
	case Constant:
		return "constant"
	case Placeholder:
		return "placeholder"
	default:
		return "unknown"
	}
}
