// Package tensor provides the dense numeric array the vertex graph computes with.
//
// Every tensor stores float64 elements; the DataType tag records whether the
// values are real, integral or boolean (0/1) so discrete quantities can be
// told apart from continuous ones.
package tensor

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float64 DataType = iota
	Int64
	Bool
)

// IsDiscrete reports whether values of this type are countable.
func (dt DataType) IsDiscrete() bool {
	return dt == Int64 || dt == Bool
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}
