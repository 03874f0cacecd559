package expr

// Type names the item type carried by an expression or query source.
//
// Types are nominal: two types are equal when their names (and element
// types, for sequences) are equal. Element is non-nil for sequence types.
type Type struct {
	Name string
	Elem *Type
}

// Built-in scalar types used by constants and operators.
var (
	BoolType   = Type{Name: "bool"}
	IntType    = Type{Name: "int"}
	StringType = Type{Name: "string"}
	NullType   = Type{Name: "null"}
)

// Named returns the scalar or record type with the given name.
func Named(name string) Type {
	return Type{Name: name}
}

// SequenceOf returns the sequence type whose items are elem.
func SequenceOf(elem Type) Type {
	e := elem
	return Type{Name: "seq", Elem: &e}
}

// IsSequence reports whether t is a sequence type.
func (t Type) IsSequence() bool {
	return t.Elem != nil
}

// ElementType returns the item type of a sequence type.
func (t Type) ElementType() (Type, bool) {
	if t.Elem == nil {
		return Type{}, false
	}
	return *t.Elem, true
}

// IsZero reports whether t is the unknown type.
func (t Type) IsZero() bool {
	return t.Name == "" && t.Elem == nil
}

// Equal compares types structurally.
func (t Type) Equal(other Type) bool {
	if t.Name != other.Name {
		return false
	}
	if t.Elem == nil || other.Elem == nil {
		return t.Elem == nil && other.Elem == nil
	}
	return t.Elem.Equal(*other.Elem)
}

func (t Type) String() string {
	if t.Elem != nil {
		return "seq<" + t.Elem.String() + ">"
	}
	if t.Name == "" {
		return "?"
	}
	return t.Name
}
