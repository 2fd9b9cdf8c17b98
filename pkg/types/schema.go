package types

// TypeTag identifies a column's on-disk type. The numbering follows the
// legacy engine's column-type bytes.
type TypeTag byte

const (
	TypeBool     TypeTag = 0x01
	TypeByte     TypeTag = 0x02
	TypeInt16    TypeTag = 0x03
	TypeInt32    TypeTag = 0x04
	TypeCurrency TypeTag = 0x05
	TypeFloat32  TypeTag = 0x06
	TypeFloat64  TypeTag = 0x07
	TypeDateTime TypeTag = 0x08
	TypeBinary   TypeTag = 0x09
	TypeText     TypeTag = 0x0A
	TypeOLE      TypeTag = 0x0B
	TypeMemo     TypeTag = 0x0C
	TypeGUID     TypeTag = 0x0F
)

// String returns the conventional name of the type tag.
func (t TypeTag) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeByte:
		return "byte"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeCurrency:
		return "currency"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeDateTime:
		return "datetime"
	case TypeBinary:
		return "binary"
	case TypeText:
		return "text"
	case TypeOLE:
		return "ole"
	case TypeMemo:
		return "memo"
	case TypeGUID:
		return "guid"
	default:
		return "unknown"
	}
}

// CanonicalSize returns the fixed width of scalar types, or 0 for types
// whose width comes from the column definition (text, binary) or that are
// never fixed (ole, memo).
func (t TypeTag) CanonicalSize() int {
	switch t {
	case TypeBool, TypeByte:
		return 1
	case TypeInt16:
		return 2
	case TypeInt32, TypeFloat32:
		return 4
	case TypeCurrency, TypeFloat64, TypeDateTime:
		return 8
	case TypeGUID:
		return 16
	default:
		return 0
	}
}

// ColumnDef describes one column of a table: its type and, for fixed-width
// columns, where its bytes live within a row's fixed region.
type ColumnDef struct {
	// Name is the column name as stored in the table definition
	Name string

	// Type is the on-disk type tag
	Type TypeTag

	// Nullable marks columns that may carry a set null bit
	Nullable bool

	// Variable marks variable-length columns, which the codec reads
	// best-effort and never writes
	Variable bool

	// Offset is the byte offset within the row's fixed region (after the
	// null bitmap); meaningless for variable columns
	Offset uint16

	// Size is the byte width within the fixed region; meaningless for
	// variable columns
	Size uint16
}

// IsFixed reports whether the column occupies a fixed slice of the row.
// OLE and memo columns are always variable regardless of the flag.
func (c ColumnDef) IsFixed() bool {
	return !c.Variable && c.Type != TypeOLE && c.Type != TypeMemo
}
