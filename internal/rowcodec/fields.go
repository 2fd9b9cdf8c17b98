package rowcodec

import (
	"time"

	"github.com/mnybridge/mnybridge/pkg/types"
)

// Typed accessors for decoded fields. Each returns the zero value when the
// field is absent (null) or holds a different type; the pointer variants
// distinguish null from zero.

// Has reports whether the field carries a non-null value.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Int32 returns the named int32 field, or 0.
func (f Fields) Int32(name string) int32 {
	v, _ := f[name].(int32)
	return v
}

// Int32Ptr returns the named int32 field, or nil when it is null.
func (f Fields) Int32Ptr(name string) *int32 {
	if v, ok := f[name].(int32); ok {
		return &v
	}
	return nil
}

// Bool returns the named boolean field, or false.
func (f Fields) Bool(name string) bool {
	v, _ := f[name].(bool)
	return v
}

// String returns the named text field, or "".
func (f Fields) String(name string) string {
	v, _ := f[name].(string)
	return v
}

// Amount returns the named currency field, or 0.
func (f Fields) Amount(name string) types.Amount {
	v, _ := f[name].(types.Amount)
	return v
}

// Time returns the named datetime field, or the zero time.
func (f Fields) Time(name string) time.Time {
	v, _ := f[name].(time.Time)
	return v
}

// GUID returns the named GUID field, or the zero GUID.
func (f Fields) GUID(name string) types.GUID {
	v, _ := f[name].(types.GUID)
	return v
}
