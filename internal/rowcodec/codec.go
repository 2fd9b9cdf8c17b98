// Package rowcodec decodes data-page rows into typed values and encodes
// typed values back into row bytes. A row is an 8-byte little-endian null
// bitmap followed by fixed-length fields at their declared offsets.
// Variable-length columns are skipped on decode and refused on encode.
package rowcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/pkg/types"
)

// BitmapSize is the width of the null-bitmap prefix: one bit per field,
// little-endian bit order, capped at 64 fields.
const BitmapSize = 8

// MaxColumns is the most fields one row can carry.
const MaxColumns = BitmapSize * 8

// Codec decodes and encodes rows. Location is the timezone the file's
// wall-clock datetimes are interpreted in; it is established out-of-band
// once per container and is required whenever a datetime column is touched.
// There is deliberately no default.
type Codec struct {
	Location *time.Location
}

// Fields holds one row's decoded values keyed by column name. Null fields
// and variable-length fields are absent from the map.
type Fields map[string]any

// Decode reads a row against the declared column list.
func (c Codec) Decode(cols []types.ColumnDef, row []byte) (Fields, error) {
	if len(cols) > MaxColumns {
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("%d columns exceed the %d-bit null bitmap", len(cols), MaxColumns))
	}
	if len(row) < BitmapSize {
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("row of %d bytes is shorter than the null bitmap", len(row)))
	}

	bitmap := binary.LittleEndian.Uint64(row)
	fixed := row[BitmapSize:]
	out := make(Fields, len(cols))

	for i, col := range cols {
		if !col.IsFixed() {
			continue
		}
		if bitmap&(1<<uint(i)) != 0 {
			continue // null
		}
		end := int(col.Offset) + int(col.Size)
		if end > len(fixed) {
			return nil, errors.NewInvalidFormat(
				fmt.Sprintf("column %q spans [%d,%d) past row end %d", col.Name, col.Offset, end, len(fixed)))
		}
		v, err := c.decodeValue(col, fixed[col.Offset:end])
		if err != nil {
			return nil, err
		}
		out[col.Name] = v
	}
	return out, nil
}

// Encode mirrors Decode: the null bitmap is built from which fields are
// absent, then fixed fields are emitted in declared order. A value supplied
// for a variable-length column is an error, never a silent drop.
func (c Codec) Encode(cols []types.ColumnDef, fields Fields) ([]byte, error) {
	if len(cols) > MaxColumns {
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("%d columns exceed the %d-bit null bitmap", len(cols), MaxColumns))
	}

	width := 0
	for _, col := range cols {
		if col.IsFixed() {
			if end := int(col.Offset) + int(col.Size); end > width {
				width = end
			}
		}
	}

	row := make([]byte, BitmapSize+width)
	var bitmap uint64

	for i, col := range cols {
		v, present := fields[col.Name]
		if !col.IsFixed() {
			if present {
				return nil, errors.NewInvalidFormat(
					fmt.Sprintf("column %q is variable-length; the encoder does not emit it", col.Name))
			}
			bitmap |= 1 << uint(i)
			continue
		}
		if !present {
			if !col.Nullable {
				return nil, errors.NewInvalidFormat(
					fmt.Sprintf("column %q is not nullable and has no value", col.Name))
			}
			bitmap |= 1 << uint(i)
			continue
		}
		dst := row[BitmapSize+int(col.Offset) : BitmapSize+int(col.Offset)+int(col.Size)]
		if err := c.encodeValue(col, v, dst); err != nil {
			return nil, err
		}
	}

	binary.LittleEndian.PutUint64(row, bitmap)
	return row, nil
}

func (c Codec) decodeValue(col types.ColumnDef, raw []byte) (any, error) {
	if want := col.Type.CanonicalSize(); want != 0 && len(raw) != want {
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("column %q: %s field has size %d, want %d", col.Name, col.Type, len(raw), want))
	}
	switch col.Type {
	case types.TypeBool:
		return raw[0] != 0, nil
	case types.TypeByte:
		return raw[0], nil
	case types.TypeInt16:
		return int16(binary.LittleEndian.Uint16(raw)), nil
	case types.TypeInt32:
		return int32(binary.LittleEndian.Uint32(raw)), nil
	case types.TypeCurrency:
		return types.Amount(binary.LittleEndian.Uint64(raw)), nil
	case types.TypeFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(raw)), nil
	case types.TypeFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
	case types.TypeDateTime:
		return c.decodeDateTime(col, raw)
	case types.TypeBinary:
		return append([]byte(nil), raw...), nil
	case types.TypeText:
		return string(bytes.TrimRight(raw, "\x00")), nil
	case types.TypeGUID:
		return types.DecodeGUID(raw)
	default:
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("column %q has unknown type tag 0x%02X", col.Name, byte(col.Type)))
	}
}

func (c Codec) encodeValue(col types.ColumnDef, v any, dst []byte) error {
	if want := col.Type.CanonicalSize(); want != 0 && len(dst) != want {
		return errors.NewInvalidFormat(
			fmt.Sprintf("column %q: %s field has size %d, want %d", col.Name, col.Type, len(dst), want))
	}
	mismatch := func() error {
		return errors.NewInvalidFormat(
			fmt.Sprintf("column %q: value of type %T does not match %s", col.Name, v, col.Type))
	}
	switch col.Type {
	case types.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return mismatch()
		}
		if b {
			dst[0] = 0xFF
		} else {
			dst[0] = 0x00
		}
	case types.TypeByte:
		b, ok := v.(byte)
		if !ok {
			return mismatch()
		}
		dst[0] = b
	case types.TypeInt16:
		n, ok := v.(int16)
		if !ok {
			return mismatch()
		}
		binary.LittleEndian.PutUint16(dst, uint16(n))
	case types.TypeInt32:
		n, ok := v.(int32)
		if !ok {
			return mismatch()
		}
		binary.LittleEndian.PutUint32(dst, uint32(n))
	case types.TypeCurrency:
		a, ok := v.(types.Amount)
		if !ok {
			return mismatch()
		}
		binary.LittleEndian.PutUint64(dst, uint64(a))
	case types.TypeFloat32:
		f, ok := v.(float32)
		if !ok {
			return mismatch()
		}
		binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
	case types.TypeFloat64:
		f, ok := v.(float64)
		if !ok {
			return mismatch()
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(f))
	case types.TypeDateTime:
		t, ok := v.(time.Time)
		if !ok {
			return mismatch()
		}
		days, err := c.encodeDateTime(col, t)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(days))
	case types.TypeBinary:
		b, ok := v.([]byte)
		if !ok {
			return mismatch()
		}
		if len(b) > len(dst) {
			return errors.NewInvalidFormat(
				fmt.Sprintf("column %q: %d bytes exceed fixed size %d", col.Name, len(b), len(dst)))
		}
		copy(dst, b)
	case types.TypeText:
		s, ok := v.(string)
		if !ok {
			return mismatch()
		}
		if len(s) > len(dst) {
			return errors.NewInvalidFormat(
				fmt.Sprintf("column %q: %d bytes exceed fixed size %d", col.Name, len(s), len(dst)))
		}
		copy(dst, s)
	case types.TypeGUID:
		g, ok := v.(types.GUID)
		if !ok {
			return mismatch()
		}
		copy(dst, g.Encode())
	default:
		return errors.NewInvalidFormat(
			fmt.Sprintf("column %q has unknown type tag 0x%02X", col.Name, byte(col.Type)))
	}
	return nil
}

// dateEpoch is day zero of the datetime encoding: 1899-12-30 00:00:00
// wall clock in the file's zone.
func dateEpoch(loc *time.Location) time.Time {
	return time.Date(1899, time.December, 30, 0, 0, 0, 0, loc)
}

func (c Codec) decodeDateTime(col types.ColumnDef, raw []byte) (time.Time, error) {
	if c.Location == nil {
		return time.Time{}, errors.NewInvalidFormat(
			fmt.Sprintf("column %q: datetime decode requires the file's timezone", col.Name))
	}
	days := math.Float64frombits(binary.LittleEndian.Uint64(raw))
	ns := math.Round(days * 24 * float64(time.Hour))
	return dateEpoch(c.Location).Add(time.Duration(ns)), nil
}

func (c Codec) encodeDateTime(col types.ColumnDef, t time.Time) (float64, error) {
	if c.Location == nil {
		return 0, errors.NewInvalidFormat(
			fmt.Sprintf("column %q: datetime encode requires the file's timezone", col.Name))
	}
	elapsed := t.Sub(dateEpoch(c.Location))
	return elapsed.Hours() / 24, nil
}
