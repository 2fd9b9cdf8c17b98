package rowcodec

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/mnybridge/mnybridge/pkg/types"
)

// TestProperty_FixedRowRoundTrip validates that encode(decode(row))
// reproduces the fixed-field bytes exactly for rows of scalar fields.
func TestProperty_FixedRowRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	cols := []types.ColumnDef{
		{Name: "id", Type: types.TypeInt32, Offset: 0, Size: 4},
		{Name: "amt", Type: types.TypeCurrency, Offset: 4, Size: 8},
		{Name: "flag", Type: types.TypeBool, Offset: 12, Size: 1},
		{Name: "sub", Type: types.TypeInt16, Nullable: true, Offset: 13, Size: 2},
	}
	cd := Codec{Location: time.UTC}

	properties.Property("scalar rows survive decode/encode byte-exactly", prop.ForAll(
		func(id int32, scaled int64, flag bool, sub int16, subNull bool) bool {
			in := Fields{
				"id":   id,
				"amt":  types.Amount(scaled),
				"flag": flag,
			}
			if !subNull {
				in["sub"] = sub
			}

			row, err := cd.Encode(cols, in)
			if err != nil {
				return false
			}
			decoded, err := cd.Decode(cols, row)
			if err != nil {
				return false
			}
			again, err := cd.Encode(cols, decoded)
			if err != nil {
				return false
			}
			if len(row) != len(again) {
				return false
			}
			for i := range row {
				if row[i] != again[i] {
					return false
				}
			}
			return true
		},
		gen.Int32(),
		gen.Int64(),
		gen.Bool(),
		gen.Int16(),
		gen.Bool(),
	))

	properties.Property("currency decode matches scaled integer division", prop.ForAll(
		func(scaled int64) bool {
			row, err := cd.Encode(
				[]types.ColumnDef{{Name: "amt", Type: types.TypeCurrency, Offset: 0, Size: 8}},
				Fields{"amt": types.Amount(scaled)},
			)
			if err != nil {
				return false
			}
			out, err := cd.Decode(
				[]types.ColumnDef{{Name: "amt", Type: types.TypeCurrency, Offset: 0, Size: 8}},
				row,
			)
			if err != nil {
				return false
			}
			return int64(out.Amount("amt")) == scaled
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
