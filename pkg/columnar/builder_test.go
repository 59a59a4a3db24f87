package columnar

import (
	"testing"

	"github.com/htapcore/engine/pkg/types"
)

func testFields() []FieldDef {
	return []FieldDef{
		{Name: "id", Type: types.TypeInt64},
		{Name: "name", Type: types.TypeUtf8},
		{Name: "active", Type: types.TypeBoolean},
	}
}

func TestRowBuilderAppendAndRecord(t *testing.T) {
	b := NewRowBuilder(testFields())

	if err := b.Append([]types.Scalar{types.Int64(1), types.Utf8("alice"), types.Boolean(true)}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := b.Append([]types.Scalar{types.Int64(2), types.Null(), types.Boolean(false)}); err != nil {
		t.Fatalf("Append with null failed: %v", err)
	}

	rec := b.NewRecord()
	defer rec.Release()

	if rec.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", rec.NumRows())
	}
	if rec.NumCols() != 3 {
		t.Fatalf("NumCols = %d, want 3", rec.NumCols())
	}
}

func TestRowBuilderRejectsWrongWidth(t *testing.T) {
	b := NewRowBuilder(testFields())
	if err := b.Append([]types.Scalar{types.Int64(1)}); err == nil {
		t.Fatal("expected error for wrong row width")
	}
}

func TestRowBuilderRejectsTypeMismatch(t *testing.T) {
	b := NewRowBuilder(testFields())
	if err := b.Append([]types.Scalar{types.Utf8("nope"), types.Utf8("x"), types.Boolean(true)}); err == nil {
		t.Fatal("expected error for scalar type mismatch")
	}
}
