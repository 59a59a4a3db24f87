package types

import "testing"

func TestParseLogicalType(t *testing.T) {
	cases := map[string]LogicalType{
		"INT": TypeInt32, "INTEGER": TypeInt32,
		"TEXT": TypeUtf8, "STRING": TypeUtf8, "VARCHAR": TypeUtf8,
		"FLOAT": TypeFloat64, "DOUBLE": TypeFloat64,
		"BOOL": TypeBoolean, "BOOLEAN": TypeBoolean,
	}
	for in, want := range cases {
		got, ok := ParseLogicalType(in)
		if !ok || got != want {
			t.Fatalf("ParseLogicalType(%q) = %v,%v want %v", in, got, ok, want)
		}
	}
	if _, ok := ParseLogicalType("NOPE"); ok {
		t.Fatal("expected unknown type to fail")
	}
}

func TestScalarEncodeSortableEquality(t *testing.T) {
	a := Int64(42)
	b := Int64(42)
	c := Int64(43)
	if string(a.EncodeSortable()) != string(b.EncodeSortable()) {
		t.Fatal("equal scalars must encode identically")
	}
	if string(a.EncodeSortable()) == string(c.EncodeSortable()) {
		t.Fatal("distinct scalars must not encode identically")
	}
	if string(Null().EncodeSortable()) == string(Int64(0).EncodeSortable()) {
		t.Fatal("null must be distinguishable from zero value")
	}
}

func TestScalarPromotion(t *testing.T) {
	f, ok := Int32(7).AsFloat64()
	if !ok || f != 7 {
		t.Fatalf("AsFloat64 on int32 = %v,%v", f, ok)
	}
	if _, ok := Utf8("x").AsFloat64(); ok {
		t.Fatal("string must not promote to float64")
	}
}
