package blueprintvalue

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordedValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b RecordedValue
		want bool
	}{
		{"int equal", IntVal(1), IntVal(1), true},
		{"int not equal", IntVal(1), IntVal(2), false},
		{"int vs bool never equal", IntVal(1), BoolVal(true), false},
		{"none equal", None(), None(), true},
		{"string equal", StringVal("a"), StringVal("a"), true},
		{"bytes equal", BytesVal([]byte("ab")), BytesVal([]byte("ab")), true},
		{"bytes length differs", BytesVal([]byte("ab")), BytesVal([]byte("a")), false},
		{
			"list equal",
			ListVal([]RecordedValue{IntVal(1), StringVal("x")}),
			ListVal([]RecordedValue{IntVal(1), StringVal("x")}),
			true,
		},
		{
			"list differs by length",
			ListVal([]RecordedValue{IntVal(1)}),
			ListVal([]RecordedValue{IntVal(1), IntVal(2)}),
			false,
		},
		{
			"dict equal regardless of insertion order",
			DictVal(map[string]RecordedValue{"a": IntVal(1), "b": IntVal(2)}),
			DictVal(map[string]RecordedValue{"b": IntVal(2), "a": IntVal(1)}),
			true,
		},
		{
			"dict missing key",
			DictVal(map[string]RecordedValue{"a": IntVal(1)}),
			DictVal(map[string]RecordedValue{"a": IntVal(1), "b": IntVal(2)}),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    RecordedValue
		want bool
	}{
		{"none", None(), false},
		{"zero int", IntVal(0), false},
		{"nonzero int", IntVal(1), true},
		{"empty string", StringVal(""), false},
		{"nonempty string", StringVal("x"), true},
		{"empty list", ListVal(nil), false},
		{"nonempty list", ListVal([]RecordedValue{IntVal(1)}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsTruthy(); got != tt.want {
				t.Errorf("IsTruthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStringVsRepr(t *testing.T) {
	tests := []struct {
		name       string
		v          RecordedValue
		str, repr  string
	}{
		{"bool true", BoolVal(true), "True", "True"},
		{"float whole", FloatVal(2), "2.0", "2.0"},
		{"string", StringVal("hi"), "hi", `"hi"`},
		{"bytes", BytesVal([]byte("hi")), "hi", `b"hi"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			if got := tt.v.Repr(); got != tt.repr {
				t.Errorf("Repr() = %q, want %q", got, tt.repr)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	base := DictVal(map[string]RecordedValue{
		"items": ListVal([]RecordedValue{IntVal(10), IntVal(20), IntVal(30)}),
	})

	got, ok := ResolvePath(base, []Accessor{FieldAccessor("items"), IndexAccessor(-1)})
	if !ok {
		t.Fatalf("ResolvePath: not found")
	}
	if diff := cmp.Diff(IntVal(30), got); diff != "" {
		t.Errorf("ResolvePath() mismatch (-want +got):\n%s", diff)
	}

	if _, ok := ResolvePath(base, []Accessor{FieldAccessor("missing")}); ok {
		t.Errorf("ResolvePath() found a field that doesn't exist")
	}

	if _, ok := ResolvePath(base, []Accessor{FieldAccessor("items"), IndexAccessor(99)}); ok {
		t.Errorf("ResolvePath() found an out-of-range index")
	}
}

func TestValueRefOpRefs(t *testing.T) {
	ref := ListRef([]ValueRef{
		OpOutput(OpId(1)),
		LiteralInt(5),
		OpOutput(OpId(2), FieldAccessor("x")),
	})
	got := ref.OpRefs()
	want := []OpId{1, 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("OpRefs() mismatch (-want +got):\n%s", diff)
	}
}
