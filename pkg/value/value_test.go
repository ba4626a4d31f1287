package value

import (
	"math"
	"testing"
)

type fakeObj struct {
	next Obj
}

func (f *fakeObj) ObjType() ObjType  { return ObjTypeString }
func (f *fakeObj) Next() Obj         { return f.next }
func (f *fakeObj) SetNext(o Obj)     { f.next = o }
func (f *fakeObj) String() string    { return "<fake>" }

func TestIsFalsey(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", Nil, true},
		{"false", Bool(false), true},
		{"true", Bool(true), false},
		{"zero", Number(0), false},
		{"obj", FromObj(&fakeObj{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFalsey(tt.v); got != tt.want {
				t.Errorf("IsFalsey(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	o := &fakeObj{}
	o2 := &fakeObj{}
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil==nil", Nil, Nil, true},
		{"true==true", Bool(true), Bool(true), true},
		{"true!=false", Bool(true), Bool(false), false},
		{"1==1", Number(1), Number(1), true},
		{"1!=2", Number(1), Number(2), false},
		{"nan!=nan", Number(math.NaN()), Number(math.NaN()), false},
		{"sameObj", FromObj(o), FromObj(o), true},
		{"differentObj", FromObj(o), FromObj(o2), false},
		{"mismatchedTags", Nil, Bool(false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
