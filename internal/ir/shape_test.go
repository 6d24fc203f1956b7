package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeBasics(t *testing.T) {
	s := Static(3, 2)
	require.True(t, s.HasRank())
	assert.Equal(t, 2, s.Rank())
	assert.True(t, s.IsStatic())
	assert.Equal(t, []Dim{3, 2}, s.Dims())

	n, ok := s.NumElements()
	require.True(t, ok)
	assert.Equal(t, int64(6), n)
}

func TestShapeScalar(t *testing.T) {
	s := ScalarShape()
	require.True(t, s.HasRank())
	assert.Equal(t, 0, s.Rank())
	assert.True(t, s.IsScalar())
	assert.True(t, s.IsStatic())

	n, ok := s.NumElements()
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
}

func TestShapePartial(t *testing.T) {
	s := MakeShape(4, DynamicDim, 7)
	require.True(t, s.HasRank())
	assert.Equal(t, 3, s.Rank())
	assert.False(t, s.IsStatic())
	assert.False(t, s.IsScalar())

	_, ok := s.NumElements()
	assert.False(t, ok)
}

func TestShapeDynamicRank(t *testing.T) {
	s := DynamicShape()
	require.False(t, s.HasRank())
	assert.False(t, s.IsStatic())
	assert.Nil(t, s.Dims())
	assert.Panics(t, func() { s.Rank() })
	assert.Panics(t, func() { s.Dim(0) })
}

func TestShapeEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Shape
		want bool
	}{
		{"static equal", Static(3, 2), Static(3, 2), true},
		{"static different", Static(3, 2), Static(2, 3), false},
		{"rank mismatch", Static(3), Static(3, 1), false},
		{"partial equal", MakeShape(DynamicDim, 2), MakeShape(DynamicDim, 2), true},
		{"partial vs static", MakeShape(DynamicDim, 2), Static(3, 2), false},
		{"dynamic rank equal", DynamicShape(), DynamicShape(), true},
		{"dynamic rank vs ranked", DynamicShape(), Static(1), false},
		{"scalars", ScalarShape(), MakeShape(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "[3,2]", Static(3, 2).String())
	assert.Equal(t, "[2,?,3]", MakeShape(2, DynamicDim, 3).String())
	assert.Equal(t, "[]", ScalarShape().String())
	assert.Equal(t, "[*]", DynamicShape().String())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Shape
		want    Shape
		wantErr bool
	}{
		{name: "same", a: Static(3, 2), b: Static(3, 2), want: Static(3, 2)},
		{name: "scalar left", a: ScalarShape(), b: Static(3, 2), want: Static(3, 2)},
		{name: "scalar right", a: Static(3, 2), b: ScalarShape(), want: Static(3, 2)},
		{name: "ones stretch", a: Static(3, 1), b: Static(1, 4), want: Static(3, 4)},
		{name: "rank extend", a: Static(5, 3, 2), b: Static(2), want: Static(5, 3, 2)},
		{name: "dynamic dim adopts peer", a: MakeShape(DynamicDim, 2), b: Static(3, 2), want: Static(3, 2)},
		{name: "dynamic both", a: MakeShape(DynamicDim, 2), b: MakeShape(DynamicDim, 2), want: MakeShape(DynamicDim, 2)},
		{name: "dynamic rank wins", a: DynamicShape(), b: Static(3, 2), want: DynamicShape()},
		{name: "mismatch", a: Static(3, 2), b: Static(4, 2), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}
