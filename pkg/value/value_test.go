package value_test

import (
	"testing"

	"esrt/pkg/value"
	"github.com/stretchr/testify/require"
)

func TestIndexFormCanonicalization(t *testing.T) {
	cases := []struct {
		s       string
		idx     int64
		isIndex bool
	}{
		{"0", 0, true},
		{"1", 1, true},
		{"42", 42, true},
		{"-1", 0, false},
		{"01", 0, false},
		{"1.5", 0, false},
		{"foo", 0, false},
		{"9007199254740991", 9007199254740991, true}, // 2^53-1
	}
	for _, c := range cases {
		is := value.Intern(c.s)
		idx, ok := is.IndexForm()
		require.Equal(t, c.isIndex, ok, c.s)
		if ok {
			require.Equal(t, c.idx, idx, c.s)
		}
	}
}

func TestIndexFormIdempotent(t *testing.T) {
	is := value.Intern("123")
	idx1, ok1 := is.IndexForm()
	idx2, ok2 := is.IndexForm()
	require.Equal(t, ok1, ok2)
	require.Equal(t, idx1, idx2)
}

func TestInternReusesCell(t *testing.T) {
	a := value.Intern("hello")
	b := value.Intern("hello")
	require.Same(t, a, b)
}

func TestToBoolean(t *testing.T) {
	require.False(t, value.Undefined.ToBoolean())
	require.False(t, value.Null.ToBoolean())
	require.False(t, value.Number(0).ToBoolean())
	require.True(t, value.Number(1).ToBoolean())
	require.False(t, value.Str("").ToBoolean())
	require.True(t, value.Str("x").ToBoolean())
	require.True(t, value.True.ToBoolean())
	require.False(t, value.False.ToBoolean())
}

func TestSameValueZeroNaN(t *testing.T) {
	nan := value.Number(nan())
	require.True(t, value.SameValueZero(nan, nan))
}

func nan() float64 {
	var zero float64
	return zero / zero
}
