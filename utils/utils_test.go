package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0x0104", 260, true},
		{"0XFFFF", 65535, true},
		{"0xffff", 65535, true},
		{"0", 0, true},
		{"70000", 70000, true},
		{"-3", -3, true},
		{"0x", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"0x1G", 0, false},
		{" 1", 0, false},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseNumber(c.in)
			if !c.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange[int64](0, 0, 65535))
	assert.True(t, InRange[int64](65535, 0, 65535))
	assert.False(t, InRange[int64](65536, 0, 65535))
	assert.False(t, InRange(-0.5, 0, 1))
}

func TestCircularBuffer(t *testing.T) {
	t.Run("Should keep insertion order before wrapping", func(t *testing.T) {
		cb := NewCircularBuffer[int](3)
		cb.Add(1)
		cb.Add(2)
		assert.Equal(t, []int{1, 2}, cb.GetAll())
		assert.Equal(t, 2, cb.Len())
	})

	t.Run("Should drop the oldest items when full", func(t *testing.T) {
		cb := NewCircularBuffer[int](3)
		for i := 1; i <= 5; i++ {
			cb.Add(i)
		}
		assert.Equal(t, []int{3, 4, 5}, cb.GetAll())
		assert.Equal(t, 3, cb.Len())
	})

	t.Run("Should clamp the size to one", func(t *testing.T) {
		cb := NewCircularBuffer[string](0)
		cb.Add("a")
		cb.Add("b")
		assert.Equal(t, []string{"b"}, cb.GetAll())
	})
}

func TestDifferenceBy(t *testing.T) {
	id := func(s string) string { return s }

	added, removed := DifferenceBy([]string{"a", "b", "c"}, []string{"c", "a", "d"}, id)
	assert.Equal(t, []string{"d"}, added)
	assert.Equal(t, []string{"b"}, removed)

	assert.True(t, EqualBy([]string{"a", "b"}, []string{"a", "b"}, id))
	assert.False(t, EqualBy([]string{"a", "b"}, []string{"b", "a"}, id))
	assert.False(t, EqualBy([]string{"a"}, nil, id))
}

func TestCallWithRecover(t *testing.T) {
	t.Run("Should convert panics to errors", func(t *testing.T) {
		err := CallWithRecover(func() error { panic("boom") })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("Should pass errors through", func(t *testing.T) {
		want := errors.New("plain")
		assert.Equal(t, want, CallWithRecover(func() error { return want }))
	})

	t.Run("Should keep panicked errors", func(t *testing.T) {
		err := CallWithRecover(func() error { panic(errors.New("inner")) })
		assert.ErrorContains(t, err, "inner")
	})
}

func TestGenId(t *testing.T) {
	a, b := GenId(), GenId()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")
}
