package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
	assert.Panics(t, func() { New[int](-1) })
}

func TestPushBack(t *testing.T) {
	b := New[int](3)

	assert.True(t, b.PushBack(1))
	assert.True(t, b.PushBack(2))
	assert.True(t, b.PushBack(3))
	assert.False(t, b.PushBack(4), "push into full buffer must fail")
	assert.Equal(t, 3, b.Len())

	for i, want := range []int{1, 2, 3} {
		got, err := b.At(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPopFront(t *testing.T) {
	b := New[int](2)

	err := b.PopFront()
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, 0, b.Len())

	b.PushBack(10)
	b.PushBack(20)
	require.NoError(t, b.PopFront())

	got, err := b.Front()
	require.NoError(t, err)
	assert.Equal(t, 20, got)
	assert.Equal(t, 1, b.Len())
}

func TestAt_OutOfRange(t *testing.T) {
	b := New[int](4)
	b.PushBack(1)
	b.PushBack(2)

	tests := []struct {
		name string
		pos  int
	}{
		{name: "negative", pos: -1},
		{name: "equal to size", pos: 2},
		{name: "beyond capacity", pos: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.At(tt.pos)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestFill(t *testing.T) {
	b := New[float32](5)
	b.PushBack(1)
	b.PushBack(2)
	_ = b.PopFront()

	b.Fill(7.5)

	assert.Equal(t, 5, b.Len())
	assert.True(t, b.Full())
	for i := range 5 {
		got, err := b.At(i)
		require.NoError(t, err)
		assert.Equal(t, float32(7.5), got)
	}
	assert.False(t, b.PushBack(1))
}

func TestPushBackEvictOldest(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 3; i++ {
		b.PushBack(i)
	}

	b.PushBackEvictOldest(4)

	assert.Equal(t, 3, b.Len())
	front, err := b.Front()
	require.NoError(t, err)
	assert.Equal(t, 2, front, "previously oldest element must be gone")
	back, err := b.Back()
	require.NoError(t, err)
	assert.Equal(t, 4, back)
}

func TestPushBackEvictOldest_NotFull(t *testing.T) {
	b := New[int](3)
	b.PushBackEvictOldest(1)
	b.PushBackEvictOldest(2)

	assert.Equal(t, []int{1, 2}, b.Snapshot(nil))
}

func TestInvariant_MixedOperations(t *testing.T) {
	const n = 4
	b := New[int](n)

	// deterministic mix of all mutating operations
	for i := range 200 {
		switch i % 7 {
		case 0, 3:
			b.PushBack(i)
		case 1, 5:
			b.PushBackEvictOldest(i)
		case 2:
			_ = b.PopFront()
		case 4:
			_ = b.PopFront()
			_ = b.PopFront()
		case 6:
			if i%21 == 6 {
				b.Fill(i)
			}
		}
		require.GreaterOrEqual(t, b.Len(), 0)
		require.LessOrEqual(t, b.Len(), n)
	}
}

func TestSnapshot_Wrapped(t *testing.T) {
	b := New[int](4)
	for i := range 6 {
		b.PushBackEvictOldest(i)
	}

	dst := make([]int, 0, 8)
	got := b.Snapshot(dst)

	assert.Equal(t, []int{2, 3, 4, 5}, got)
	assert.Equal(t, 8, cap(got), "dst with enough capacity should be reused")
}

func TestSnapshot_Empty(t *testing.T) {
	b := New[string](2)
	assert.Empty(t, b.Snapshot(nil))
}
