package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_Defaults(t *testing.T) {
	s := New(0)
	defer s.Close()

	id := s.Add("Saved", "", 0)
	require.NotEmpty(t, id)

	toasts := s.List()
	require.Len(t, toasts, 1)
	assert.Equal(t, Info, toasts[0].Severity)
	assert.Equal(t, DefaultTTL, toasts[0].TTL)
}

func TestAdd_ExpiresAfterTTL(t *testing.T) {
	s := New(0)
	defer s.Close()

	id := s.Add("Investment created", Success, 100*time.Millisecond)
	require.Len(t, s.List(), 1)
	assert.Equal(t, id, s.List()[0].ID)

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, s.List())
}

func TestRemove_Idempotent(t *testing.T) {
	s := New(0)
	defer s.Close()

	keep := s.Add("keep", Info, -1)
	drop := s.Add("drop", Warning, -1)

	s.Remove(drop)
	s.Remove(drop)
	s.Remove("unknown")

	toasts := s.List()
	require.Len(t, toasts, 1)
	assert.Equal(t, keep, toasts[0].ID)
}

func TestAdd_DropsOldestBeyondCap(t *testing.T) {
	s := New(3)
	defer s.Close()

	var ids []string
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		ids = append(ids, s.Add(msg, Info, -1))
	}

	toasts := s.List()
	require.Len(t, toasts, 3)
	assert.Equal(t, []string{"c", "d", "e"}, []string{toasts[0].Message, toasts[1].Message, toasts[2].Message})
	assert.Equal(t, ids[2], toasts[0].ID)
}

func TestSubscribe(t *testing.T) {
	s := New(0)
	defer s.Close()

	var sizes []int
	unsubscribe := s.Subscribe(func(toasts []Toast) { sizes = append(sizes, len(toasts)) })

	id := s.Add("one", Error, -1)
	s.Remove(id)
	unsubscribe()
	s.Add("two", Error, -1)

	assert.Equal(t, []int{1, 0}, sizes)
}
