package theme

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvest-dev/coinvest/internal/cli/storage"
)

type fakeRoot struct {
	attrs map[string]string
}

func (r *fakeRoot) SetAttribute(name, value string) {
	if r.attrs == nil {
		r.attrs = make(map[string]string)
	}
	r.attrs[name] = value
}

func TestNew_DefaultsToDark(t *testing.T) {
	root := &fakeRoot{}
	s := New(storage.NewBridge(storage.NewMemoryBackend(), zerolog.Nop()), root, zerolog.Nop())
	defer s.Close()

	assert.Equal(t, Dark, s.Current())
	assert.Equal(t, "dark", root.attrs[Attribute])
}

func TestNew_IgnoresInvalidPersistedValue(t *testing.T) {
	b := storage.NewBridge(storage.NewMemoryBackend(), zerolog.Nop())
	b.Write(Key, "sepia")

	s := New(b, &fakeRoot{}, zerolog.Nop())
	defer s.Close()
	assert.Equal(t, Dark, s.Current())
}

func TestToggle_TwiceRestoresOriginal(t *testing.T) {
	b := storage.NewBridge(storage.NewMemoryBackend(), zerolog.Nop())
	root := &fakeRoot{}
	s := New(b, root, zerolog.Nop())
	defer s.Close()

	original := s.Current()

	first := s.Toggle()
	assert.NotEqual(t, original, first)
	assert.Equal(t, string(first), root.attrs[Attribute])
	assert.Equal(t, first, storage.Read(b, Key, Theme("")))

	second := s.Toggle()
	assert.Equal(t, original, second)
	assert.Equal(t, string(second), root.attrs[Attribute])
	assert.Equal(t, second, storage.Read(b, Key, Theme("")))
}

func TestSet_FollowsOtherProcess(t *testing.T) {
	shared := storage.NewMemoryBackend()
	mine := storage.NewBridge(shared, zerolog.Nop())
	theirs := storage.NewBridge(shared, zerolog.Nop())

	root := &fakeRoot{}
	s := New(mine, root, zerolog.Nop())
	defer s.Close()

	w := storage.NewWatcher(mine, 0, zerolog.Nop())
	w.Poll()

	other := New(theirs, &fakeRoot{}, zerolog.Nop())
	defer other.Close()
	other.Set(Light)

	w.Poll()
	assert.Equal(t, Light, s.Current())
	assert.Equal(t, "light", root.attrs[Attribute])
}

func TestPaletteFor(t *testing.T) {
	require.NotEqual(t, PaletteFor(Dark), PaletteFor(Light))
	assert.Equal(t, PaletteFor(Dark), PaletteFor("unknown"))
}
