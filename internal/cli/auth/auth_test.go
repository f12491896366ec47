package auth

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStore_RoundTrip(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore("")

	_, err := store.LoadCookies("api.example.com")
	require.ErrorIs(t, err, ErrNoCredentials)

	in := []*http.Cookie{{Name: "sid", Value: "abc", Path: "/", HttpOnly: true}}
	require.NoError(t, store.SaveCookies("api.example.com", in))

	out, err := store.LoadCookies("api.example.com")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "sid", out[0].Name)
	assert.Equal(t, "abc", out[0].Value)
	assert.True(t, out[0].HttpOnly)

	require.NoError(t, store.DeleteCookies("api.example.com"))
	require.NoError(t, store.DeleteCookies("api.example.com"), "deleting twice is a no-op")

	_, err = store.LoadCookies("api.example.com")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestMemoryStore_IsolatesHosts(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.SaveCookies("a", []*http.Cookie{{Name: "sid", Value: "1"}}))

	_, err := store.LoadCookies("b")
	assert.ErrorIs(t, err, ErrNoCredentials)

	got, err := store.LoadCookies("a")
	require.NoError(t, err)
	assert.Equal(t, "1", got[0].Value)
}

func TestKeyringStore_Available(t *testing.T) {
	keyring.MockInit()
	assert.NoError(t, NewKeyringStore("").Available())

	keyring.MockInitWithError(errors.New("no secret service"))
	defer keyring.MockInit()
	assert.Error(t, NewKeyringStore("").Available())
}
