package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvest-dev/coinvest/internal/cli/notify"
	"github.com/coinvest-dev/coinvest/internal/cli/theme"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "table": FormatTable, "JSON": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestConsole_ThemeAttribute(t *testing.T) {
	c := NewConsole(&bytes.Buffer{}, &bytes.Buffer{}, FormatTable)
	c.SetAttribute(theme.Attribute, "light")
	assert.Equal(t, "light", c.Attribute(theme.Attribute))
	assert.Equal(t, theme.PaletteFor(theme.Light), c.currentPalette())
}

func TestConsole_Render(t *testing.T) {
	type row struct {
		Name string `json:"name" yaml:"name"`
	}
	data := []row{{Name: "Starter"}}

	var out bytes.Buffer
	c := NewConsole(&out, &bytes.Buffer{}, FormatJSON)
	require.NoError(t, c.Render(data, func() { t.Fatal("table used for json") }))
	assert.Contains(t, out.String(), `"name": "Starter"`)

	out.Reset()
	c = NewConsole(&out, &bytes.Buffer{}, FormatYAML)
	require.NoError(t, c.Render(data, func() { t.Fatal("table used for yaml") }))
	assert.Contains(t, out.String(), "- name: Starter")

	out.Reset()
	c = NewConsole(&out, &bytes.Buffer{}, FormatTable)
	require.NoError(t, c.Render(data, func() {
		c.Table([]string{"NAME"}, [][]string{{"Starter"}})
	}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "Starter")
}

func TestConsole_FollowToasts(t *testing.T) {
	var errOut bytes.Buffer
	c := NewConsole(&bytes.Buffer{}, &errOut, FormatTable)
	store := notify.New(0)
	defer store.Close()

	store.Add("before", notify.Info, time.Hour)
	unsubscribe := c.FollowToasts(store)
	defer unsubscribe()

	store.Add("Withdrawal requested", notify.Success, time.Hour)
	assert.NotContains(t, errOut.String(), "before")
	assert.Contains(t, errOut.String(), "Withdrawal requested")
	assert.Equal(t, 1, strings.Count(errOut.String(), "Withdrawal requested"))
}

func TestNavigator(t *testing.T) {
	n := NewNavigator("/dashboard/")
	var seen []string
	n.OnNavigate(func(path string) { seen = append(seen, path) })

	n.Navigate("/login")
	assert.Equal(t, "/login", n.Current())
	assert.Equal(t, []string{"/dashboard", "/login"}, n.History())
	assert.Equal(t, []string{"/login"}, seen)
}
