// Package ui renders command output to the terminal
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/coinvest-dev/coinvest/internal/cli/notify"
	"github.com/coinvest-dev/coinvest/internal/cli/theme"
)

// Format selects how structured results are printed
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an --output value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Console is the terminal renderer. It is the root the theme is applied
// to: setting data-theme swaps the palette used for every later line.
type Console struct {
	out    io.Writer
	errOut io.Writer
	format Format

	mu      sync.Mutex
	attrs   map[string]string
	palette theme.Palette
}

// NewConsole creates a console printing results to out and messages to
// errOut
func NewConsole(out, errOut io.Writer, format Format) *Console {
	if format == "" {
		format = FormatTable
	}
	return &Console{
		out:     out,
		errOut:  errOut,
		format:  format,
		attrs:   make(map[string]string),
		palette: theme.PaletteFor(theme.Dark),
	}
}

// SetAttribute sets a root attribute
func (c *Console) SetAttribute(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs[name] = value
	if name == theme.Attribute {
		c.palette = theme.PaletteFor(theme.Theme(value))
	}
}

// Attribute returns a root attribute
func (c *Console) Attribute(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attrs[name]
}

// Format returns the output format
func (c *Console) Format() Format {
	return c.format
}

// Out is where results go
func (c *Console) Out() io.Writer {
	return c.out
}

func (c *Console) style(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(color)
}

func (c *Console) currentPalette() theme.Palette {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.palette
}

// Success prints a confirmation line
func (c *Console) Success(format string, args ...any) {
	p := c.currentPalette()
	fmt.Fprintln(c.out, c.style(p.Success).Render("✓ "+fmt.Sprintf(format, args...)))
}

// Println prints a plain result line
func (c *Console) Println(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Hint prints a muted line to the message stream
func (c *Console) Hint(format string, args ...any) {
	p := c.currentPalette()
	fmt.Fprintln(c.errOut, c.style(p.Muted).Render(fmt.Sprintf(format, args...)))
}

// Warn prints a warning to the message stream
func (c *Console) Warn(format string, args ...any) {
	p := c.currentPalette()
	fmt.Fprintln(c.errOut, c.style(p.Warning).Render("! "+fmt.Sprintf(format, args...)))
}

// FieldError prints an inline form error
func (c *Console) FieldError(field, message string) {
	p := c.currentPalette()
	fmt.Fprintln(c.errOut, c.style(p.Error).Render(fmt.Sprintf("  %s: %s", field, message)))
}

// Heading prints a section title
func (c *Console) Heading(title string) {
	p := c.currentPalette()
	fmt.Fprintln(c.out, c.style(p.Accent).Bold(true).Render(title))
	fmt.Fprintln(c.out)
}

// Loading is shown while the session is being resolved
func (c *Console) Loading() {
	c.Hint("Loading...")
}

// Toast prints one notification
func (c *Console) Toast(t notify.Toast) {
	p := c.currentPalette()
	color := p.Accent
	switch t.Severity {
	case notify.Success:
		color = p.Success
	case notify.Warning:
		color = p.Warning
	case notify.Error:
		color = p.Error
	}
	fmt.Fprintln(c.errOut, c.style(color).Render(fmt.Sprintf("[%s] %s", t.Severity, t.Message)))
}

// FollowToasts prints every toast added to store from now on
func (c *Console) FollowToasts(store *notify.Store) (unsubscribe func()) {
	var mu sync.Mutex
	shown := make(map[string]bool)
	for _, t := range store.List() {
		shown[t.ID] = true
	}
	return store.Subscribe(func(toasts []notify.Toast) {
		mu.Lock()
		defer mu.Unlock()
		for _, t := range toasts {
			if !shown[t.ID] {
				shown[t.ID] = true
				c.Toast(t)
			}
		}
	})
}

// Table prints rows under headers with aligned columns
func (c *Console) Table(headers []string, rows [][]string) {
	p := c.currentPalette()
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)

	head := make([]string, len(headers))
	rules := make([]string, len(headers))
	for i, h := range headers {
		head[i] = c.style(p.Accent).Render(h)
		rules[i] = c.style(p.Border).Render(strings.Repeat("─", len([]rune(h))))
	}
	fmt.Fprintln(w, strings.Join(head, "\t"))
	fmt.Fprintln(w, strings.Join(rules, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// Render prints v in the console format. table is used for FormatTable.
func (c *Console) Render(v any, table func()) error {
	switch c.format {
	case FormatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		table()
	}
	return nil
}
