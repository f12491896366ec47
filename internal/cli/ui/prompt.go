package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// Prompter asks the user for input. Commands take it as a dependency so
// tests can script the answers.
type Prompter interface {
	Select(label string, items []string) (int, error)
	Input(label string) (string, error)
	Password(label string) (string, error)
}

// TerminalPrompter prompts on the process terminal
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stdin and stderr
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) interactive() bool {
	return term.IsTerminal(int(p.In.Fd()))
}

// Select shows an interactive list
func (p *TerminalPrompter) Select(label string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, fmt.Errorf("nothing to select")
	}
	if !p.interactive() {
		return 0, fmt.Errorf("%s: selection requires an interactive terminal", strings.ToLower(label))
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "{{ . | green }}",
	}
	prompt := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("selection cancelled: %w", err)
	}
	return index, nil
}

// Input reads one line
func (p *TerminalPrompter) Input(label string) (string, error) {
	if p.interactive() {
		prompt := promptui.Prompt{Label: label}
		value, err := prompt.Run()
		if err != nil {
			return "", fmt.Errorf("input cancelled: %w", err)
		}
		return strings.TrimSpace(value), nil
	}

	fmt.Fprintf(p.Out, "%s: ", label)
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// Password reads a secret without echo. It refuses to read from a pipe.
func (p *TerminalPrompter) Password(label string) (string, error) {
	if !p.interactive() {
		return "", fmt.Errorf("%s is required in non-interactive mode", strings.ToLower(label))
	}
	fmt.Fprintf(p.Out, "%s: ", label)
	b, err := term.ReadPassword(int(p.In.Fd()))
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(b), nil
}
