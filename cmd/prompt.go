package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nextlevelbuilder/cogman/internal/cogs"
)

// errPromptCancelled is returned when the user aborts a prompt with Ctrl-C or Esc.
var errPromptCancelled = errors.New("cancelled")

// filterThreshold: enable type-to-filter only when there are more than this many options.
const filterThreshold = 5

// runField shows a single huh field as a form. Accessible mode (plain line
// prompts, no redraws) is used when NO_COLOR or ACCESSIBLE is set.
func runField(field huh.Field) error {
	plain := os.Getenv("NO_COLOR") != "" || os.Getenv("ACCESSIBLE") != ""
	err := huh.NewForm(huh.NewGroup(field)).
		WithTheme(huh.ThemeBase16()).
		WithShowHelp(true).
		WithAccessible(plain).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errPromptCancelled
	}
	return err
}

// promptString asks for a line of text. Enter on an empty input returns
// fallback, which is also shown as the placeholder. validate may be nil.
func promptString(title, fallback string, validate func(string) error) (string, error) {
	var value string
	inp := huh.NewInput().
		Title(title).
		Placeholder(fallback).
		Value(&value)
	if validate != nil {
		inp = inp.Validate(func(s string) error {
			if s == "" && fallback != "" {
				return nil
			}
			return validate(s)
		})
	}

	if err := runField(inp); err != nil {
		return "", err
	}
	if value = strings.TrimSpace(value); value == "" {
		return fallback, nil
	}
	return value, nil
}

// promptSecret asks for a value without echoing it.
func promptSecret(title, description string) (string, error) {
	var value string
	inp := huh.NewInput().
		Title(title).
		Description(description).
		EchoMode(huh.EchoModePassword).
		Value(&value)

	if err := runField(inp); err != nil {
		return "", err
	}
	return value, nil
}

// promptSelect shows a single-select list and returns the chosen value.
func promptSelect[T comparable](title string, options []SelectOption[T], defaultIdx int) (T, error) {
	var value T

	huhOpts := make([]huh.Option[T], len(options))
	for i, opt := range options {
		huhOpts[i] = huh.NewOption(opt.Label, opt.Value).Selected(i == defaultIdx)
	}

	sel := huh.NewSelect[T]().
		Title(title).
		Options(huhOpts...).
		Filtering(len(options) > filterThreshold).
		Value(&value)

	if err := runField(sel); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// promptConfirm asks a yes/no question. Returns true for yes.
func promptConfirm(title string, defaultYes bool) (bool, error) {
	value := defaultYes
	c := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&value)

	if err := runField(c); err != nil {
		return false, err
	}
	return value, nil
}

// SelectOption represents a single option in a select prompt.
type SelectOption[T any] struct {
	Label string
	Value T
}

// validCogInput accepts anything NormalizeName can turn into a cog name.
func validCogInput(s string) error {
	if cogs.NormalizeName(s) == "" {
		return cogs.ErrEmptyName
	}
	return nil
}

// validPrefix rejects prefixes the command parser cannot match.
func validPrefix(s string) error {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return errors.New("prefix must be non-empty without whitespace")
	}
	return nil
}
