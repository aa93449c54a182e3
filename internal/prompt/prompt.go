// Package prompt asks the operator to choose between remediation options.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the operator cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

// Prompter presents questions to the operator.
type Prompter interface {
	// Select returns the index of the chosen label.
	Select(ctx context.Context, question string, labels []string) (int, error)
	Confirm(ctx context.Context, question string) (bool, error)
}

// Terminal prompts interactively on the terminal.
type Terminal struct {
	Output io.Writer
}

func NewTerminal() *Terminal {
	return &Terminal{Output: os.Stderr}
}

func (t *Terminal) Select(ctx context.Context, question string, labels []string) (int, error) {
	if len(labels) == 0 {
		return 0, fmt.Errorf("no options for %q", question)
	}
	options := make([]huh.Option[int], len(labels))
	for i, label := range labels {
		options[i] = huh.NewOption(label, i)
	}

	choice := 0
	field := huh.NewSelect[int]().
		Title(question).
		Options(options...).
		Value(&choice)
	if err := t.run(ctx, field); err != nil {
		return 0, err
	}
	return choice, nil
}

func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	ok := false
	field := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := t.run(ctx, field); err != nil {
		return false, err
	}
	return ok, nil
}

func (t *Terminal) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field))
	if t.Output != nil {
		form = form.WithOutput(t.Output)
	}
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return fmt.Errorf("failed to read answer: %w", err)
	}
	return nil
}

// Static answers every question the same way. It serves non-interactive runs.
type Static struct {
	Choice int
	Answer bool
}

func (s Static) Select(_ context.Context, _ string, labels []string) (int, error) {
	if s.Choice < 0 || s.Choice >= len(labels) {
		return 0, fmt.Errorf("static choice %d out of range for %d options", s.Choice, len(labels))
	}
	return s.Choice, nil
}

func (s Static) Confirm(context.Context, string) (bool, error) {
	return s.Answer, nil
}

// Asked records one question a Scripted prompter received.
type Asked struct {
	Question string
	Labels   []string
}

// Scripted replays a fixed list of answers and records every question.
type Scripted struct {
	mu       sync.Mutex
	choices  []int
	confirms []bool
	asked    []Asked
}

// ErrScriptExhausted is returned when a Scripted prompter runs out of answers.
var ErrScriptExhausted = errors.New("scripted prompter has no answers left")

func NewScripted(choices []int, confirms ...bool) *Scripted {
	return &Scripted{choices: choices, confirms: confirms}
}

func (s *Scripted) Select(_ context.Context, question string, labels []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, Asked{Question: question, Labels: append([]string(nil), labels...)})
	if len(s.choices) == 0 {
		return 0, ErrScriptExhausted
	}
	choice := s.choices[0]
	s.choices = s.choices[1:]
	if choice < 0 || choice >= len(labels) {
		return 0, fmt.Errorf("scripted choice %d out of range for %d options", choice, len(labels))
	}
	return choice, nil
}

func (s *Scripted) Confirm(_ context.Context, question string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, Asked{Question: question})
	if len(s.confirms) == 0 {
		return false, ErrScriptExhausted
	}
	answer := s.confirms[0]
	s.confirms = s.confirms[1:]
	return answer, nil
}

// Asked returns every question received so far.
func (s *Scripted) Asked() []Asked {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Asked, len(s.asked))
	copy(out, s.asked)
	return out
}
