package review

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"

	"relink/internal/catalog"
	"relink/internal/ledger"
	"relink/internal/match"
	"relink/internal/signals"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		line    string
		want    Action
		wantErr bool
	}{
		{line: "", want: Action{Kind: ActionDefer}},
		{line: "  s ", want: Action{Kind: ActionDefer}},
		{line: "2", want: Action{Kind: ActionPick, Choice: 2}},
		{line: "0", wantErr: true},
		{line: "t 9001", want: Action{Kind: ActionTarget, TargetID: 9001}},
		{line: "target   640", want: Action{Kind: ActionTarget, TargetID: 640}},
		{line: "t", wantErr: true},
		{line: "t abc", wantErr: true},
		{line: "f velvet rabbit", want: Action{Kind: ActionSearch, Query: "velvet rabbit"}},
		{line: "search", wantErr: true},
		{line: "r duplicate link", want: Action{Kind: ActionReject, Note: "duplicate link"}},
		{line: "d", want: Action{Kind: ActionDiscontinue}},
		{line: "discontinue vendor gone", want: Action{Kind: ActionDiscontinue, Note: "vendor gone"}},
		{line: "Q", want: Action{Kind: ActionQuit}},
		{line: "approve", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.line)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseAction(%q): expected error, got %+v", tt.line, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAction(%q): %v", tt.line, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("ParseAction(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func TestTerminalPrompterRendersAndRetries(t *testing.T) {
	in := strings.NewReader("bogus\n?\nt 9001\n")
	var out bytes.Buffer
	prompter := NewTerminalPrompter(in, &out, 85)

	prompt := Prompt{
		Record: ledger.Record{
			ContentID: 12,
			LegacyID:  "500",
			Title:     "Gift guide",
			RawToken:  `[product id="500"]`,
			Signals:   signals.Signals{NearbyPath: "/product/red-vibe/", NearbySlug: "red-vibe", LinkText: "Red Vibe"},
		},
		Suggestions: []match.Suggestion{{
			Entry:      catalog.Entry{ID: 9001, Name: "Red Vibe Deluxe", Slug: "red-vibe-deluxe"},
			Confidence: 95,
			Method:     "descriptor+contains",
		}},
		Position: 1,
		Total:    3,
	}
	action, err := prompter.Prompt(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if action.Kind != ActionTarget || action.TargetID != 9001 {
		t.Fatalf("unexpected action %+v", action)
	}

	text := out.String()
	for _, want := range []string{
		"[1/3] Gift guide",
		"(content 12, legacy id 500)",
		`token: [product id="500"]`,
		"link:    /product/red-vibe/",
		"link:    Red Vibe",
		"1)  95% Red Vibe Deluxe [9001 red-vibe-deluxe] via descriptor+contains",
		`unknown command "bogus"`,
		"approve suggestion n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "\x1b[") {
		t.Fatalf("expected no color escapes for a non-terminal writer:\n%s", text)
	}
}

func TestTerminalPrompterQuitsOnEOF(t *testing.T) {
	var out bytes.Buffer
	prompter := NewTerminalPrompter(strings.NewReader(""), &out, 85)
	action, err := prompter.Prompt(context.Background(), Prompt{Record: ledger.Record{ContentID: 1, LegacyID: "700"}})
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if action.Kind != ActionQuit {
		t.Fatalf("expected quit, got %+v", action)
	}
	if !strings.Contains(out.String(), "no context found near the token") {
		t.Fatalf("missing no-context line:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "no suggestions") {
		t.Fatalf("missing no-suggestions line:\n%s", out.String())
	}
}

func TestTerminalPrompterAcceptsFinalLineWithoutNewline(t *testing.T) {
	prompter := NewTerminalPrompter(strings.NewReader("q"), &bytes.Buffer{}, 85)
	action, err := prompter.Prompt(context.Background(), Prompt{})
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if action.Kind != ActionQuit {
		t.Fatalf("expected quit, got %+v", action)
	}
}

func typeCommand(t *testing.T, m commandInput, text string) commandInput {
	t.Helper()
	for _, r := range text {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
		if r == ' ' {
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{r}}
		}
		next, _ := m.Update(msg)
		m = next.(commandInput)
	}
	return m
}

func TestCommandInputSubmitsOnEnter(t *testing.T) {
	m := typeCommand(t, newCommandInput(nil, lipgloss.NewStyle()), " t 9001 ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(commandInput)

	if !m.submitted || m.cancelled {
		t.Fatalf("expected a submitted line, got submitted=%v cancelled=%v", m.submitted, m.cancelled)
	}
	if got := m.Value(); got != "t 9001" {
		t.Fatalf("Value() = %q, want %q", got, "t 9001")
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected enter to quit the program")
	}
	if !strings.Contains(m.View(), "> t 9001") {
		t.Fatalf("final view should keep the answer, got %q", m.View())
	}
}

func TestCommandInputCancels(t *testing.T) {
	tests := []struct {
		name   string
		typed  string
		key    tea.KeyType
		cancel bool
	}{
		{name: "escape", typed: "f rab", key: tea.KeyEsc, cancel: true},
		{name: "ctrl+c", key: tea.KeyCtrlC, cancel: true},
		{name: "ctrl+d on empty line", key: tea.KeyCtrlD, cancel: true},
		{name: "ctrl+d with text", typed: "r dup", key: tea.KeyCtrlD, cancel: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := typeCommand(t, newCommandInput(nil, lipgloss.NewStyle()), tt.typed)
			next, _ := m.Update(tea.KeyMsg{Type: tt.key})
			m = next.(commandInput)
			if m.cancelled != tt.cancel {
				t.Fatalf("cancelled = %v, want %v", m.cancelled, tt.cancel)
			}
		})
	}
}

func TestCommandInputCompletesFromHistory(t *testing.T) {
	m := typeCommand(t, newCommandInput([]string{"t 9004", "f velvet rabbit"}, lipgloss.NewStyle()), "f v")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(commandInput)
	if got := m.Value(); got != "f velvet rabbit" {
		t.Fatalf("Value() after tab = %q, want %q", got, "f velvet rabbit")
	}
}

func TestTerminalPrompterRemembersAcceptedCommands(t *testing.T) {
	prompter := NewTerminalPrompter(strings.NewReader("t 9001\nbogus\nt 9004\nt 9001\n"), &bytes.Buffer{}, 85)
	for range 3 {
		if _, err := prompter.Prompt(context.Background(), Prompt{}); err != nil {
			t.Fatalf("Prompt: %v", err)
		}
	}
	if diff := cmp.Diff([]string{"t 9001", "t 9004"}, prompter.history); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestTerminalPrompterReadsCommandThroughProgram(t *testing.T) {
	prompter := NewTerminalPrompter(strings.NewReader(""), io.Discard, 85)
	line, err := prompter.readCommand(context.Background(),
		tea.WithInput(strings.NewReader("t 9001\r")),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignals(),
	)
	if err != nil {
		t.Fatalf("readCommand: %v", err)
	}
	if line != "t 9001" {
		t.Fatalf("readCommand = %q, want %q", line, "t 9001")
	}
}
