package review

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"relink/internal/match"
	"relink/internal/signals"
)

const terminalHelp = `  <n>             approve suggestion n
  t <id>          use a catalog id or tracked legacy id
  f <text>        search the catalog
  r [note]        reject this occurrence
  d [note]        mark the legacy id discontinued everywhere
  s or <enter>    defer
  q               save and quit`

const maxHistory = 20

// TerminalPrompter renders prompts as text and reads answers. A terminal on
// stdin gets an editable input line; piped input is read line by line.
type TerminalPrompter struct {
	lines *bufio.Reader
	tty   *os.File
	out   io.Writer

	history     []string
	promptStyle lipgloss.Style

	title     *color.Color
	dim       *color.Color
	warn      *color.Color
	high      *color.Color
	medium    *color.Color
	low       *color.Color
	threshold int
}

// NewTerminalPrompter returns a prompter reading from in and writing to out.
// Colors are enabled only when out is a terminal. threshold is the confidence
// at which suggestions are highlighted as strong.
func NewTerminalPrompter(in io.Reader, out io.Writer, threshold int) *TerminalPrompter {
	p := &TerminalPrompter{
		out:         out,
		promptStyle: lipgloss.NewStyle().Bold(true),
		title:       color.New(color.Bold),
		dim:         color.New(color.FgHiBlack),
		warn:        color.New(color.FgYellow),
		high:        color.New(color.FgGreen),
		medium:      color.New(color.FgYellow),
		low:         color.New(color.FgRed),
		threshold:   threshold,
	}
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		p.tty = f
	} else {
		p.lines = bufio.NewReader(in)
	}
	colorize := isTerminal(out)
	for _, c := range []*color.Color{p.title, p.dim, p.warn, p.high, p.medium, p.low} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Prompt prints p and reads one answer. Unparseable input is reported and
// asked again. End of input quits the session.
func (t *TerminalPrompter) Prompt(ctx context.Context, p Prompt) (Action, error) {
	t.render(p)
	for {
		if err := ctx.Err(); err != nil {
			return Action{}, err
		}
		line, err := t.readAnswer(ctx)
		if errors.Is(err, io.EOF) {
			return Action{Kind: ActionQuit}, nil
		}
		if err != nil {
			return Action{}, err
		}
		if line == "?" || line == "h" || line == "help" {
			fmt.Fprintln(t.out, terminalHelp)
			continue
		}
		action, perr := ParseAction(line)
		if perr != nil {
			t.warn.Fprintf(t.out, "%v (? for help)\n", perr)
			continue
		}
		t.remember(line)
		return action, nil
	}
}

// readAnswer returns one trimmed answer, or io.EOF when the operator closed
// the input.
func (t *TerminalPrompter) readAnswer(ctx context.Context) (string, error) {
	if t.tty != nil {
		return t.readCommand(ctx, tea.WithInput(t.tty), tea.WithOutput(t.out))
	}
	fmt.Fprint(t.out, "> ")
	line, err := t.lines.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
		fmt.Fprintln(t.out)
		return "", io.EOF
	}
	return strings.TrimSpace(line), nil
}

// readCommand runs the input line as a bubbletea program until the operator
// submits or cancels it.
func (t *TerminalPrompter) readCommand(ctx context.Context, opts ...tea.ProgramOption) (string, error) {
	model := newCommandInput(t.history, t.promptStyle)
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	answer, ok := final.(commandInput)
	if !ok || answer.cancelled {
		return "", io.EOF
	}
	return answer.Value(), nil
}

// remember keeps accepted commands, newest first, for completion on the next
// prompt.
func (t *TerminalPrompter) remember(line string) {
	if line == "" {
		return
	}
	t.history = slices.DeleteFunc(t.history, func(h string) bool { return h == line })
	t.history = slices.Insert(t.history, 0, line)
	if len(t.history) > maxHistory {
		t.history = t.history[:maxHistory]
	}
}

func (t *TerminalPrompter) render(p Prompt) {
	rec := p.Record
	fmt.Fprintln(t.out)
	t.title.Fprintf(t.out, "[%d/%d] %s", p.Position, p.Total, displayTitle(rec.Title))
	t.dim.Fprintf(t.out, "  (content %d, legacy id %s)\n", rec.ContentID, rec.LegacyID)
	fmt.Fprintf(t.out, "  token: %s\n", rec.RawToken)
	for _, line := range signalLines(rec.Signals) {
		fmt.Fprintf(t.out, "  %s\n", line)
	}
	if p.Notice != "" {
		t.warn.Fprintf(t.out, "  %s\n", p.Notice)
	}

	if p.Query != "" {
		fmt.Fprintf(t.out, "  results for %q:\n", p.Query)
	}
	if len(p.Suggestions) == 0 {
		t.dim.Fprintln(t.out, "  no suggestions; search with f <text> or enter t <id>")
		return
	}
	for i, s := range p.Suggestions {
		fmt.Fprintf(t.out, "  %d) ", i+1)
		t.confidenceColor(s).Fprintf(t.out, "%3d%%", s.Confidence)
		fmt.Fprintf(t.out, " %s ", s.Entry.Name)
		t.dim.Fprintf(t.out, "[%d %s] via %s\n", s.Entry.ID, s.Entry.Slug, s.Method)
	}
}

func (t *TerminalPrompter) confidenceColor(s match.Suggestion) *color.Color {
	switch {
	case s.Confidence >= t.threshold:
		return t.high
	case s.Confidence >= 60:
		return t.medium
	default:
		return t.low
	}
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func signalLines(sig signals.Signals) []string {
	var lines []string
	if sig.NearbyPath != "" {
		lines = append(lines, "link:    "+sig.NearbyPath)
	}
	for _, text := range sig.Texts() {
		lines = append(lines, fmt.Sprintf("%-8s %s", text.Name+":", text.Value))
	}
	if len(lines) == 0 {
		lines = append(lines, "no context found near the token")
	}
	return lines
}
