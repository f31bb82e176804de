package review

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"relink/internal/ledger"
	"relink/internal/match"
)

// ActionKind enumerates operator choices for one pending record.
type ActionKind int

const (
	ActionDefer ActionKind = iota
	ActionPick
	ActionTarget
	ActionSearch
	ActionReject
	ActionDiscontinue
	ActionQuit
)

func (k ActionKind) String() string {
	switch k {
	case ActionPick:
		return "pick"
	case ActionTarget:
		return "target"
	case ActionSearch:
		return "search"
	case ActionReject:
		return "reject"
	case ActionDiscontinue:
		return "discontinue"
	case ActionQuit:
		return "quit"
	default:
		return "defer"
	}
}

// Action is the operator's answer to a Prompt. Choice is 1-based and indexes
// Prompt.Suggestions.
type Action struct {
	Kind     ActionKind
	Choice   int
	TargetID int64
	Query    string
	Note     string
}

// Prompt is everything shown to the operator for one record.
type Prompt struct {
	Record      ledger.Record
	Suggestions []match.Suggestion
	// Query is set when Suggestions came from a free-text search.
	Query    string
	Position int
	Total    int
	// Notice explains why the previous answer was not accepted.
	Notice string
}

// Prompter asks the operator what to do with one record.
type Prompter interface {
	Prompt(ctx context.Context, p Prompt) (Action, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, p Prompt) (Action, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context, p Prompt) (Action, error) {
	return f(ctx, p)
}

var errEmptyArgument = errors.New("missing argument")

// ParseAction turns one line of operator input into an Action. An empty line
// defers the record.
func ParseAction(line string) (Action, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Action{Kind: ActionDefer}, nil
	}
	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 {
			return Action{}, fmt.Errorf("suggestion number %d out of range", n)
		}
		return Action{Kind: ActionPick, Choice: n}, nil
	}

	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(verb) {
	case "s", "skip", "defer":
		return Action{Kind: ActionDefer}, nil
	case "q", "quit", "exit":
		return Action{Kind: ActionQuit}, nil
	case "t", "target", "id":
		if rest == "" {
			return Action{}, fmt.Errorf("target: %w", errEmptyArgument)
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return Action{}, fmt.Errorf("target %q is not a positive id", rest)
		}
		return Action{Kind: ActionTarget, TargetID: id}, nil
	case "f", "find", "search":
		if rest == "" {
			return Action{}, fmt.Errorf("search: %w", errEmptyArgument)
		}
		return Action{Kind: ActionSearch, Query: rest}, nil
	case "r", "reject":
		return Action{Kind: ActionReject, Note: rest}, nil
	case "d", "discontinue", "discontinued":
		return Action{Kind: ActionDiscontinue, Note: rest}, nil
	default:
		return Action{}, fmt.Errorf("unknown command %q", verb)
	}
}
