package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedArguments is returned when a completed function call's
	// argument buffer is not valid JSON.
	ErrMalformedArguments = errors.New("malformed function call arguments")

	// ErrUnsupportedAction is returned for any function name other than
	// create_pr. The UI only knows how to render one action.
	ErrUnsupportedAction = errors.New("unsupported assistant action")
)

// ActionCreatePR is the single function name the aggregator understands.
const ActionCreatePR = "create_pr"

// Aggregator folds a response stream into accumulated assistant text and an
// optional function call. It is single-use: one aggregator per turn.
type Aggregator struct {
	text     []byte
	funcName string
	rawArgs  []byte
}

// Apply folds one fragment into the aggregator and reports the assistant
// message to render after it, or ("", false) when the fragment changed
// nothing visible.
//
// Content fragments append to the accumulated text; the renders form
// monotonically growing prefixes of the final message. Function-call
// fragments render the call name and the raw argument buffer even while the
// JSON is incomplete; nothing is parsed until Finish.
func (a *Aggregator) Apply(ev StreamEvent) (string, bool) {
	rendered := false
	render := ""

	if ev.Content != "" {
		a.text = append(a.text, ev.Content...)
		render = string(a.text)
		rendered = true
	}

	if ev.FunctionCall != nil {
		// The name is fixed by the first fragment that supplies one.
		if a.funcName == "" {
			a.funcName = ev.FunctionCall.Name
		}
		a.rawArgs = append(a.rawArgs, ev.FunctionCall.Arguments...)
		render = a.renderCall()
		rendered = true
	}

	return render, rendered
}

func (a *Aggregator) renderCall() string {
	return fmt.Sprintf("Calling function: `%s`\n```json\n%s\n```", a.funcName, a.rawArgs)
}

// Text returns the accumulated assistant text.
func (a *Aggregator) Text() string { return string(a.text) }

// FunctionName returns the function name seen so far, or "".
func (a *Aggregator) FunctionName() string { return a.funcName }

// Finish parses the completed function call, if any. A turn with no
// function call returns ("", nil, nil). Malformed argument JSON and
// unrecognized function names are fatal for the turn.
func (a *Aggregator) Finish() (string, json.RawMessage, error) {
	if a.funcName == "" {
		return "", nil, nil
	}

	if !json.Valid(a.rawArgs) {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedArguments, a.rawArgs)
	}

	if a.funcName != ActionCreatePR {
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, a.funcName)
	}

	return a.funcName, json.RawMessage(a.rawArgs), nil
}
