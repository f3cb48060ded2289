package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_ContentPrefixes(t *testing.T) {
	var agg Aggregator

	render, ok := agg.Apply(StreamEvent{Content: "Hel"})
	require.True(t, ok)
	assert.Equal(t, "Hel", render)

	render, ok = agg.Apply(StreamEvent{Content: "lo"})
	require.True(t, ok)
	assert.Equal(t, "Hello", render)

	assert.Equal(t, "Hello", agg.Text())

	name, args, err := agg.Finish()
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Nil(t, args)
}

func TestAggregator_EmptyFragment(t *testing.T) {
	var agg Aggregator

	_, ok := agg.Apply(StreamEvent{})
	assert.False(t, ok, "a fragment with neither content nor call renders nothing")
}

func TestAggregator_FunctionCallChunks(t *testing.T) {
	var agg Aggregator

	render, ok := agg.Apply(StreamEvent{FunctionCall: &FunctionCallDelta{
		Name:      "create_pr",
		Arguments: `{"ti`,
	}})
	require.True(t, ok)
	assert.Equal(t, "Calling function: `create_pr`\n```json\n{\"ti\n```", render,
		"partial JSON is rendered verbatim before it is parseable")

	render, ok = agg.Apply(StreamEvent{FunctionCall: &FunctionCallDelta{
		Arguments: `tle":"X","summary":"S","plan":[]}`,
	}})
	require.True(t, ok)
	assert.Contains(t, render, `{"title":"X","summary":"S","plan":[]}`)

	name, args, err := agg.Finish()
	require.NoError(t, err)
	assert.Equal(t, "create_pr", name)
	assert.JSONEq(t, `{"title":"X","summary":"S","plan":[]}`, string(args))
}

func TestAggregator_NameFixedByFirstChunk(t *testing.T) {
	var agg Aggregator

	agg.Apply(StreamEvent{FunctionCall: &FunctionCallDelta{Name: "create_pr", Arguments: "{"}})
	agg.Apply(StreamEvent{FunctionCall: &FunctionCallDelta{Name: "something_else", Arguments: "}"}})

	assert.Equal(t, "create_pr", agg.FunctionName())
}

func TestAggregator_InterleavedContentAndCall(t *testing.T) {
	var agg Aggregator

	agg.Apply(StreamEvent{Content: "Let me open a PR."})
	render, ok := agg.Apply(StreamEvent{FunctionCall: &FunctionCallDelta{Name: "create_pr", Arguments: "{}"}})
	require.True(t, ok)

	// Once a call starts, the call rendering replaces the text rendering.
	assert.Contains(t, render, "Calling function:")
	assert.Equal(t, "Let me open a PR.", agg.Text())
}

func TestAggregator_Finish_MalformedJSON(t *testing.T) {
	var agg Aggregator
	agg.Apply(StreamEvent{FunctionCall: &FunctionCallDelta{Name: "create_pr", Arguments: `{"title":`}})

	_, _, err := agg.Finish()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedArguments)
}

func TestAggregator_Finish_UnsupportedName(t *testing.T) {
	var agg Aggregator
	agg.Apply(StreamEvent{FunctionCall: &FunctionCallDelta{Name: "delete_repo", Arguments: `{}`}})

	_, _, err := agg.Finish()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}
