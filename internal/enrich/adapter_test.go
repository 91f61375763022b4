package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedCompleter struct {
	reply       string
	err         error
	instruction string
	input       string
}

func (c *scriptedCompleter) Complete(_ context.Context, instruction, input string) (string, error) {
	c.instruction = instruction
	c.input = input
	return c.reply, c.err
}

func TestSummarizeTrimsProse(t *testing.T) {
	t.Parallel()

	c := &scriptedCompleter{reply: "\n  A short summary.  \n"}
	a := NewAdapter(c, zap.NewNop())

	out, err := a.Summarize(context.Background(), "body text", "A Title")
	require.NoError(t, err)
	require.Equal(t, "A short summary.", out)
	require.Contains(t, c.input, "Title: A Title")
	require.Contains(t, c.input, "body text")
}

func TestProseEmptyCompletionIsAnError(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&scriptedCompleter{reply: "   \n"}, zap.NewNop())
	_, err := a.Conclude(context.Background(), "text", "")
	require.ErrorContains(t, err, "empty completion")
}

func TestSuggestTags_Shape(t *testing.T) {
	t.Parallel()

	reply := strings.Join([]string{
		"- vedanta philosophy",
		"2. KARMA YOGA",
		"meditation", // one word, dropped
		"history of the ramakrishna order", // five words, dropped
		"Vedanta Philosophy",               // duplicate, dropped
		"\"indian spirituality\"",
		"monastic life, daily practice",
		"hindu reform movements",
	}, "\n")

	a := NewAdapter(&scriptedCompleter{reply: reply}, zap.NewNop())

	tags, err := a.SuggestTags(context.Background(), "text", "title")
	require.NoError(t, err)
	require.Equal(t, []string{
		"Vedanta Philosophy",
		"Karma Yoga",
		"Indian Spirituality",
		"Monastic Life",
		"Daily Practice",
	}, tags)
	require.LessOrEqual(t, len(tags), 5)
}

func TestSuggestTags_NoUsablePhrasesFails(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&scriptedCompleter{reply: "philosophy\nmeditation\nyoga"}, zap.NewNop())
	_, err := a.SuggestTags(context.Background(), "text", "title")
	require.ErrorContains(t, err, "no usable phrases")
}

func TestAttributeAuthors_Normalization(t *testing.T) {
	t.Parallel()

	reply := strings.Join([]string{
		"1. Swami Vivekananda",
		"- Sister Nivedita",
		"swami vivekananda", // case duplicate
		"Unknown",
		"unknown author",
		"",
	}, "\n")

	a := NewAdapter(&scriptedCompleter{reply: reply}, zap.NewNop())

	authors, err := a.AttributeAuthors(context.Background(), "text", "title")
	require.NoError(t, err)
	require.Equal(t, []string{"Swami Vivekananda", "Sister Nivedita"}, authors)
}

func TestAttributeAuthors_AllUnknownIsEmptyNotError(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&scriptedCompleter{reply: "Unknown"}, zap.NewNop())
	authors, err := a.AttributeAuthors(context.Background(), "text", "title")
	require.NoError(t, err)
	require.Empty(t, authors)
}

func TestAttributeAuthors_EmptyCompletionFails(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&scriptedCompleter{reply: " "}, zap.NewNop())
	_, err := a.AttributeAuthors(context.Background(), "text", "title")
	require.ErrorContains(t, err, "empty completion")
}

func TestCompleterErrorsPropagate(t *testing.T) {
	t.Parallel()

	a := NewAdapter(&scriptedCompleter{err: errors.New("request timed out")}, zap.NewNop())
	_, err := a.Summarize(context.Background(), "text", "title")
	require.ErrorContains(t, err, "timed out")
}

func TestContextWindows(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", proseWindow+5000)

	c := &scriptedCompleter{reply: "ok"}
	a := NewAdapter(c, zap.NewNop())

	_, err := a.Summarize(context.Background(), long, "")
	require.NoError(t, err)
	require.Len(t, c.input, proseWindow)

	c2 := &scriptedCompleter{reply: "Two Words"}
	a2 := NewAdapter(c2, zap.NewNop())
	_, err = a2.SuggestTags(context.Background(), long, "")
	require.NoError(t, err)
	require.Len(t, c2.input, listWindow)
}
