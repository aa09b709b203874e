package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalAnswer(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(strings.NewReader("  only in Europe \nlast"), &out)

	a1, err := term.Answer(context.Background(), 1, "Which region?")
	require.NoError(t, err)
	assert.Equal(t, "only in Europe", a1)

	a2, err := term.Answer(context.Background(), 2, "Which year?")
	require.NoError(t, err)
	assert.Equal(t, "last", a2)

	a3, err := term.Answer(context.Background(), 3, "Anything else?")
	require.NoError(t, err)
	assert.Empty(t, a3)

	assert.Contains(t, out.String(), "Q1: Which region?")
	assert.Contains(t, out.String(), "Q3: Anything else?")
}

func TestTerminalAnswerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := newTerminal(strings.NewReader("x\n"), &out).Answer(ctx, 1, "q")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestTerminalRespond(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, newTerminal(strings.NewReader(""), &out).Respond(context.Background(), "**answer** [1]"))
	assert.Equal(t, "**answer** [1]\n", out.String())
}

func TestPrintSources(t *testing.T) {
	var out bytes.Buffer
	printSources(&out, nil)
	assert.Empty(t, out.String())

	printSources(&out, []string{"https://a.example", "docs/b.md"})
	assert.Equal(t, "\nSources:\n  [1] https://a.example\n  [2] docs/b.md\n", out.String())
}

func TestFixedAnswers(t *testing.T) {
	got, err := fixedAnswers("no preference").Answer(context.Background(), 4, "Scope?")
	require.NoError(t, err)
	assert.Equal(t, "no preference", got)
}
