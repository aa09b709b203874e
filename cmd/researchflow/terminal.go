package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// terminal asks clarifying questions on in/out and prints delivered answers.
type terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out}
}

// Answer implements research.Answerer. End of input yields an empty answer.
func (t *terminal) Answer(ctx context.Context, n int, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprintf(t.out, "Q%d: %s\n> ", n, question)

	line, err := t.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read answer: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// Respond implements rag.Responder.
func (t *terminal) Respond(_ context.Context, markdown string) error {
	_, err := fmt.Fprintln(t.out, markdown)
	return err
}

// fixedAnswers answers every clarifying question with the same text, for
// non-interactive runs.
type fixedAnswers string

func (f fixedAnswers) Answer(context.Context, int, string) (string, error) {
	return string(f), nil
}

func printSources(out io.Writer, sources []string) {
	if len(sources) == 0 {
		return
	}

	fmt.Fprintln(out, "\nSources:")
	for i, s := range sources {
		fmt.Fprintf(out, "  [%d] %s\n", i+1, s)
	}
}
