package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"notelinks/internal/events"
)

// terminalPrompter asks for approval on a terminal.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *terminalPrompter) Confirm(ctx context.Context, path string, changes []events.Change) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "%s:\n", path)
	for _, c := range changes {
		fmt.Fprintf(p.out, "  %s -> %s\n", c.Old, c.New)
	}
	fmt.Fprint(p.out, "Apply? [y/N] ")

	answer, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
