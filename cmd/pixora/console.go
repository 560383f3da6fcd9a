package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/BradenHooton/pixora/internal/flows"
	"github.com/BradenHooton/pixora/internal/notify"
)

// consoleNavigator prints route changes and remembers the current route
type consoleNavigator struct {
	mu    sync.Mutex
	out   io.Writer
	route string
}

func (n *consoleNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.route = route
	fmt.Fprintf(n.out, "-> %s\n", route)
}

func (n *consoleNavigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// printToasts writes each notification once, when it first appears in the
// queue. The returned func unsubscribes.
func printToasts(q *notify.Queue, out io.Writer) func() {
	var mu sync.Mutex
	seen := make(map[string]bool)

	return q.Subscribe(func(list []notify.Notification) {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range list {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			fmt.Fprintf(out, "[%s] %s\n", n.Kind, n.Message)
		}
	})
}

// prompter reads answers line by line. Input is echoed.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints label and returns the trimmed answer. io.EOF is returned only
// when the input ends before any text was read.
func (p *prompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askIfEmpty returns v, or prompts for it when v is empty
func (p *prompter) askIfEmpty(v, label string) (string, error) {
	if v != "" {
		return v, nil
	}
	return p.Ask(label)
}

// printFieldErrors writes form errors in a stable order
func printFieldErrors(out io.Writer, errs flows.FieldErrors) {
	for _, field := range slices.Sorted(maps.Keys(errs)) {
		fmt.Fprintf(out, "  %s: %s\n", field, errs[field])
	}
}
