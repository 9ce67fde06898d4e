// Package terminal adapts the checkout UI collaborators to a text console.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"storefront-checkout/internal/checkout"
)

// Console prints notices and navigation to out and reads confirmations from in.
// With AssumeYes every confirm dialog is accepted without reading input.
type Console struct {
	AssumeYes bool

	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	routes []checkout.Route
	locked bool
}

func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) Notify(ctx context.Context, n checkout.Notice) (checkout.Answer, error) {
	if err := ctx.Err(); err != nil {
		return checkout.Answer{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "[%s] %s\n", strings.ToUpper(string(n.Level)), n.Title)
	if n.Text != "" {
		fmt.Fprintln(c.out, indent(n.Text))
	}
	if n.CancelText == "" {
		return checkout.Answer{Confirmed: true}, nil
	}
	if c.AssumeYes {
		fmt.Fprintf(c.out, "  %s: yes\n", n.ConfirmText)
		return checkout.Answer{Confirmed: true}, nil
	}

	fmt.Fprintf(c.out, "  %s? [y/N] (%s) ", n.ConfirmText, n.CancelText)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return checkout.Answer{}, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return checkout.Answer{Confirmed: true}, nil
	default:
		return checkout.Answer{}, nil
	}
}

func (c *Console) Navigate(_ context.Context, r checkout.Route) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = append(c.routes, r)
	fmt.Fprintf(c.out, "-> %s\n", r)
	return nil
}

// Last returns the most recent navigation target, or the zero Route.
func (c *Console) Last() checkout.Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.routes) == 0 {
		return checkout.Route{}
	}
	return c.routes[len(c.routes)-1]
}

// Lock hides the cursor while a flow owns the screen.
func (c *Console) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked {
		return
	}
	c.locked = true
	fmt.Fprint(c.out, hideCursor)
}

func (c *Console) Unlock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.locked {
		return
	}
	c.locked = false
	fmt.Fprint(c.out, showCursor)
}

func (c *Console) Locked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked
}

const (
	hideCursor = "\x1b[?25l"
	showCursor = "\x1b[?25h"
)

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
