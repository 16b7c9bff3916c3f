package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mezonai/ppy/events"
	"github.com/mezonai/ppy/exception"
	"github.com/mezonai/ppy/types"
)

// attachPrompt subscribes a terminal prompt to bus and answers popups in the
// background until ctx ends or in is exhausted. The returned func detaches it.
func attachPrompt(ctx context.Context, bus *events.EventBus, in io.Reader, out io.Writer) func() {
	id, requests := bus.Subscribe()
	exception.SafeGo("PopupPrompt", func() {
		promptLoop(ctx, bus, requests, in, out)
	})
	return func() { bus.Unsubscribe(id) }
}

// promptLoop answers each request from a line of in. Anything other than
// y/yes rejects the request.
func promptLoop(ctx context.Context, bus *events.EventBus, requests <-chan types.PopupRequest, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			fmt.Fprintln(out, describePopup(req))
			fmt.Fprint(out, "approve? [y/N] ")
			if !scanner.Scan() {
				bus.Reject(req.ID, "input closed")
				return
			}
			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "y", "yes":
				bus.Approve(req.ID)
			default:
				bus.Reject(req.ID, "declined")
			}
		}
	}
}

func describePopup(req types.PopupRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s from %s on %s\n", req.Type, req.Origin, req.Payload.Network.Name)
	fmt.Fprintf(&b, "  key:          %s\n", req.PublicKey)
	if len(req.Payload.Participants) > 0 {
		fmt.Fprintf(&b, "  participants: %s\n", strings.Join(req.Payload.Participants, ", "))
	}
	if len(req.Payload.Transaction) > 0 {
		fmt.Fprintf(&b, "  transaction:  %s", string(req.Payload.Transaction))
	}
	return strings.TrimRight(b.String(), "\n")
}
