package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"minignet/client"
	"minignet/util"
)

// stdinArg as a payload argument means "read the payload from stdin".
const stdinArg = "-"

// broadcastArg as the recipient of send addresses every other gamer.
const broadcastArg = "*"

// RequestMode runs one client command and prints its result, one line
// per value.
type RequestMode struct {
	Client  *client.Client
	Command string
	Args    []string
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *RequestMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *RequestMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run executes the command.  The client's dialer is closed when Run
// returns.
func (m *RequestMode) Run(ctx context.Context) error {
	defer m.Client.Close()

	m.Logger.Verbose("%s in session %q as %q", m.Command, m.Client.Session(), m.Client.Gamer())

	out := m.stdout()
	c := m.Client

	switch m.Command {
	case "join":
		return m.ack(c.JoinSession(ctx))
	case "reset":
		return m.ack(c.ResetSession(ctx))
	case "start":
		return m.ack(c.StartSession(ctx))
	case "end":
		return m.ack(c.EndSession(ctx))
	case "next":
		return m.ack(c.NextGamer(ctx))

	case "turn":
		return m.printBool(c.IsGamerTurn(ctx))
	case "on":
		return m.printBool(c.IsGameOn(ctx))

	case "update":
		payload, err := m.payload(m.Args[0])
		if err != nil {
			return err
		}
		return m.ack(c.SendUpdate(ctx, payload))

	case "updates":
		updates, err := c.PreviousRoundUpdates(ctx)
		if err != nil {
			return err
		}
		gamers := make([]string, 0, len(updates))
		for g := range updates {
			gamers = append(gamers, g)
		}
		sort.Strings(gamers)
		for _, g := range gamers {
			if u := updates[g]; u != nil {
				fmt.Fprintf(out, "%s\t%s\n", g, u)
			} else {
				fmt.Fprintf(out, "%s\t(none)\n", g)
			}
		}
		return nil

	case "send":
		payload, err := m.payload(m.Args[1])
		if err != nil {
			return err
		}
		if to := m.Args[0]; to != broadcastArg {
			return m.ack(c.SendTo(ctx, to, payload))
		}
		return m.ack(c.Broadcast(ctx, payload))

	case "fetch":
		msgs, err := c.FetchAllMessages(ctx)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			fmt.Fprintf(out, "%s\t%s\t%s\n", msg.From, msg.To, msg.Payload)
		}
		return nil

	case "wait-turn":
		return m.ack(c.WaitForTurn(ctx))
	case "wait-game":
		return m.ack(c.WaitForGameOn(ctx))

	default:
		return fmt.Errorf("unknown command %q", m.Command)
	}
}

func (m *RequestMode) ack(err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(m.stdout(), "ok")
	return nil
}

func (m *RequestMode) printBool(v bool, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(m.stdout(), v)
	return nil
}

// payload resolves a payload argument; "-" reads stdin to EOF.
func (m *RequestMode) payload(arg string) ([]byte, error) {
	if arg != stdinArg {
		return []byte(arg), nil
	}
	data, err := io.ReadAll(m.stdin())
	if err != nil {
		return nil, fmt.Errorf("reading payload from stdin: %w", err)
	}
	return data, nil
}
