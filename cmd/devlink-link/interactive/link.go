// Package interactive provides the interactive command-line interface
// for the DEVLINK linking client.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/devlink-protocol/devlink-go/pkg/provisioning"
	"github.com/devlink-protocol/devlink-go/pkg/transport"
	"github.com/devlink-protocol/devlink-go/pkg/wire"
)

// Session is the linking session the interactive client drives. This
// interface allows the interactive layer to access the session without
// depending on the main package's types.
type Session interface {
	// Connect opens the provisioning socket.
	Connect(ctx context.Context) error

	// Disconnect closes the provisioning socket.
	Disconnect()

	// State returns the socket's connection state.
	State() transport.State

	// DeviceID returns the assigned provisioning address, if any.
	DeviceID() string

	// URI returns the provisioning URI for the current attempt.
	URI() (*provisioning.URI, error)

	// Envelope returns the received provisioning envelope, if any.
	Envelope() *wire.ProvisioningEnvelope

	// DecryptEnvelope decrypts the received envelope.
	DecryptEnvelope() ([]byte, error)

	// LastError returns the transport error that ended the session, if any.
	LastError() error
}

// Client handles interactive mode for devlink-link.
type Client struct {
	session Session
	rl      *readline.Instance
}

// New creates a new interactive client.
func New(session Session) (*Client, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "devlink> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Client{
		session: session,
		rl:      rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Client) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Client) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Client) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "connect", "c":
			c.cmdConnect(ctx)

		case "disconnect", "d":
			c.cmdDisconnect()

		case "state":
			c.cmdState()

		case "uri", "qr":
			c.cmdURI()

		case "address", "addr":
			c.cmdAddress()

		case "message", "msg":
			c.cmdMessage()

		case "status":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Client) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
DEVLINK Linking Commands:
  Connection:
    connect            - Open the provisioning socket
    disconnect         - Close the provisioning socket
    state              - Show connection state

  Provisioning:
    uri                - Show the provisioning URI (QR payload)
    address            - Show the assigned provisioning address
    message            - Decrypt and show the received envelope

  General:
    status             - Show session status
    help               - Show this help
    quit               - Exit`)
}

// cmdConnect handles the connect command.
func (c *Client) cmdConnect(ctx context.Context) {
	if err := c.session.Connect(ctx); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Connected, waiting for provisioning...")
}

// cmdDisconnect handles the disconnect command.
func (c *Client) cmdDisconnect() {
	c.session.Disconnect()
	fmt.Fprintln(c.rl.Stdout(), "Disconnected")
}

// cmdState handles the state command.
func (c *Client) cmdState() {
	fmt.Fprintf(c.rl.Stdout(), "Connection state: %s\n", c.session.State())
}

// cmdURI handles the uri command.
func (c *Client) cmdURI() {
	u, err := c.session.URI()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Scan this on the primary device:")
	fmt.Fprintf(c.rl.Stdout(), "  %s\n", u)
}

// cmdAddress handles the address command.
func (c *Client) cmdAddress() {
	address := c.session.DeviceID()
	if address == "" {
		fmt.Fprintln(c.rl.Stdout(), "No provisioning address assigned yet (connect first)")
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Provisioning address: %s\n", address)
}

// cmdMessage handles the message command.
func (c *Client) cmdMessage() {
	plaintext, err := c.session.DecryptEnvelope()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Provisioning message (%d bytes):\n", len(plaintext))
	fmt.Fprintf(c.rl.Stdout(), "  %x\n", plaintext)
}

// cmdStatus shows the session status.
func (c *Client) cmdStatus() {
	fmt.Fprintln(c.rl.Stdout(), "\nSession Status")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  State:    %s\n", c.session.State())

	address := c.session.DeviceID()
	if address == "" {
		address = "(none)"
	}
	fmt.Fprintf(c.rl.Stdout(), "  Address:  %s\n", address)

	if env := c.session.Envelope(); env != nil {
		fmt.Fprintf(c.rl.Stdout(), "  Envelope: received (%d bytes)\n", len(env.Body))
	} else {
		fmt.Fprintln(c.rl.Stdout(), "  Envelope: not received")
	}

	if err := c.session.LastError(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "  Error:    %v\n", err)
	}
	fmt.Fprintln(c.rl.Stdout())
}
