// Package adapters defines the interfaces through which the client call
// state machine (internal/callclient) reaches its external collaborators:
// the terminal, the webcam-to-ASCII frame producer, and the frame renderer.
// The core only depends on these shapes. The package also holds a
// stdin/stdout TerminalIO (stdio.go) and test doubles (synthetic.go); the
// real webcam capture and ASCII renderer are not implemented here.
package adapters

import "context"

// TerminalIO is the REPL's view of the terminal: one line of input at a
// time, and lines of output. Defining it as an interface lets the call
// state machine be tested against a scripted buffer instead of a real tty.
type TerminalIO interface {
	// ReadLine blocks for the next line of user input, trimmed of its
	// newline. It returns an error (typically io.EOF) when no more input
	// is available.
	ReadLine(ctx context.Context) (string, error)

	// Printf writes a formatted status or prompt line for the user.
	Printf(format string, args ...any)
}

// FrameProducer yields the next locally captured frame, already reduced to
// whatever opaque byte representation the wire carries. The core treats
// the bytes as opaque (spec: "the frame codec is opaque to the core").
type FrameProducer interface {
	// NextFrame returns the next frame to send, or an error if capture
	// failed. Called at the media loop's tick cadence.
	NextFrame(ctx context.Context) ([]byte, error)
}

// FrameConsumer renders a frame received from the peer, optionally
// composed alongside the most recent local frame.
type FrameConsumer interface {
	// RenderRemote displays a frame received from the peer.
	RenderRemote(frame []byte)

	// RenderLocal caches the most recently captured local frame so it can
	// be composed side-by-side with the remote one, when bordering is on.
	RenderLocal(frame []byte)
}
