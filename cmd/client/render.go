package main

import (
	"context"
	"fmt"
	"io"

	"asciisfu/internal/adapters"
)

// terminalRenderer is the default FrameConsumer: it prints a one-line
// summary of each received frame rather than a real ASCII composite. Real
// webcam capture and image→ASCII conversion are external collaborators
// this module only models as interfaces (internal/adapters).
type terminalRenderer struct {
	out    io.Writer
	border bool
	local  []byte
}

func newTerminalRenderer(out io.Writer, border bool) *terminalRenderer {
	return &terminalRenderer{out: out, border: border}
}

func (r *terminalRenderer) RenderRemote(frame []byte) {
	if r.border {
		fmt.Fprintf(r.out, "+--peer frame (%d bytes)--+\n", len(frame))
		return
	}
	fmt.Fprintf(r.out, "peer frame: %d bytes\n", len(frame))
}

func (r *terminalRenderer) RenderLocal(frame []byte) {
	r.local = frame
}

// idleFrameProducer yields a single static placeholder frame every tick, in
// lieu of a real webcam-to-ASCII capture pipeline.
type idleFrameProducer struct {
	frame []byte
}

func newIdleFrameProducer() *idleFrameProducer {
	return &idleFrameProducer{frame: []byte("(no camera configured)")}
}

func (p *idleFrameProducer) NextFrame(ctx context.Context) ([]byte, error) {
	return p.frame, nil
}

var _ adapters.FrameConsumer = (*terminalRenderer)(nil)
var _ adapters.FrameProducer = (*idleFrameProducer)(nil)
