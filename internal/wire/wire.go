// Package wire implements the control-transport codec: command byte values,
// default ports, and the framing rules for the reliable byte stream between
// client and server.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Command byte values. Numeric values are part of the external interface.
const (
	HelloFromClient      byte = 69
	HelloFromServer      byte = 70
	UsernameAlreadyTaken byte = 71
	AddUser              byte = 72
	RemoveUser           byte = 73
	RequestCall          byte = 74
	StartCall            byte = 75
	DenyCall             byte = 76
	RequestCallStreamID  byte = 77
	SendCallStreamID     byte = 78

	// EndCall is "any value not otherwise listed" per spec; this
	// implementation reserves the next unused value.
	EndCall byte = 79
)

// Default transport ports, overridable via CLI flags.
const (
	DefaultControlPort = 8080
	DefaultMediaPort   = 8081
)

// MaxStringLen is the largest payload a string-bearing frame may carry.
const MaxStringLen = 255

// ErrMalformedFrame is returned for any input the codec cannot parse:
// a zero-length string payload, payload that is not valid UTF-8, or EOF in
// the middle of a frame. EOF exactly at a frame boundary is not an error —
// ReadMessage returns io.EOF for that case so callers can distinguish clean
// closure from protocol violation.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// shape classifies how a command's payload is framed on the wire.
type shape int

const (
	shapeBare shape = iota
	shapeString
	shapeSid
)

var shapes = map[byte]shape{
	HelloFromServer:      shapeBare,
	UsernameAlreadyTaken: shapeBare,
	EndCall:              shapeBare,

	HelloFromClient:     shapeString,
	AddUser:             shapeString,
	RemoveUser:          shapeString,
	RequestCall:         shapeString,
	StartCall:           shapeString,
	DenyCall:            shapeString,
	RequestCallStreamID: shapeString,

	SendCallStreamID: shapeSid,
}

// Message is a single decoded (or to-be-encoded) control frame. Only the
// field matching the command's shape is meaningful: Str for string-bearing
// commands, Sid for SendCallStreamID, neither for bare commands.
type Message struct {
	Cmd byte
	Str string
	Sid uint32
}

// Bare builds a payload-less message.
func Bare(cmd byte) Message { return Message{Cmd: cmd} }

// WithString builds a string-bearing message.
func WithString(cmd byte, s string) Message { return Message{Cmd: cmd, Str: s} }

// WithSid builds a SendCallStreamID message.
func WithSid(sid uint32) Message { return Message{Cmd: SendCallStreamID, Sid: sid} }

// WriteMessage frames and writes m to w.
func WriteMessage(w io.Writer, m Message) error {
	sh, ok := shapes[m.Cmd]
	if !ok {
		return fmt.Errorf("wire: unknown command %d", m.Cmd)
	}

	switch sh {
	case shapeBare:
		_, err := w.Write([]byte{m.Cmd})
		return err

	case shapeString:
		n := len(m.Str)
		if n == 0 || n > MaxStringLen {
			return fmt.Errorf("wire: string payload length %d out of range 1..%d", n, MaxStringLen)
		}
		if !utf8.ValidString(m.Str) {
			return fmt.Errorf("wire: %w: payload is not valid UTF-8", ErrMalformedFrame)
		}
		buf := make([]byte, 2+n)
		buf[0] = m.Cmd
		buf[1] = byte(n)
		copy(buf[2:], m.Str)
		_, err := w.Write(buf)
		return err

	case shapeSid:
		var buf [5]byte
		buf[0] = m.Cmd
		binary.BigEndian.PutUint32(buf[1:], m.Sid)
		_, err := w.Write(buf[:])
		return err
	}
	return fmt.Errorf("wire: unhandled shape for command %d", m.Cmd)
}

// ReadMessage reads and decodes a single frame from r. An EOF encountered
// before any byte of a new frame is read is returned as-is (clean closure,
// not an error); EOF or any other read failure mid-frame is wrapped in
// ErrMalformedFrame.
func ReadMessage(r io.Reader) (Message, error) {
	var cmdBuf [1]byte
	if _, err := io.ReadFull(r, cmdBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("wire: %w: reading command byte: %v", ErrMalformedFrame, err)
	}
	cmd := cmdBuf[0]

	sh, ok := shapes[cmd]
	if !ok {
		return Message{}, fmt.Errorf("wire: %w: unknown command %d", ErrMalformedFrame, cmd)
	}

	switch sh {
	case shapeBare:
		return Message{Cmd: cmd}, nil

	case shapeString:
		var lenBuf [1]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Message{}, fmt.Errorf("wire: %w: reading length byte: %v", ErrMalformedFrame, err)
		}
		n := int(lenBuf[0])
		if n == 0 {
			return Message{}, fmt.Errorf("wire: %w: zero-length string payload", ErrMalformedFrame)
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, fmt.Errorf("wire: %w: reading %d-byte payload: %v", ErrMalformedFrame, n, err)
		}
		if !utf8.Valid(payload) {
			return Message{}, fmt.Errorf("wire: %w: payload is not valid UTF-8", ErrMalformedFrame)
		}
		return Message{Cmd: cmd, Str: string(payload)}, nil

	case shapeSid:
		var sidBuf [4]byte
		if _, err := io.ReadFull(r, sidBuf[:]); err != nil {
			return Message{}, fmt.Errorf("wire: %w: reading sid: %v", ErrMalformedFrame, err)
		}
		return Message{Cmd: cmd, Sid: binary.BigEndian.Uint32(sidBuf[:])}, nil
	}

	return Message{}, fmt.Errorf("wire: %w: unhandled shape for command %d", ErrMalformedFrame, cmd)
}

// NewReader wraps r for efficient repeated ReadMessage calls.
func NewReader(r io.Reader) *bufio.Reader {
	return bufio.NewReader(r)
}
