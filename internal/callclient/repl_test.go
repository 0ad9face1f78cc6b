package callclient

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"asciisfu/internal/adapters"
	"asciisfu/internal/clientconfig"
	"asciisfu/internal/relay"
	"asciisfu/internal/signaling"
	"asciisfu/internal/wire"
)

// fakeTerminal feeds scripted lines to a REPL under test.
type fakeTerminal struct {
	lines chan string
}

func newFakeTerminal() *fakeTerminal {
	return &fakeTerminal{lines: make(chan string, 8)}
}

func (f *fakeTerminal) script(lines ...string) {
	for _, l := range lines {
		f.lines <- l
	}
}

func (f *fakeTerminal) ReadLine(ctx context.Context) (string, error) {
	select {
	case l, ok := <-f.lines:
		if !ok {
			return "", io.EOF
		}
		return l, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeTerminal) Printf(format string, args ...any) {}

func startSignalingAndRelay(t *testing.T) (controlAddr, mediaAddr string) {
	t.Helper()
	srv, err := signaling.NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	r := relay.New(srv.Calls)
	mediaLn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	mediaAddr = mediaLn.LocalAddr().String()
	mediaLn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Run(ctx)
	go r.Run(ctx, mediaAddr)
	time.Sleep(20 * time.Millisecond) // let the UDP listener rebind
	return srv.Addr().String(), mediaAddr
}

func rawLogin(t *testing.T, addr, username string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if err := wire.WriteMessage(conn, wire.WithString(wire.HelloFromClient, username)); err != nil {
		t.Fatalf("hello: %v", err)
	}
	msg, err := wire.ReadMessage(conn)
	if err != nil || msg.Cmd != wire.HelloFromServer {
		t.Fatalf("login failed: %+v, %v", msg, err)
	}
	return conn
}

// TestCallEndToEnd drives a full call between a REPL-backed Alice and a
// hand-rolled Bob, exercising request/accept, stream id exchange, and
// payload forwarding through the real relay.
func TestCallEndToEnd(t *testing.T) {
	controlAddr, mediaAddr := startSignalingAndRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bob := rawLogin(t, controlAddr, "Bob")
	aliceTransport, err := Dial(ctx, controlAddr)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	taken, err := Login(aliceTransport, "Alice")
	if err != nil || taken {
		t.Fatalf("alice login: taken=%v err=%v", taken, err)
	}

	// Bob learns about Alice; drain it.
	if msg, _ := wire.ReadMessage(bob); msg.Cmd != wire.AddUser {
		t.Fatalf("bob expected ADD_USER, got %+v", msg)
	}
	// Alice learns about Bob via her Incoming channel.
	addUser := <-aliceTransport.Incoming()
	if addUser.Cmd != wire.AddUser || addUser.Str != "Bob" {
		t.Fatalf("alice expected ADD_USER(Bob), got %+v", addUser)
	}

	term := newFakeTerminal()
	producer := adapters.NewSyntheticFrames([][]byte{[]byte("ALICE_FRAME")})
	consumer := &adapters.RecordingConsumer{}
	cfg := clientconfig.Config{}
	r := New("Alice", mediaAddr, aliceTransport, term, producer, consumer, cfg)
	r.mirror["Bob"] = true

	if quit, err := r.handleCommand("c Bob"); quit || err != nil {
		t.Fatalf("handleCommand: quit=%v err=%v", quit, err)
	}

	req, err := wire.ReadMessage(bob)
	if err != nil || req.Cmd != wire.RequestCall || req.Str != "Alice" {
		t.Fatalf("bob expected REQUEST_CALL(Alice), got %+v, %v", req, err)
	}
	if err := wire.WriteMessage(bob, wire.WithString(wire.StartCall, "Alice")); err != nil {
		t.Fatalf("bob start_call: %v", err)
	}

	startMsg := <-aliceTransport.Incoming()
	if err := r.handleControl(ctx, startMsg); err != nil {
		t.Fatalf("handleControl(START_CALL): %v", err)
	}
	if r.activePeer != "Bob" {
		t.Fatalf("expected active peer Bob, got %q", r.activePeer)
	}

	mediaErrCh := make(chan error, 1)
	go func() { mediaErrCh <- r.runMediaLoop(ctx, r.activePeer) }()

	if err := wire.WriteMessage(bob, wire.WithString(wire.RequestCallStreamID, "Alice")); err != nil {
		t.Fatalf("bob request sid: %v", err)
	}
	bobSidMsg, err := wire.ReadMessage(bob)
	if err != nil || bobSidMsg.Cmd != wire.SendCallStreamID {
		t.Fatalf("bob expected SEND_CALL_STREAM_ID, got %+v, %v", bobSidMsg, err)
	}
	bobSid := bobSidMsg.Sid

	bobMedia, err := net.Dial("udp", mediaAddr)
	if err != nil {
		t.Fatalf("bob media dial: %v", err)
	}
	defer bobMedia.Close()
	_ = bobMedia.SetDeadline(time.Now().Add(3 * time.Second))

	registerBob := make([]byte, 4)
	binary.BigEndian.PutUint32(registerBob, bobSid)
	if _, err := bobMedia.Write(registerBob); err != nil {
		t.Fatalf("bob register: %v", err)
	}

	// Alice's frame ticker sends ALICE_FRAME once her media session and
	// registration are established; Bob should receive it verbatim.
	buf := make([]byte, 4844)
	n, err := bobMedia.Read(buf)
	if err != nil {
		t.Fatalf("bob read: %v", err)
	}
	if string(buf[:n]) != "ALICE_FRAME" {
		t.Fatalf("bob received %q, want ALICE_FRAME", buf[:n])
	}

	bob.Close()
	select {
	case err := <-mediaErrCh:
		if err != errCallEnded {
			t.Fatalf("expected errCallEnded, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for media loop to end")
	}
}
