package adapters

import "context"

// SyntheticFrames produces a fixed, repeating sequence of frames. Used in
// place of a real webcam+ASCII pipeline by tests, the way the teacher's
// testbot drove synthetic traffic instead of a real microphone.
type SyntheticFrames struct {
	frames [][]byte
	next   int
}

// NewSyntheticFrames returns a FrameProducer cycling through frames. If
// frames is empty, NextFrame always returns a single zero-length frame.
func NewSyntheticFrames(frames [][]byte) *SyntheticFrames {
	return &SyntheticFrames{frames: frames}
}

// NextFrame implements FrameProducer.
func (s *SyntheticFrames) NextFrame(ctx context.Context) ([]byte, error) {
	if len(s.frames) == 0 {
		return nil, nil
	}
	f := s.frames[s.next%len(s.frames)]
	s.next++
	return f, nil
}

// RecordingConsumer implements FrameConsumer by appending every received
// frame to an in-memory slice, for assertions in tests.
type RecordingConsumer struct {
	Remote [][]byte
	Local  [][]byte
}

// RenderRemote implements FrameConsumer.
func (r *RecordingConsumer) RenderRemote(frame []byte) {
	cp := append([]byte(nil), frame...)
	r.Remote = append(r.Remote, cp)
}

// RenderLocal implements FrameConsumer.
func (r *RecordingConsumer) RenderLocal(frame []byte) {
	cp := append([]byte(nil), frame...)
	r.Local = append(r.Local, cp)
}
