package stream

import (
	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// threadMsg is one frame of the threaded-layer wire protocol (spec.md
// §6.5): a type tag plus a type-specific payload, carried over a
// bounded Go channel rather than a literal pipe (the channel gives us
// the same bounded-fifo backpressure with none of the framing work a
// real byte pipe would need).
type threadMsgKind byte

const (
	msgData threadMsgKind = iota
	msgReadAhead
	msgRead
	msgSyncWrite
	msgSkip
	msgSkipRelative
	msgSkipToEOF
	msgSkippable
	msgPosition
	msgTerminate

	msgAnswerReadEOF
	msgAnswerSkipDone
	msgAnswerSkippable
	msgAnswerPosition
	msgAnswerException
	msgAnswerData
)

type threadMsg struct {
	kind threadMsgKind
	data []byte
	n    int
	i    infinint.Int
	b    bool
	err  error
}

// Thread offloads a wrapped Stream onto a worker goroutine, communicating
// through two bounded channels (to-worker and to-caller), per spec.md
// §4.5/§6.5. It preserves ordering and EOF semantics: every request
// except ReadAhead (which gets none) gets exactly one answer, in order, matching the original's to-slave/to-master
// fifo pair.
type Thread struct {
	base
	toWorker chan threadMsg
	toCaller chan threadMsg
	done     chan struct{}
}

// NewThread starts a worker goroutine driving lower and returns the
// Stream handle the rest of the pile talks to. fifoDepth bounds the
// channel capacity (the "bounded fifos" of spec.md §4.5).
func NewThread(lower Stream, fifoDepth int) *Thread {
	if fifoDepth <= 0 {
		fifoDepth = 4
	}
	t := &Thread{
		toWorker: make(chan threadMsg, fifoDepth),
		toCaller: make(chan threadMsg, fifoDepth),
		done:     make(chan struct{}),
	}
	go t.run(lower)
	return t
}

func (t *Thread) run(lower Stream) {
	defer close(t.done)
	for msg := range t.toWorker {
		switch msg.kind {
		case msgData:
			n, err := lower.Write(msg.data)
			t.toCaller <- threadMsg{kind: msgAnswerException, n: n, err: err}
		case msgRead:
			buf := make([]byte, msg.n)
			n, err := lower.Read(buf)
			t.toCaller <- threadMsg{kind: msgAnswerData, data: buf[:n], err: err}
		case msgSyncWrite:
			t.toCaller <- threadMsg{kind: msgAnswerException, err: lower.SyncWrite()}
		case msgSkip:
			ok, err := lower.Skip(msg.i)
			t.toCaller <- threadMsg{kind: msgAnswerSkipDone, b: ok, err: err}
		case msgSkipRelative:
			ok, err := lower.SkipRelative(int64(msg.n))
			t.toCaller <- threadMsg{kind: msgAnswerSkipDone, b: ok, err: err}
		case msgSkipToEOF:
			ok, err := lower.SkipToEOF()
			t.toCaller <- threadMsg{kind: msgAnswerSkipDone, b: ok, err: err}
		case msgSkippable:
			ok := lower.Skippable(Direction(msg.n), msg.i)
			t.toCaller <- threadMsg{kind: msgAnswerSkippable, b: ok}
		case msgPosition:
			t.toCaller <- threadMsg{kind: msgAnswerPosition, i: lower.Position()}
		case msgReadAhead:
			lower.ReadAhead(msg.i)
		case msgTerminate:
			err := lower.Terminate()
			t.toCaller <- threadMsg{kind: msgAnswerException, err: err}
			return
		}
	}
}

func (t *Thread) call(req threadMsg) threadMsg {
	t.toWorker <- req
	return <-t.toCaller
}

func (t *Thread) Write(p []byte) (int, error) {
	if err := t.checkAlive(); err != nil {
		return 0, err
	}
	resp := t.call(threadMsg{kind: msgData, data: append([]byte(nil), p...)})
	return resp.n, resp.err
}

func (t *Thread) Read(p []byte) (int, error) {
	if err := t.checkAlive(); err != nil {
		return 0, err
	}
	resp := t.call(threadMsg{kind: msgRead, n: len(p)})
	if resp.err != nil && len(resp.data) == 0 {
		return 0, resp.err
	}
	n := copy(p, resp.data)
	return n, resp.err
}

func (t *Thread) Skip(pos infinint.Int) (bool, error) {
	resp := t.call(threadMsg{kind: msgSkip, i: pos})
	return resp.b, resp.err
}

func (t *Thread) SkipRelative(delta int64) (bool, error) {
	resp := t.call(threadMsg{kind: msgSkipRelative, n: int(delta)})
	return resp.b, resp.err
}

func (t *Thread) SkipToEOF() (bool, error) {
	resp := t.call(threadMsg{kind: msgSkipToEOF})
	return resp.b, resp.err
}

func (t *Thread) Position() infinint.Int {
	resp := t.call(threadMsg{kind: msgPosition})
	return resp.i
}

func (t *Thread) Skippable(dir Direction, amount infinint.Int) bool {
	resp := t.call(threadMsg{kind: msgSkippable, n: int(dir), i: amount})
	return resp.b
}

func (t *Thread) ReadAhead(amount infinint.Int) {
	t.toWorker <- threadMsg{kind: msgReadAhead, i: amount}
}

func (t *Thread) SyncWrite() error {
	resp := t.call(threadMsg{kind: msgSyncWrite})
	return resp.err
}

func (t *Thread) FlushRead() error {
	return nil
}

func (t *Thread) Terminate() error {
	if t.terminated {
		return nil
	}
	t.markTerminated()
	resp := t.call(threadMsg{kind: msgTerminate})
	close(t.toWorker)
	<-t.done
	return resp.err
}

var errThreadClosed = errtag.New(errtag.Bug, "threaded layer worker exited unexpectedly")
