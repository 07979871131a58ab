package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/code-100-precent/maitri/pkg/llm"
	"github.com/code-100-precent/maitri/pkg/memory"
	"github.com/code-100-precent/maitri/pkg/recognizer"
	"github.com/code-100-precent/maitri/pkg/synthesizer"
	voicellm "github.com/code-100-precent/maitri/pkg/voice/llm"
	"github.com/code-100-precent/maitri/pkg/voice/tts"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type inbound struct {
	messageType int
	data        []byte
}

type fakeConn struct {
	in        chan inbound
	closed    chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	out       []inbound
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan inbound), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-c.in:
		return m.messageType, m.data, nil
	case <-c.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, inbound{messageType, append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(t *testing.T, messageType int, data []byte) {
	select {
	case c.in <- inbound{messageType, data}:
	case <-time.After(waitFor):
		t.Fatal("read loop not consuming")
	}
}

func (c *fakeConn) written() []inbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]inbound(nil), c.out...)
}

type fakeTranscriber struct {
	mu         sync.Mutex
	tr         recognizer.TranscribeResult
	er         recognizer.ProcessError
	ready      chan struct{}
	connectErr error
	connected  bool
	audio      []string
	ended      bool
	stopped    bool
}

func (f *fakeTranscriber) Init(tr recognizer.TranscribeResult, er recognizer.ProcessError) {
	f.tr, f.er = tr, er
}

func (f *fakeTranscriber) Vendor() string { return "fake" }

func (f *fakeTranscriber) ConnAndReceive(ctx context.Context) error {
	if f.ready != nil {
		select {
		case <-f.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTranscriber) Activity() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTranscriber) SendAudioBytes(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, string(data))
	return nil
}

func (f *fakeTranscriber) SendEnd() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = true
	return nil
}

func (f *fakeTranscriber) StopConn() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.connected = false
	return nil
}

func (f *fakeTranscriber) snapshot() (audio []string, ended, stopped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.audio...), f.ended, f.stopped
}

// scriptedProvider 按调用顺序返回预设结果
type scriptedProvider struct {
	mu      sync.Mutex
	replies []func(ctx context.Context) (string, error)
	prompts []string
}

func (p *scriptedProvider) Provider() llm.ProviderType { return "scripted" }
func (p *scriptedProvider) Close() error               { return nil }

func (p *scriptedProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	idx := len(p.prompts)
	p.prompts = append(p.prompts, req.Messages[len(req.Messages)-1].Content)
	var next func(ctx context.Context) (string, error)
	if idx < len(p.replies) {
		next = p.replies[idx]
	}
	p.mu.Unlock()
	if next == nil {
		return "ok", nil
	}
	return next(ctx)
}

func (p *scriptedProvider) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

func reply(text string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return text, nil }
}

type recordingSynth struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSynth) Provider() synthesizer.TTSProvider { return "recording" }
func (s *recordingSynth) CacheKey(text string) string      { return text }
func (s *recordingSynth) Close() error                     { return nil }

func (s *recordingSynth) Synthesize(ctx context.Context, h synthesizer.SynthesisHandler, text string) error {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	h.OnMessage([]byte("audio:" + text))
	return nil
}

func (s *recordingSynth) synthesized() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(1700000000, 0).Add(d)
}

type harness struct {
	session  *Session
	conn     *fakeConn
	tr       *fakeTranscriber
	provider *scriptedProvider
	synth    *recordingSynth
	clock    *fakeClock
	done     chan struct{}
	closedCh chan struct{}
}

func newHarness(t *testing.T, tr *fakeTranscriber, replies ...func(context.Context) (string, error)) *harness {
	t.Helper()
	if tr == nil {
		tr = &fakeTranscriber{}
	}
	h := &harness{
		conn:     newFakeConn(),
		tr:       tr,
		provider: &scriptedProvider{replies: replies},
		synth:    &recordingSynth{},
		clock:    &fakeClock{},
		done:     make(chan struct{}),
		closedCh: make(chan struct{}),
	}
	h.clock.Set(0)

	speaker, err := tts.NewService(h.synth, tts.Config{Timeout: time.Second}, nil)
	require.NoError(t, err)
	generator := voicellm.NewService(h.provider, voicellm.Config{Persona: "be kind", Timeout: time.Second}, nil, nil)

	h.session, err = NewSession(&SessionConfig{
		ID:          "test",
		Conn:        h.conn,
		Transcriber: tr,
		Generator:   generator,
		Speaker:     speaker,
		Cooldown:    2000 * time.Millisecond,
		MaxTurns:    20,
		Clock:       h.clock.Now,
		OnClose:     func(*Session) { close(h.closedCh) },
	})
	require.NoError(t, err)

	go func() {
		h.session.Run()
		close(h.done)
	}()
	t.Cleanup(func() {
		h.conn.Close()
		<-h.done
	})
	return h
}

func (h *harness) waitOpen(t *testing.T) {
	require.Eventually(t, func() bool { return h.session.State() == StateOpen }, waitFor, tick)
}

func (h *harness) idle(t *testing.T) {
	require.Eventually(t, func() bool { return !h.session.GateState().Busy }, waitFor, tick)
}

func TestSessionScenarioReplyDelivered(t *testing.T) {
	h := newHarness(t, nil, reply("I hear you — let's breathe together 🌬️"))
	h.waitOpen(t)

	h.tr.tr("I feel", false)
	h.tr.tr("I feel anxious", true)

	require.Eventually(t, func() bool { return len(h.conn.written()) == 2 }, waitFor, tick)
	h.idle(t)

	out := h.conn.written()
	assert.Equal(t, websocket.BinaryMessage, out[0].messageType)
	assert.Equal(t, "audio:I hear you — let's breathe together 🌬️", string(out[0].data))
	assert.Equal(t, websocket.TextMessage, out[1].messageType)
	assert.JSONEq(t, `{"type":"tts_end"}`, string(out[1].data))

	assert.Equal(t, []memory.Turn{{Human: "I feel anxious", Assistant: "I hear you — let's breathe together 🌬️"}}, h.session.Memory().Snapshot())
	assert.Equal(t, []string{"I hear you — let's breathe together 🌬️"}, h.synth.synthesized())
	assert.Equal(t, []string{"I feel anxious"}, h.provider.calls())
}

func TestSessionScenarioOverlapDropped(t *testing.T) {
	h := newHarness(t, nil, reply("first reply"), reply("third reply"))
	h.waitOpen(t)

	h.tr.tr("first", true)
	require.Eventually(t, func() bool { return len(h.conn.written()) == 2 }, waitFor, tick)
	h.idle(t)

	h.clock.Set(500 * time.Millisecond)
	h.tr.tr("second", true)

	h.clock.Set(2000 * time.Millisecond)
	h.tr.tr("third", true)

	require.Eventually(t, func() bool { return len(h.conn.written()) == 4 }, waitFor, tick)
	assert.Equal(t, []string{"first", "third"}, h.provider.calls())
}

func TestSessionGateUsesArrivalTime(t *testing.T) {
	h := newHarness(t, nil, reply("first reply"))
	h.waitOpen(t)

	h.tr.tr("first", true)
	require.Eventually(t, func() bool { return len(h.conn.written()) == 2 }, waitFor, tick)
	h.idle(t)

	h.clock.Set(500 * time.Millisecond)
	h.tr.tr("too soon", true)
	h.clock.Set(5 * time.Second)

	assert.Never(t, func() bool { return len(h.provider.calls()) > 1 }, 200*time.Millisecond, tick)
	assert.Equal(t, []string{"first"}, h.provider.calls())
}

func TestSessionScenarioQuotaError(t *testing.T) {
	quota := func(context.Context) (string, error) {
		return "", errors.New("429 You exceeded your current quota")
	}
	h := newHarness(t, nil, quota, reply("feeling better?"))
	h.waitOpen(t)

	h.tr.tr("one", true)
	require.Eventually(t, func() bool { return len(h.provider.calls()) == 1 }, waitFor, tick)
	h.idle(t)

	assert.Empty(t, h.conn.written())
	assert.Equal(t, 0, h.session.Memory().Len())
	assert.Equal(t, StateOpen, h.session.State())

	h.clock.Set(2000 * time.Millisecond)
	h.tr.tr("two", true)

	require.Eventually(t, func() bool { return len(h.conn.written()) == 2 }, waitFor, tick)
	assert.Equal(t, []memory.Turn{{Human: "two", Assistant: "feeling better?"}}, h.session.Memory().Snapshot())
}

func TestSessionDropsAudioBeforeOpen(t *testing.T) {
	tr := &fakeTranscriber{ready: make(chan struct{})}
	h := newHarness(t, tr)

	h.conn.send(t, websocket.BinaryMessage, []byte("early"))
	h.conn.send(t, websocket.TextMessage, []byte(`{"hello":1}`))
	assert.Equal(t, StateConnecting, h.session.State())

	close(tr.ready)
	h.waitOpen(t)

	h.conn.send(t, websocket.BinaryMessage, []byte("late"))
	h.conn.send(t, websocket.TextMessage, []byte("ignored"))

	audio, _, _ := tr.snapshot()
	assert.Equal(t, []string{"late"}, audio)
}

func TestSessionClientDisconnect(t *testing.T) {
	h := newHarness(t, nil)
	h.waitOpen(t)

	h.conn.Close()
	select {
	case <-h.done:
	case <-time.After(waitFor):
		t.Fatal("session did not stop")
	}

	assert.Equal(t, StateClosed, h.session.State())
	_, ended, stopped := h.tr.snapshot()
	assert.True(t, ended)
	assert.True(t, stopped)
	<-h.closedCh
}

func TestSessionDiscardsInFlightReplyOnDisconnect(t *testing.T) {
	unblock := make(chan struct{})
	slow := func(ctx context.Context) (string, error) {
		<-unblock
		return "too late", nil
	}
	h := newHarness(t, nil, slow)
	h.waitOpen(t)

	h.tr.tr("hello", true)
	require.Eventually(t, func() bool { return len(h.provider.calls()) == 1 }, waitFor, tick)

	h.conn.Close()
	<-h.done
	close(unblock)
	h.idle(t)

	assert.Equal(t, 0, h.session.Memory().Len())
	assert.Empty(t, h.conn.written())
	assert.Empty(t, h.synth.synthesized())
}

func TestSessionRecognizerConnectFailure(t *testing.T) {
	tr := &fakeTranscriber{connectErr: errors.New("dial tcp: refused")}
	h := newHarness(t, tr)

	select {
	case <-h.done:
	case <-time.After(waitFor):
		t.Fatal("session did not close after connect failure")
	}
	assert.Equal(t, StateClosed, h.session.State())
}

func TestSessionFatalRecognizerError(t *testing.T) {
	h := newHarness(t, nil)
	h.waitOpen(t)

	h.tr.er(errors.New("stream reset"), false)
	assert.Equal(t, StateOpen, h.session.State())

	h.tr.er(errors.New("socket closed"), true)
	select {
	case <-h.done:
	case <-time.After(waitFor):
		t.Fatal("session did not close after fatal recognizer error")
	}
	assert.Equal(t, StateClosed, h.session.State())
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(nil)
	assert.Error(t, err)
	_, err = NewSession(&SessionConfig{Conn: newFakeConn()})
	assert.Error(t, err)
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
}
