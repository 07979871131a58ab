package tts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/code-100-precent/maitri/pkg/synthesizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSynth struct {
	audio []byte
	err   error
	delay time.Duration
	calls int
}

func (s *stubSynth) Provider() synthesizer.TTSProvider { return "stub" }
func (s *stubSynth) CacheKey(text string) string      { return "stub-" + text }
func (s *stubSynth) Close() error                     { return nil }

func (s *stubSynth) Synthesize(ctx context.Context, h synthesizer.SynthesisHandler, text string) error {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	if len(s.audio) > 0 {
		h.OnMessage(s.audio)
	}
	return nil
}

type frame struct {
	binary bool
	data   []byte
}

type recordingSink struct {
	frames []frame
}

func (r *recordingSink) SendTTSAudio(ctx context.Context, data []byte) error {
	r.frames = append(r.frames, frame{binary: true, data: data})
	return nil
}

func (r *recordingSink) SendTTSEnd(ctx context.Context) error {
	r.frames = append(r.frames, frame{binary: false})
	return nil
}

func TestDeliverSendsAudioThenEnd(t *testing.T) {
	svc, err := NewService(&stubSynth{audio: []byte("audio")}, Config{}, nil)
	require.NoError(t, err)

	sink := &recordingSink{}
	require.NoError(t, svc.Deliver(context.Background(), sink, "hello"))
	require.Len(t, sink.frames, 2)
	assert.True(t, sink.frames[0].binary)
	assert.Equal(t, []byte("audio"), sink.frames[0].data)
	assert.False(t, sink.frames[1].binary)
}

func TestDeliverFramed(t *testing.T) {
	svc, err := NewService(&stubSynth{audio: []byte("abcdefg")}, Config{FrameSize: 3}, nil)
	require.NoError(t, err)

	sink := &recordingSink{}
	require.NoError(t, svc.Deliver(context.Background(), sink, "hello"))
	require.Len(t, sink.frames, 4)
	assert.Equal(t, "abc", string(sink.frames[0].data))
	assert.Equal(t, "def", string(sink.frames[1].data))
	assert.Equal(t, "g", string(sink.frames[2].data))
	assert.False(t, sink.frames[3].binary)
}

func TestDeliverFailureSendsNothing(t *testing.T) {
	tests := []struct {
		name  string
		synth *stubSynth
		cfg   Config
	}{
		{"engine error", &stubSynth{err: errors.New("503")}, Config{}},
		{"no audio", &stubSynth{}, Config{}},
		{"timeout", &stubSynth{audio: []byte("x"), delay: time.Second}, Config{Timeout: 20 * time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.synth, tt.cfg, nil)
			require.NoError(t, err)
			sink := &recordingSink{}
			err = svc.Deliver(context.Background(), sink, "hello")
			require.Error(t, err)
			assert.Equal(t, errhandler.KindSynthesis, errhandler.KindOf(err))
			assert.Empty(t, sink.frames)
		})
	}
}

func TestSynthesizeUsesCache(t *testing.T) {
	synth := &stubSynth{audio: []byte("audio")}
	svc, err := NewService(synth, Config{CacheSize: 4}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		audio, err := svc.Synthesize(context.Background(), "same text")
		require.NoError(t, err)
		assert.Equal(t, []byte("audio"), audio)
	}
	assert.Equal(t, 1, synth.calls)
}

func TestSynthesizeAfterClose(t *testing.T) {
	svc, err := NewService(&stubSynth{audio: []byte("a")}, Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	_, err = svc.Synthesize(context.Background(), "hi")
	assert.Equal(t, errhandler.KindSynthesis, errhandler.KindOf(err))
}

func TestFrames(t *testing.T) {
	assert.Equal(t, [][]byte{[]byte("abc")}, Frames([]byte("abc"), 0))
	assert.Equal(t, [][]byte{[]byte("abc")}, Frames([]byte("abc"), 3))
	assert.Len(t, Frames(make([]byte, 10), 4), 3)
}
