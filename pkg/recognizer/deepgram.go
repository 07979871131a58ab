package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	interfacesv1 "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	websocketv1 "github.com/deepgram/deepgram-go-sdk/pkg/client/listen/v1/websocket"
	gonanoid "github.com/matoous/go-nanoid"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("deepgram asr: not connected")
	ErrStopped      = errors.New("deepgram asr: stopped")
)

type DeepgramASR struct {
	opt      DeepgramASROption
	dialogID string
	onResult TranscribeResult
	onError  ProcessError

	// mu 保护 client 与连接状态的切换
	mu        sync.Mutex
	client    *websocketv1.Client
	connected atomic.Bool
	stopped   atomic.Bool
	closeChan chan struct{}
	stopOnce  sync.Once
}

type DeepgramASROption struct {
	ApiKey            string `json:"apiKey" yaml:"api_key" env:"DEEPGRAM_API_KEY"`
	Model             string `json:"model" yaml:"model" default:"nova-2"`
	Language          string `json:"language" yaml:"language" default:"en-IN"`
	SampleRate        int    `json:"sampleRate" yaml:"sample_rate" default:"16000"`
	Channels          int    `json:"channels" yaml:"channels" default:"1"`
	Encoding          string `json:"encoding" yaml:"encoding" default:"linear16"`
	EndpointingMs     int    `json:"endpointingMs" yaml:"endpointing_ms" default:"300"`
	KeepAliveDuration string `json:"keepAliveDuration" yaml:"keep_alive_duration" default:"3s"`
}

func (o *DeepgramASROption) GetVendor() Vendor {
	return VendorDeepgram
}

func NewDeepgramASROption(apiKey string, model string, language string) DeepgramASROption {
	if model == "" {
		model = "nova-2"
	}
	if language == "" {
		language = "en-IN"
	}
	return DeepgramASROption{
		ApiKey:            apiKey,
		Model:             model,
		Language:          language,
		SampleRate:        16000,
		Channels:          1,
		Encoding:          "linear16",
		EndpointingMs:     300,
		KeepAliveDuration: "3s",
	}
}

func NewDeepgramASR(opt DeepgramASROption) *DeepgramASR {
	return &DeepgramASR{opt: opt, closeChan: make(chan struct{})}
}

func (dg *DeepgramASR) Init(tr TranscribeResult, er ProcessError) {
	dg.onResult = tr
	dg.onError = er
}

func (dg *DeepgramASR) Vendor() string {
	return string(VendorDeepgram)
}

func (dg *DeepgramASR) liveOptions() *interfaces.LiveTranscriptionOptions {
	opts := &interfaces.LiveTranscriptionOptions{
		Model:          dg.opt.Model,
		Language:       dg.opt.Language,
		SampleRate:     dg.opt.SampleRate,
		Channels:       dg.opt.Channels,
		Encoding:       dg.opt.Encoding,
		SmartFormat:    true,
		Punctuate:      true,
		InterimResults: true,
	}
	if dg.opt.EndpointingMs > 0 {
		opts.Endpointing = strconv.Itoa(dg.opt.EndpointingMs)
	}
	return opts
}

func (dg *DeepgramASR) ConnAndReceive(ctx context.Context) error {
	if dg.stopped.Load() {
		return ErrStopped
	}
	client.InitWithDefault()
	dg.dialogID, _ = gonanoid.Nanoid()

	c, err := client.NewWebSocketUsingCallback(ctx, dg.opt.ApiKey, &interfaces.ClientOptions{}, dg.liveOptions(), dg)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"dialogID": dg.dialogID,
			"error":    err,
		}).Error("deepgram asr: error on creating deepgram client")
		return fmt.Errorf("deepgram asr: create client: %w", err)
	}

	if !c.Connect() {
		logrus.WithFields(logrus.Fields{
			"dialogID": dg.dialogID,
		}).Error("deepgram asr: error on connecting to deepgram")
		return errors.New("deepgram asr: connect failed")
	}
	// 拨号期间会话可能已经结束
	if !dg.attach(c) {
		c.Stop()
		return ErrStopped
	}
	go dg.keepAlive()
	return nil
}

// attach 登记已连接的客户端，已 StopConn 时返回 false
func (dg *DeepgramASR) attach(c *websocketv1.Client) bool {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	if dg.stopped.Load() {
		return false
	}
	dg.client = c
	dg.connected.Store(true)
	return true
}

// activeClient 已连接时返回客户端，否则 nil
func (dg *DeepgramASR) activeClient() *websocketv1.Client {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	if !dg.connected.Load() {
		return nil
	}
	return dg.client
}

func (dg *DeepgramASR) Activity() bool {
	return dg.connected.Load()
}

func (dg *DeepgramASR) SendAudioBytes(data []byte) error {
	c := dg.activeClient()
	if c == nil {
		return ErrNotConnected
	}
	_, err := c.Write(data)
	return err
}

func (dg *DeepgramASR) SendEnd() error {
	c := dg.activeClient()
	if c == nil {
		return nil
	}
	return c.Finalize()
}

func (dg *DeepgramASR) StopConn() error {
	dg.stopOnce.Do(func() {
		dg.mu.Lock()
		dg.stopped.Store(true)
		dg.connected.Store(false)
		c := dg.client
		dg.mu.Unlock()

		close(dg.closeChan)
		if c != nil {
			c.Stop()
		}
	})
	return nil
}

func (dg *DeepgramASR) keepAlive() {
	keepAliveDuration, _ := time.ParseDuration(dg.opt.KeepAliveDuration)
	if keepAliveDuration <= 0 {
		keepAliveDuration = 3 * time.Second
	}

	ticker := time.NewTicker(keepAliveDuration)
	defer ticker.Stop()

	for {
		select {
		case <-dg.closeChan:
			return
		case <-ticker.C:
			c := dg.activeClient()
			if c == nil {
				return
			}
			if err := c.KeepAlive(); err != nil {
				logrus.WithFields(logrus.Fields{
					"dialogID": dg.dialogID,
				}).WithError(err).Error("deepgram asr: keep alive error")
				dg.emitError(err, false)
				return
			}
		}
	}
}

func (dg *DeepgramASR) emitResult(text string, isFinal bool) {
	if dg.onResult != nil {
		dg.onResult(text, isFinal)
	}
}

func (dg *DeepgramASR) emitError(err error, isFatal bool) {
	if dg.onError != nil {
		dg.onError(err, isFatal)
	}
}

func (dg *DeepgramASR) Open(or *interfacesv1.OpenResponse) error {
	logrus.WithFields(logrus.Fields{
		"dialogID": dg.dialogID,
	}).Info("deepgram asr: opening deepgram asr")
	return nil
}

func (dg *DeepgramASR) Message(mr *interfacesv1.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	dg.handleTranscript(mr.Channel.Alternatives[0].Transcript, mr.IsFinal)
	return nil
}

func (dg *DeepgramASR) handleTranscript(sentence string, isFinal bool) {
	if sentence == "" && !isFinal {
		return
	}
	logrus.WithFields(logrus.Fields{
		"dialogID": dg.dialogID,
		"sentence": sentence,
		"isFinal":  isFinal,
	}).Debug("deepgram asr: received message")
	dg.emitResult(sentence, isFinal)
}

func (dg *DeepgramASR) Metadata(md *interfacesv1.MetadataResponse) error {
	logrus.WithFields(logrus.Fields{
		"dialogID": dg.dialogID,
		"metadata": md,
	}).Debug("deepgram asr: metadata received")
	return nil
}

func (dg *DeepgramASR) SpeechStarted(ssr *interfacesv1.SpeechStartedResponse) error {
	return nil
}

func (dg *DeepgramASR) UtteranceEnd(ur *interfacesv1.UtteranceEndResponse) error {
	return nil
}

func (dg *DeepgramASR) Close(cr *interfacesv1.CloseResponse) error {
	dg.mu.Lock()
	wasConnected := dg.connected.Swap(false)
	dg.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"dialogID": dg.dialogID,
	}).Info("deepgram asr: closing deepgram asr")
	// 非本端主动关闭，视为连接中断
	if wasConnected && !dg.stopped.Load() {
		dg.emitError(errors.New("deepgram asr: connection closed by server"), true)
	}
	return nil
}

func (dg *DeepgramASR) Error(er *interfacesv1.ErrorResponse) error {
	errMsgFmt := fmt.Sprintf(
		"deepgram asr: error.type: %s, error.errcode: %s, error.description: %s",
		er.ErrCode,
		er.ErrMsg,
		er.Description,
	)
	logrus.WithFields(logrus.Fields{
		"dialogID": dg.dialogID,
	}).Error(errMsgFmt)
	dg.emitError(errors.New(errMsgFmt), false)
	return nil
}

func (dg *DeepgramASR) UnhandledEvent(byData []byte) error {
	logrus.WithFields(logrus.Fields{
		"dialogID": dg.dialogID,
		"data":     string(byData),
	}).Warning("deepgram asr: unhandled event")
	return nil
}
