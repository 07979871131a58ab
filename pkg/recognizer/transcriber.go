package recognizer

import "context"

// TranscribeService 流式语音识别服务
type TranscribeService interface {
	// Init 注册识别结果与错误回调，必须在 ConnAndReceive 之前调用
	Init(tr TranscribeResult, er ProcessError)
	Vendor() string
	// ConnAndReceive 建立识别连接，返回后即可发送音频
	ConnAndReceive(ctx context.Context) error
	// Activity 连接是否可用
	Activity() bool
	SendAudioBytes(data []byte) error
	// SendEnd 通知音频结束，服务端会刷新尚未返回的结果
	SendEnd() error
	StopConn() error
}

// TranscribeResult 识别结果回调，isFinal 为 true 时文本不会再被修正
type TranscribeResult func(text string, isFinal bool)

// ProcessError 识别错误回调
type ProcessError func(err error, isFatal bool)
