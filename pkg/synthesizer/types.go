package synthesizer

const (
	TTS_DEEPGRAM   = "tts.deepgram"
	TTS_OPENAI     = "tts.openai"
	TTS_ELEVENLABS = "tts.elevenlabs"
	TTS_AWS        = "tts.aws"
)

// TTSProvider TTS服务提供商类型
type TTSProvider string

const (
	// ProviderDeepgram Deepgram Aura TTS
	ProviderDeepgram TTSProvider = "deepgram"
	// ProviderOpenAI OpenAI TTS
	ProviderOpenAI TTSProvider = "openai"
	// ProviderElevenLabs ElevenLabs TTS
	ProviderElevenLabs TTSProvider = "elevenlabs"
	// ProviderAWS Amazon Polly
	ProviderAWS TTSProvider = "aws"
)

func (p TTSProvider) ToString() string {
	return string(p)
}
