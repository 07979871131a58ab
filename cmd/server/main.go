package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "github.com/code-100-precent/maitri/internal/handler"
	"github.com/code-100-precent/maitri/pkg/chat"
	"github.com/code-100-precent/maitri/pkg/config"
	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/code-100-precent/maitri/pkg/llm"
	"github.com/code-100-precent/maitri/pkg/logger"
	"github.com/code-100-precent/maitri/pkg/memory"
	"github.com/code-100-precent/maitri/pkg/middleware"
	"github.com/code-100-precent/maitri/pkg/prompt"
	"github.com/code-100-precent/maitri/pkg/recognizer"
	"github.com/code-100-precent/maitri/pkg/synthesizer"
	"github.com/code-100-precent/maitri/pkg/voice"
	voicellm "github.com/code-100-precent/maitri/pkg/voice/llm"
	"github.com/code-100-precent/maitri/pkg/voice/tts"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	addrFlag := flag.String("addr", "", "HTTP serve address, overrides ADDR")
	flag.Parse()

	// 2. Set Environment Variables
	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
		os.Setenv("MODE", *mode)
	}

	// 3. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}
	cfg := config.GlobalConfig
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	// 4. Load Log Configuration
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	logger.Info("checked config",
		zap.String("addr", cfg.Addr),
		zap.String("mode", cfg.Mode),
		zap.String("llm", cfg.LLMProvider),
		zap.String("model", cfg.LLMModel),
		zap.String("tts", cfg.TTSProvider),
		zap.String("voicePath", cfg.VoicePath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. External engines
	provider, err := llm.NewLLMProvider(ctx, llm.Config{
		Provider: cfg.LLMProvider,
		ApiKey:   cfg.LLMApiKey,
		BaseURL:  cfg.LLMBaseURL,
	})
	if err != nil {
		logger.Fatal("create llm provider failed", zap.Error(err))
	}
	defer provider.Close()

	synth, err := synthesizer.NewSynthesisService(synthesizer.Config{
		Provider: cfg.TTSProvider,
		APIKey:   ttsAPIKey(cfg),
		Model:    cfg.TTSModel,
		Voice:    cfg.TTSVoice,
		Region:   cfg.AWSRegion,
	})
	if err != nil {
		logger.Fatal("create tts service failed", zap.Error(err))
	}

	errorHandler := errhandler.NewHandler(logger.Lg)
	generationCfg := voicellm.Config{
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.GenerationTimeout,
	}

	chatCfg := generationCfg
	chatCfg.Persona = prompt.ChatPersona
	chatService := chat.NewService(
		voicellm.NewService(provider, chatCfg, errorHandler, logger.Lg),
		memory.NewStore(cfg.MemoryMaxTurns, cfg.ChatSessionTTL),
		cfg.ChatMaxMessageLength,
		logger.Lg,
	)

	voiceCfg := generationCfg
	voiceCfg.Persona = prompt.VoicePersona
	speaker, err := tts.NewService(synth, tts.Config{
		Timeout:   cfg.SynthesisTimeout,
		FrameSize: cfg.TTSFrameSize,
		CacheSize: cfg.TTSCacheSize,
	}, logger.Lg)
	if err != nil {
		logger.Fatal("create speech delivery failed", zap.Error(err))
	}
	defer speaker.Close()

	transcribers := recognizer.NewTranscriberFactory()
	voiceHandler := voice.NewVoiceWebSocketHandler(voice.HandlerConfig{
		NewTranscriber: func() (recognizer.TranscribeService, error) {
			opt := recognizer.NewDeepgramASROption(cfg.DeepgramApiKey, cfg.ASRModel, cfg.ASRLanguage)
			if cfg.ASREndpointingMs > 0 {
				opt.EndpointingMs = cfg.ASREndpointingMs
			}
			return transcribers.CreateTranscriber(&opt)
		},
		Generator: voicellm.NewService(provider, voiceCfg, errorHandler, logger.Lg),
		Speaker:   speaker,
		Cooldown:  cfg.VoiceCooldown,
		MaxTurns:  cfg.MemoryMaxTurns,
		Context:   ctx,
		Logger:    logger.Lg,
	})

	h, err := handlers.NewHandlers(cfg, chatService, voiceHandler)
	if err != nil {
		logger.Fatal("create handlers failed", zap.Error(err))
	}

	// 6. Initialize Gin Routing
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(zap.L(), cfg.VoicePath))
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigin))
	h.Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. Start Server
	go func() {
		logger.Info("MAITRI server started", zap.String("addr", cfg.Addr), zap.String("voice", cfg.VoicePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", zap.Int("voiceSessions", voiceHandler.ActiveSessions()))

	voiceHandler.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

func ttsAPIKey(cfg *config.Config) string {
	switch synthesizer.TTSProvider(cfg.TTSProvider) {
	case synthesizer.ProviderOpenAI:
		return cfg.OpenAIApiKey
	case synthesizer.ProviderElevenLabs:
		return cfg.ElevenLabsApiKey
	default:
		return cfg.DeepgramApiKey
	}
}
