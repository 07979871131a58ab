package recognizer

import (
	"fmt"
	"sync"
)

// Vendor 供应商类型
type Vendor string

const (
	// VendorDeepgram Deepgram
	VendorDeepgram Vendor = "deepgram"
)

// TranscriberConfig 统一的配置接口
type TranscriberConfig interface {
	GetVendor() Vendor
}

// DefaultTranscriberFactory 按供应商创建 TranscribeService
type DefaultTranscriberFactory struct {
	creators map[Vendor]func(TranscriberConfig) (TranscribeService, error)
	mu       sync.RWMutex
}

// NewTranscriberFactory 创建新的工厂实例
func NewTranscriberFactory() *DefaultTranscriberFactory {
	factory := &DefaultTranscriberFactory{
		creators: make(map[Vendor]func(TranscriberConfig) (TranscribeService, error)),
	}
	factory.RegisterCreator(VendorDeepgram, func(config TranscriberConfig) (TranscribeService, error) {
		opt, ok := config.(*DeepgramASROption)
		if !ok {
			return nil, fmt.Errorf("invalid config type for deepgram")
		}
		if opt.ApiKey == "" {
			return nil, fmt.Errorf("deepgram api key is required")
		}
		return NewDeepgramASR(*opt), nil
	})
	return factory
}

// RegisterCreator 注册创建函数，同名供应商会被覆盖
func (f *DefaultTranscriberFactory) RegisterCreator(vendor Vendor, creator func(TranscriberConfig) (TranscribeService, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[vendor] = creator
}

// CreateTranscriber 创建 TranscribeService
func (f *DefaultTranscriberFactory) CreateTranscriber(config TranscriberConfig) (TranscribeService, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	vendor := config.GetVendor()
	f.mu.RLock()
	creator, exists := f.creators[vendor]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("vendor %s not supported", vendor)
	}
	return creator(config)
}

// IsVendorSupported 检查供应商是否支持
func (f *DefaultTranscriberFactory) IsVendorSupported(vendor Vendor) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, exists := f.creators[vendor]
	return exists
}
