package config

const (
	defaultDataDir           = "~/.local/share/readinghub"
	defaultLogDir            = "~/.local/share/readinghub/logs"
	defaultAPIBind           = "127.0.0.1:7410"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultOCRRequestTimeout = 60
	defaultOCRMaxImageBytes  = 10 << 20
	defaultOCRBatchSize      = 10
	defaultOCRMaxConcurrent  = 4
	defaultOCRPollInterval   = 3
	defaultNotifyTimeout     = 10
	defaultCardWidth         = 1080
	defaultCardHeight        = 1080
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		OCR: OCR{
			RequestTimeout: defaultOCRRequestTimeout,
			MaxImageBytes:  defaultOCRMaxImageBytes,
			BatchSize:      defaultOCRBatchSize,
			MaxConcurrent:  defaultOCRMaxConcurrent,
			PollInterval:   defaultOCRPollInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Batch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		ShareCard: ShareCard{
			Width:  defaultCardWidth,
			Height: defaultCardHeight,
		},
	}
}
