package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shouni/go-chat-media-kit/pkg/config"
	"github.com/shouni/go-chat-media-kit/pkg/domain"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultSettingsFile  = ""
	DefaultOutputFile    = "output/chat.txt"
	DefaultChunkSize     = 16
	DefaultTokenInterval = 50 * time.Millisecond
	DefaultMockBaseURL   = "mock://media"
	DefaultImageModel    = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout   = 30 * time.Second
)

// Config はアプリケーション全体の環境設定を保持する構造体なのだ。
type Config struct {
	Settings          config.Settings
	GeneratorEndpoint string
	GeminiAPIKey      string
	GeminiImageModel  string
	HTTPTimeout       time.Duration

	Options RunOptions
}

// RunOptions は CLI フラグから渡される実行時のパラメータなのだ。
type RunOptions struct {
	// 入力関連
	MessageFile  string // --message
	SettingsFile string // --settings
	OutputFile   string // --output

	// 再生関連
	Stream        bool          // --stream
	Continue      bool          // --continue
	ChunkSize     int           // --chunk
	TokenInterval time.Duration // --token-interval

	// 生成関連
	Endpoint    string // --endpoint
	MockBaseURL string // --mock-base-url
}

// LoadConfig は設定ファイルを読み込み、環境変数で上書きした設定を返すのだ！
func LoadConfig(settingsPath string) (*Config, error) {
	s, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}

	kind, err := domain.ParseMediaKind(envutil.GetEnv("MEDIA_TYPE", string(s.MediaType)))
	if err != nil {
		return nil, fmt.Errorf("環境変数 MEDIA_TYPE が不正です: %w", err)
	}
	s.MediaType = kind
	s.Style = envutil.GetEnv("MEDIA_STYLE", s.Style)
	s.OverridePattern(domain.MediaImage, envutil.GetEnv("MEDIA_IMAGE_REGEX", s.ImageRegex))
	s.OverridePattern(domain.MediaVideo, envutil.GetEnv("MEDIA_VIDEO_REGEX", s.VideoRegex))
	s.StreamMode = envBool("MEDIA_STREAM_MODE", s.StreamMode)
	s.StreamScanInterval = envDuration("MEDIA_SCAN_INTERVAL", s.StreamScanInterval)
	s.Cooldown = envDuration("MEDIA_COOLDOWN", s.Cooldown)
	s.RateInterval = envDuration("MEDIA_RATE_INTERVAL", s.RateInterval)

	return &Config{
		Settings:          s,
		GeneratorEndpoint: envutil.GetEnv("MEDIA_GENERATOR_ENDPOINT", ""),
		GeminiAPIKey:      envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiImageModel:  envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		HTTPTimeout:       envDuration("MEDIA_HTTP_TIMEOUT", DefaultHTTPTimeout),
	}, nil
}

func envBool(key string, fallback bool) bool {
	raw := envutil.GetEnv(key, strconv.FormatBool(fallback))
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("環境変数の値が真偽値ではないので無視するのだ", "key", key, "value", raw)
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := envutil.GetEnv(key, fallback.String())
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("環境変数の値が期間ではないので無視するのだ", "key", key, "value", raw)
		return fallback
	}
	return v
}
