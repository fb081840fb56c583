package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/ledger"
	"github.com/shouni/go-chat-media-kit/pkg/parser"

	"gopkg.in/yaml.v3"
)

// デフォルト値の定義
const (
	DefaultMediaType          = domain.MediaImage
	DefaultStyle              = "width:auto;height:auto"
	DefaultVideoStyle         = "width:100%;height:auto"
	DefaultStreamScanInterval = 2 * time.Second
	DefaultCooldown           = ledger.DefaultCooldown
	DefaultRetention          = ledger.DefaultRetention
	DefaultRateInterval       = 0
	DefaultRateBurst          = 1
)

// Settings は拡張機能の永続設定に相当する構造体なのだ。
type Settings struct {
	// --- 生成対象 ---
	MediaType  domain.MediaKind `yaml:"media_type"`
	ImageRegex string           `yaml:"image_regex"`
	VideoRegex string           `yaml:"video_regex"`
	// パターンのキャプチャとプロンプト・付帯パラメータの対応。
	// 空ならパターンから決まります（名前付きグループ prompt/params、無ければ番号順）。
	ImageFields parser.FieldMap `yaml:"image_fields"`
	VideoFields parser.FieldMap `yaml:"video_fields"`

	// --- 出力 ---
	Style string `yaml:"style"`
	// プロンプトテンプレート（${.Prompt} などを使う）。空ならプロンプトをそのまま送ります。
	ImagePromptTemplate string `yaml:"image_prompt_template"`
	VideoPromptTemplate string `yaml:"video_prompt_template"`

	// --- ストリーミング ---
	StreamMode         bool          `yaml:"stream_mode"`
	StreamScanInterval time.Duration `yaml:"stream_scan_interval"`

	// --- 生成制御 ---
	Cooldown     time.Duration `yaml:"cooldown"`
	Retention    time.Duration `yaml:"retention"`
	RateInterval time.Duration `yaml:"rate_interval"`
	RateBurst    int           `yaml:"rate_burst"`
}

// DefaultSettings は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultSettings() Settings {
	return Settings{
		MediaType:          DefaultMediaType,
		ImageRegex:         parser.DefaultImagePattern,
		VideoRegex:         parser.DefaultVideoPattern,
		Style:              DefaultStyle,
		StreamMode:         false,
		StreamScanInterval: DefaultStreamScanInterval,
		Cooldown:           DefaultCooldown,
		Retention:          DefaultRetention,
		RateInterval:       DefaultRateInterval,
		RateBurst:          DefaultRateBurst,
	}
}

// LoadSettings は YAML ファイルから設定を読み込むのだ。
// ファイルに無い項目はデフォルト値のままになります。path が空ならデフォルト設定を返します。
func LoadSettings(path string) (Settings, error) {
	if path == "" {
		return DefaultSettings(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	s, err := ParseSettings(data)
	if err != nil {
		return s, fmt.Errorf("設定ファイル %s: %w", path, err)
	}
	return s, nil
}

// ParseSettings は YAML をデフォルト設定の上に重ねて読み込みます。
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("設定の解析に失敗しました: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate は設定値の整合性を確認します。
func (s Settings) Validate() error {
	var errs []error
	if _, err := domain.ParseMediaKind(string(s.MediaType)); err != nil {
		errs = append(errs, err)
	}
	if s.StreamScanInterval < 0 {
		errs = append(errs, fmt.Errorf("stream_scan_interval は0以上で指定してください: %s", s.StreamScanInterval))
	}
	if s.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown は0以上で指定してください: %s", s.Cooldown))
	}
	if s.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("rate_burst は0以上で指定してください: %d", s.RateBurst))
	}
	return errors.Join(errs...)
}

// Pattern はメディア種別ごとのパターン定義を返すのだ。
func (s Settings) Pattern(kind domain.MediaKind) parser.PatternSpec {
	switch kind {
	case domain.MediaImage:
		return parser.PatternSpec{Expr: s.ImageRegex, Fields: s.ImageFields}
	case domain.MediaVideo:
		return parser.PatternSpec{Expr: s.VideoRegex, Fields: s.VideoFields}
	default:
		return parser.PatternSpec{}
	}
}

// OverridePattern はパターンを差し替え、古いパターン用のフィールド対応を捨てるのだ。
func (s *Settings) OverridePattern(kind domain.MediaKind, expr string) {
	switch kind {
	case domain.MediaImage:
		if expr != s.ImageRegex {
			s.ImageRegex, s.ImageFields = expr, parser.FieldMap{}
		}
	case domain.MediaVideo:
		if expr != s.VideoRegex {
			s.VideoRegex, s.VideoFields = expr, parser.FieldMap{}
		}
	}
}

// StyleFor は種別に応じた style 属性を返します。
// 動画で style が未指定の場合は横幅いっぱいの既定値を使うのだ。
func (s Settings) StyleFor(kind domain.MediaKind) string {
	style := strings.TrimSpace(s.Style)
	if style == "" && kind == domain.MediaVideo {
		return DefaultVideoStyle
	}
	return style
}

// PromptTemplates はプロンプトテンプレートを種別ごとのマップで返します。
func (s Settings) PromptTemplates() map[domain.MediaKind]string {
	return map[domain.MediaKind]string{
		domain.MediaImage: s.ImagePromptTemplate,
		domain.MediaVideo: s.VideoPromptTemplate,
	}
}

// LedgerOptions は Ledger 用の設定を返すのだ。
func (s Settings) LedgerOptions() ledger.Options {
	return ledger.Options{Cooldown: s.Cooldown, Retention: s.Retention}
}
