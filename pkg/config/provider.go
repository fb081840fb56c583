package config

import (
	"sync"
	"time"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/parser"
)

// Provider は生成エンジンが参照する設定の窓口です。
// 値はイベントのたびに読み直されるので、実行中に設定が変わっても構いません。
type Provider interface {
	MediaKind() domain.MediaKind
	Pattern(kind domain.MediaKind) parser.PatternSpec
	Style(kind domain.MediaKind) string
	StreamingEnabled() bool
	ScanInterval() time.Duration
}

// StaticProvider はメモリ上の Settings を返す Provider なのだ。Update で差し替えられます。
type StaticProvider struct {
	mu       sync.RWMutex
	settings Settings
}

// NewStaticProvider は Settings を保持する Provider を作成します。
func NewStaticProvider(s Settings) *StaticProvider {
	return &StaticProvider{settings: s}
}

// Settings は現在の設定のコピーを返すのだ。
func (p *StaticProvider) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// Update は設定を差し替えます。
func (p *StaticProvider) Update(s Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s
}

func (p *StaticProvider) MediaKind() domain.MediaKind {
	kind, err := domain.ParseMediaKind(string(p.Settings().MediaType))
	if err != nil {
		return domain.MediaDisabled
	}
	return kind
}

func (p *StaticProvider) Pattern(kind domain.MediaKind) parser.PatternSpec {
	return p.Settings().Pattern(kind)
}

func (p *StaticProvider) Style(kind domain.MediaKind) string {
	return p.Settings().StyleFor(kind)
}

func (p *StaticProvider) StreamingEnabled() bool {
	return p.Settings().StreamMode
}

// ScanInterval はストリーミング中のスキャン間隔を返すのだ。未設定なら既定値です。
func (p *StaticProvider) ScanInterval() time.Duration {
	if d := p.Settings().StreamScanInterval; d > 0 {
		return d
	}
	return DefaultStreamScanInterval
}
