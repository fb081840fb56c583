package builder

import (
	"context"
	"testing"

	"github.com/shouni/go-chat-media-kit/internal/config"
	"github.com/shouni/go-chat-media-kit/pkg/adapters"
	pkgconfig "github.com/shouni/go-chat-media-kit/pkg/config"
	"github.com/shouni/go-chat-media-kit/pkg/domain"
)

func newConfig() *config.Config {
	return &config.Config{Settings: pkgconfig.DefaultSettings()}
}

func TestBuildGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("エンドポイントがあれば HTTP", func(t *testing.T) {
		cfg := newConfig()
		cfg.GeneratorEndpoint = "https://env.example/generate"
		cfg.GeminiAPIKey = "ignored-key"
		gen, err := BuildGenerator(ctx, cfg)
		if err != nil {
			t.Fatalf("BuildGenerator: %v", err)
		}
		if _, ok := gen.(*adapters.HTTPGenerator); !ok {
			t.Errorf("Generator = %T", gen)
		}
	})

	t.Run("不正なエンドポイント", func(t *testing.T) {
		cfg := newConfig()
		cfg.Options.Endpoint = "not a url"
		if _, err := BuildGenerator(ctx, cfg); err == nil {
			t.Error("エラーにならないのだ")
		}
	})

	t.Run("何も無ければモック", func(t *testing.T) {
		cfg := newConfig()
		cfg.Options.MockBaseURL = "https://cdn.example"
		gen, err := BuildGenerator(ctx, cfg)
		if err != nil {
			t.Fatalf("BuildGenerator: %v", err)
		}
		mock, ok := gen.(adapters.MockGenerator)
		if !ok || mock.BaseURL != "https://cdn.example" {
			t.Errorf("Generator = %#v", gen)
		}
	})

	t.Run("動画では Gemini を使わない", func(t *testing.T) {
		cfg := newConfig()
		cfg.Settings.MediaType = domain.MediaVideo
		cfg.GeminiAPIKey = "test-key"
		gen, err := BuildGenerator(ctx, cfg)
		if err != nil {
			t.Fatalf("BuildGenerator: %v", err)
		}
		if _, ok := gen.(adapters.MockGenerator); !ok {
			t.Errorf("Generator = %T", gen)
		}
	})
}
