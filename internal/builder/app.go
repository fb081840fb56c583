package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-chat-media-kit/internal/config"
	"github.com/shouni/go-chat-media-kit/internal/host"
	"github.com/shouni/go-chat-media-kit/pkg/adapters"
	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/notify"
	"github.com/shouni/go-chat-media-kit/pkg/pipeline"
	"github.com/shouni/go-chat-media-kit/pkg/workflow"

	"github.com/shouni/go-http-kit/httpkit"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持するのだ。
type AppContext struct {
	Config  *config.Config    // 設定ファイルと環境変数から読み込まれた設定です
	Options config.RunOptions // コマンドラインから渡された実行時の設定です
	Host    *host.Host        // シミュレーション用のチャットホストです
	Manager *workflow.Manager // 組み立て済みの生成エンジンです
}

// NewAppContext は Host と生成エンジンを組み立てて AppContext を返すのだ。
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	gen, err := BuildGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	h := host.New(cfg.Options.OutputFile)
	m, err := workflow.New(workflow.ManagerArgs{
		Host:      h,
		Settings:  cfg.Settings,
		Generator: gen,
		Notifier:  notify.LogNotifier{},
	})
	if err != nil {
		return nil, fmt.Errorf("生成エンジンの初期化に失敗したのだ: %w", err)
	}

	return &AppContext{
		Config:  cfg,
		Options: cfg.Options,
		Host:    h,
		Manager: m,
	}, nil
}

// BuildGenerator は設定に応じて Generator を選ぶのだ。
//  1. エンドポイントの指定があれば HTTP（フラグが環境変数より優先）
//  2. GEMINI_API_KEY があり、生成対象が画像なら Gemini
//  3. どちらも無ければモック
func BuildGenerator(ctx context.Context, cfg *config.Config) (pipeline.Generator, error) {
	endpoint := cfg.Options.Endpoint
	if endpoint == "" {
		endpoint = cfg.GeneratorEndpoint
	}
	if endpoint != "" {
		slog.Info("HTTP エンドポイントで生成するのだ", "endpoint", endpoint)
		gen, err := adapters.NewHTTPGenerator(endpoint, httpkit.New(httpTimeout(cfg)))
		if err != nil {
			return nil, err
		}
		return gen, nil
	}

	if cfg.GeminiAPIKey != "" {
		if cfg.Settings.MediaType == domain.MediaImage {
			return buildGeminiGenerator(ctx, cfg)
		}
		slog.Warn("Gemini は画像しか生成できないのでモックを使うのだ", "media_type", cfg.Settings.MediaType)
	}

	base := cfg.Options.MockBaseURL
	if base == "" {
		base = config.DefaultMockBaseURL
	}
	slog.Info("エンドポイントが無いのでモックで生成するのだ", "base_url", base)
	return adapters.MockGenerator{BaseURL: base}, nil
}

func buildGeminiGenerator(ctx context.Context, cfg *config.Config) (pipeline.Generator, error) {
	aiClient, err := InitializeAIClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	imageAdapter, err := InitializeImageGenerator(aiClient, httpkit.New(httpTimeout(cfg)))
	if err != nil {
		return nil, err
	}

	model := cfg.GeminiImageModel
	if model == "" {
		model = config.DefaultImageModel
	}
	slog.Info("Gemini で画像を生成するのだ", "image_model", model)
	return adapters.NewGeminiGenerator(imageAdapter, adapters.GeminiOptions{Model: model}), nil
}

func httpTimeout(cfg *config.Config) time.Duration {
	if cfg.HTTPTimeout > 0 {
		return cfg.HTTPTimeout
	}
	return config.DefaultHTTPTimeout
}
