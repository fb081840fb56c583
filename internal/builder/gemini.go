package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	imagekit "github.com/shouni/gemini-image-kit/generator"
	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-http-kit/httpkit"
	"google.golang.org/genai"
)

const (
	defaultGeminiTemperature = float32(0.2)
	// 参照画像のアップロード結果を保持するキャッシュの設定なのだ
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = 1 * time.Hour
	defaultCacheTTL        = 1 * time.Hour
)

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// InitializeImageGenerator は GeminiImageCore を組み立て、画像1枚を生成するアダプターを返すのだ。
func InitializeImageGenerator(aiClient gemini.GenerativeModel, httpClient httpkit.HTTPClient) (*imagekit.GeminiGenerator, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	core, err := imagekit.NewGeminiImageCore(
		aiClient,
		localReader{},
		httpClient,
		imgCache,
		defaultCacheTTL,
		false,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
	}

	gen, err := imagekit.NewGeminiGenerator(core)
	if err != nil {
		return nil, fmt.Errorf("画像アダプターの初期化に失敗しました: %w", err)
	}
	return gen, nil
}

// localReader は参照画像をローカルファイルから読み込むのだ。
// プレースホルダからの生成は参照画像を使わないので、ここに来るのは明示的なファイル指定だけです。
type localReader struct{}

func (localReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(uri)
}
