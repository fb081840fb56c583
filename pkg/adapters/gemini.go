package adapters

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/gemini-image-kit/ports"
)

// ErrEmptyResponse は生成サービスが中身の無い応答を返したことを示すのだ。
var ErrEmptyResponse = errors.New("generation service returned an empty response")

const defaultMimeType = "image/png"

// GeminiOptions は画像生成リクエストの固定パラメータです。
type GeminiOptions struct {
	Model          string
	AspectRatio    string
	NegativePrompt string
	// Seed が0以外なら全リクエストで同じシードを使うのだ
	Seed int64
}

// GeminiGenerator は ImageAdapter を Generator として使うためのアダプターなのだ。
// 生成した画像はそのままタグに埋め込めるよう data URL にして返します。
type GeminiGenerator struct {
	adapter ImageAdapter
	opts    GeminiOptions
}

// NewGeminiGenerator は GeminiGenerator を作成します。
func NewGeminiGenerator(adapter ImageAdapter, opts GeminiOptions) *GeminiGenerator {
	return &GeminiGenerator{adapter: adapter, opts: opts}
}

// Generate はプロンプトから画像を生成し、data URL を返すのだ。
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	opts := ports.GenerationOptions{
		Model:          g.opts.Model,
		Prompt:         prompt,
		NegativePrompt: g.opts.NegativePrompt,
		AspectRatio:    g.opts.AspectRatio,
	}
	if g.opts.Seed != 0 {
		s := g.opts.Seed
		opts.Seed = &s
	}
	req := ports.ImagePanelRequest{GenerationOptions: opts}

	resp, err := g.adapter.GenerateMangaPanel(ctx, req)
	if err != nil {
		return "", fmt.Errorf("画像生成に失敗しました: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return "", ErrEmptyResponse
	}
	return DataURL(resp.MimeType, resp.Data), nil
}

// DataURL は画像データを data URL に変換します。
func DataURL(mimeType string, data []byte) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
