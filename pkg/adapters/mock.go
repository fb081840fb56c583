package adapters

import (
	"context"
	"strings"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
)

// MockGenerator はネットワークを使わずに決まった URL を返す Generator なのだ。
// 動作確認やドライランで使います。
type MockGenerator struct {
	BaseURL string
}

// Generate はプロンプトの識別キーから URL を組み立てます。
func (g MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := domain.PromptKey(prompt)
	if key == "" {
		return "", ErrEmptyResponse
	}
	base := strings.TrimRight(g.BaseURL, "/")
	if base == "" {
		base = "mock://media"
	}
	return base + "/" + domain.ShortKey(key) + ".png", nil
}
