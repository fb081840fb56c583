package pipeline

import (
	"context"
)

// Generator は外部のメディア生成サービスなのだ。
// 空文字（空白のみを含む）の戻り値はソフトな失敗、エラーはハードな失敗として扱います。
// タイムアウトは Generator 側の責務です。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc は関数を Generator として使うためのアダプターなのだ。
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate は f(ctx, prompt) を呼び出します。
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
