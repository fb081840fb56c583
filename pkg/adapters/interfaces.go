package adapters

import (
	"context"
	"io"

	"github.com/shouni/gemini-image-kit/ports"
)

// ImageAdapter は画像1枚の生成を担うのだ。gemini-image-kit の GeminiGenerator がこの形を満たします。
type ImageAdapter interface {
	GenerateMangaPanel(ctx context.Context, req ports.ImagePanelRequest) (*ports.ImageResponse, error)
}

// StreamFetcher は URL の内容をストリームで取得します。httpkit のクライアントがこの形を満たすのだ。
// 呼び出し側は戻り値を必ず Close すること。
type StreamFetcher interface {
	GetStream(ctx context.Context, url string) (io.ReadCloser, error)
}
