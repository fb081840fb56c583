package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/httpkit"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultHTTPTimeout = 120 * time.Second
	maxResponseBytes   = 1 << 20
	promptQueryKey     = "prompt"
)

type generateResponse struct {
	URL string `json:"url"`
}

// HTTPGenerator はプロンプトをクエリに付けて HTTP エンドポイントを呼び出し、メディアの URL を受け取るのだ。
// 応答は {"url": "..."} 形式の JSON か、URL だけのプレーンテキストです。
// 同じプロンプトの同時リクエストは1回の呼び出しにまとめます。
type HTTPGenerator struct {
	endpoint *url.URL
	client   StreamFetcher
	group    singleflight.Group
}

// NewHTTPGenerator は HTTPGenerator を作成します。client が nil なら既定のタイムアウトの httpkit クライアントを使うのだ。
func NewHTTPGenerator(endpoint string, client StreamFetcher) (*HTTPGenerator, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("生成エンドポイントが指定されていません")
	}
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("生成エンドポイントの URL が不正です: %q", endpoint)
	}
	if client == nil {
		client = httpkit.New(DefaultHTTPTimeout)
	}
	return &HTTPGenerator{endpoint: u, client: client}, nil
}

// Generate はエンドポイントを呼び出して URL を返すのだ。
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	v, err, _ := g.group.Do(prompt, func() (any, error) {
		return g.fetch(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *HTTPGenerator) requestURL(prompt string) string {
	u := *g.endpoint
	q := u.Query()
	q.Set(promptQueryKey, prompt)
	u.RawQuery = q.Encode()
	return u.String()
}

func (g *HTTPGenerator) fetch(ctx context.Context, prompt string) (string, error) {
	rc, err := g.client.GetStream(ctx, g.requestURL(prompt))
	if err != nil {
		return "", fmt.Errorf("生成エンドポイントの呼び出しに失敗しました: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("応答の読み込みに失敗しました: %w", err)
	}

	body := strings.TrimSpace(string(data))
	if strings.HasPrefix(body, "{") {
		var out generateResponse
		if err := json.Unmarshal([]byte(body), &out); err != nil {
			return "", fmt.Errorf("応答の解析に失敗しました: %w", err)
		}
		body = strings.TrimSpace(out.URL)
	}
	if body == "" {
		return "", ErrEmptyResponse
	}
	return body, nil
}
