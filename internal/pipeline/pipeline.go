package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-chat-media-kit/internal/builder"
	"github.com/shouni/go-chat-media-kit/internal/config"
	"github.com/shouni/go-chat-media-kit/internal/host"
)

// Execute はメッセージファイルをアシスタントの返信として再生し、生成と突き合わせまでを実行するのだ。
// 最終的な本文を返します。
func Execute(ctx context.Context, cfg *config.Config) (string, error) {
	data, err := os.ReadFile(cfg.Options.MessageFile)
	if err != nil {
		return "", fmt.Errorf("メッセージファイル '%s' の読み込みに失敗しました: %w", cfg.Options.MessageFile, err)
	}

	// ストリーミングで再生するときは、スキャンもストリーミング扱いにするのだ
	cfg.Settings.StreamMode = cfg.Settings.StreamMode || cfg.Options.Stream

	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return "", err
	}

	replayer := host.NewReplayer(appCtx.Host, host.ReplayOptions{
		Stream:        cfg.Options.Stream,
		Continue:      cfg.Options.Continue,
		ChunkSize:     cfg.Options.ChunkSize,
		TokenInterval: cfg.Options.TokenInterval,
	})
	slog.Info("返信の再生を開始するのだ", "stream", cfg.Options.Stream, "media_type", cfg.Settings.MediaType)
	if err := appCtx.Manager.Run(ctx, replayer.Replay(ctx, string(data))); err != nil {
		return "", fmt.Errorf("生成エンジンの実行中にエラーが発生したのだ: %w", err)
	}

	msg, _ := appCtx.Host.ActiveMessage()
	slog.Info("すべての生成工程が完了したのだ！",
		"cached", appCtx.Manager.Ledger().CachedCount(),
		"persisted", appCtx.Host.PersistCount(),
		"output", cfg.Options.OutputFile)
	return msg.Text, nil
}
