package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-chat-media-kit/internal/config"
	"github.com/shouni/go-chat-media-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// runCmd は、メッセージファイルを返信として再生し、メディア生成と置換を実行するのだ。
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "メッセージを再生してメディアを生成・置換するのだ。",
	Long: `メッセージファイルをアシスタントの返信としてチャットホストに流し込み、
プレースホルダの生成と置換を行うのだ。--stream を付けるとチャンクごとに流し込むのだよ。`,
	RunE: runCommand,
}

func init() {
	runCmd.Flags().StringVarP(&opts.MessageFile, "message", "m", "", "返信として再生するテキストファイルなのだ。")
	runCmd.Flags().StringVarP(&opts.OutputFile, "output", "o", config.DefaultOutputFile, "置換後の本文の保存先なのだ。")
	runCmd.Flags().BoolVar(&opts.Stream, "stream", false, "ストリーミングとして再生するのだ。")
	runCmd.Flags().BoolVar(&opts.Continue, "continue", false, "新しい返信ではなく続きの生成として再生するのだ。")
	runCmd.Flags().IntVar(&opts.ChunkSize, "chunk", config.DefaultChunkSize, "ストリーミング時の1チャンクの文字数なのだ。")
	runCmd.Flags().DurationVar(&opts.TokenInterval, "token-interval", config.DefaultTokenInterval, "ストリーミング時のチャンクの間隔なのだ。")
	runCmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "メディア生成の HTTP エンドポイントなのだ（省略時はモック）。")
	runCmd.Flags().StringVar(&opts.MockBaseURL, "mock-base-url", config.DefaultMockBaseURL, "モック生成時の URL の接頭辞なのだ。")
	_ = runCmd.MarkFlagRequired("message")
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 設定ファイルと環境変数から設定をロードするのだ
	cfg, err := config.LoadConfig(opts.SettingsFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗したのだ: %w", err)
	}
	cfg.Options = opts

	slog.Info("メディア生成エンジンを起動するのだ！",
		"message", opts.MessageFile,
		"media_type", cfg.Settings.MediaType,
		"stream", opts.Stream,
		"output", opts.OutputFile)

	// 2. 再生と生成を実行するのだ
	text, err := pipeline.Execute(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
