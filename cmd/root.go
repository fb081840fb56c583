package cmd

import (
	"log/slog"
	"os"

	"github.com/shouni/go-chat-media-kit/internal/config"

	"github.com/spf13/cobra"
)

var (
	opts    config.RunOptions
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "chatmedia",
	Short: "チャットの返信に埋め込まれたメディアのプレースホルダを生成・置換するのだ。",
	Long: `アシスタントの返信に含まれる <img prompt="..."> などのプレースホルダを抽出し、
同じプロンプトは一度だけ生成して、生成済みのメディアタグに置き換えるのだ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVarP(&opts.SettingsFile, "settings", "s", config.DefaultSettingsFile, "設定ファイル（YAML）のパスなのだ。")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力するのだ。")
}

// preRunAppE は、コマンド実行前にロガーを設定するのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(runCmd, scanCmd, tagCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
