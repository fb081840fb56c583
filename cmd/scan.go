package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-chat-media-kit/internal/config"
	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/parser"

	"github.com/spf13/cobra"
)

// scanCmd は、メッセージ中のプレースホルダと識別キーを一覧表示するのだ。生成は行いません。
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "プレースホルダを抽出して識別キーを表示するのだ。",
	RunE:  scanCommand,
}

var scanMessageFile string

func init() {
	scanCmd.Flags().StringVarP(&scanMessageFile, "message", "m", "", "スキャンするテキストファイルなのだ。")
	_ = scanCmd.MarkFlagRequired("message")
}

func scanCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(opts.SettingsFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗したのだ: %w", err)
	}
	data, err := os.ReadFile(scanMessageFile)
	if err != nil {
		return fmt.Errorf("メッセージファイル '%s' の読み込みに失敗しました: %w", scanMessageFile, err)
	}

	kind := cfg.Settings.MediaType
	if !kind.Enabled() {
		fmt.Fprintln(cmd.OutOrStdout(), "メディア生成は無効なのだ")
		return nil
	}
	spec := cfg.Settings.Pattern(kind)
	if _, err := parser.Compile(spec); err != nil {
		return fmt.Errorf("パターンが不正なのだ: %w", err)
	}

	out := cmd.OutOrStdout()
	for i, occ := range parser.Extract(string(data), spec, kind) {
		fmt.Fprintf(out, "%d\t%s\t%s\t[%d:%d]\t%q", i+1, occ.Kind, domain.ShortKey(occ.Key()), occ.Start, occ.End, occ.Prompt)
		if occ.HasParams {
			fmt.Fprintf(out, "\tparams=%q", occ.SideParams)
		}
		fmt.Fprintln(out)
	}
	return nil
}
