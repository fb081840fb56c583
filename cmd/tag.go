package cmd

import (
	"fmt"

	"github.com/shouni/go-chat-media-kit/internal/config"
	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/publisher"

	"github.com/spf13/cobra"
)

// tagCmd は、URL とプロンプトから生成済みメディアタグを組み立てて表示するのだ。
var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "生成済みメディアタグを組み立てるのだ。",
	RunE:  tagCommand,
}

var tagOpts struct {
	url    string
	prompt string
	params string
	kind   string
}

func init() {
	tagCmd.Flags().StringVar(&tagOpts.url, "url", "", "メディアの URL なのだ。")
	tagCmd.Flags().StringVar(&tagOpts.prompt, "prompt", "", "元のプロンプトなのだ。")
	tagCmd.Flags().StringVar(&tagOpts.params, "params", "", "付帯パラメータ（light_intensity や videoParams）なのだ。")
	tagCmd.Flags().StringVar(&tagOpts.kind, "kind", "", "メディア種別（image / video）。省略時は設定の値なのだ。")
	_ = tagCmd.MarkFlagRequired("url")
	_ = tagCmd.MarkFlagRequired("prompt")
}

func tagCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(opts.SettingsFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗したのだ: %w", err)
	}
	kind := cfg.Settings.MediaType
	if tagOpts.kind != "" {
		if kind, err = domain.ParseMediaKind(tagOpts.kind); err != nil {
			return err
		}
	}

	occ := domain.Occurrence{
		Prompt:     tagOpts.prompt,
		SideParams: tagOpts.params,
		HasParams:  tagOpts.params != "",
		Kind:       kind,
	}
	tag, err := publisher.BuildTag(tagOpts.url, occ, cfg.Settings.StyleFor(kind))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tag)
	return nil
}
