package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
)

// テンプレートの区切りは ${ } なのだ。{{ }} はホストの変数マクロが使うので避けています。
const (
	leftDelim  = "${"
	rightDelim = "}"
)

// TemplateData はプロンプトテンプレートに渡すデータです。
type TemplateData struct {
	Prompt string
	Params string
	Kind   domain.MediaKind
}

// FinalPrompt は共有変数へのディレクティブと、確定前のプロンプト本文の組です。
type FinalPrompt struct {
	Directives string
	Body       string
}

// String はホストに送る形式（ディレクティブ + 本文）で返すのだ。
func (p FinalPrompt) String() string {
	return p.Directives + p.Body
}

// PromptBuilder は最終プロンプトの雛形を組み立てる契約なのだ。
type PromptBuilder interface {
	Build(occ domain.Occurrence) (FinalPrompt, error)
}

// TemplatePromptBuilder はメディア種別ごとのテンプレートを保持します。
// テンプレートが未設定の種別では、プロンプトをそのまま使うのだ。
type TemplatePromptBuilder struct {
	templates map[domain.MediaKind]*template.Template
}

// NewTemplatePromptBuilder はテンプレート文字列を解析して PromptBuilder を作成します。
func NewTemplatePromptBuilder(sources map[domain.MediaKind]string) (*TemplatePromptBuilder, error) {
	parsed := make(map[domain.MediaKind]*template.Template)
	for kind, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		tmpl, err := template.New(string(kind)).Delims(leftDelim, rightDelim).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' の解析に失敗: %w", kind, err)
		}
		parsed[kind] = tmpl
	}
	return &TemplatePromptBuilder{templates: parsed}, nil
}

// Build はテンプレートを実行し、付帯パラメータのディレクティブと本文の組を返すのだ。
func (b *TemplatePromptBuilder) Build(occ domain.Occurrence) (FinalPrompt, error) {
	body := occ.Prompt
	if tmpl, ok := b.templates[occ.Kind]; ok {
		var sb strings.Builder
		data := TemplateData{Prompt: occ.Prompt, Params: occ.SideParams, Kind: occ.Kind}
		if err := tmpl.Execute(&sb, data); err != nil {
			return FinalPrompt{}, fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
		}
		body = sb.String()
	}
	return FinalPrompt{Directives: BuildDirectives(occ), Body: body}, nil
}
