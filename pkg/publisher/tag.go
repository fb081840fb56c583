package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/prompts"
)

const (
	defaultLightIntensity = "0"
	imageOnClick          = "window.open(this.src)"
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#39;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeAttr は HTML 属性値に埋め込むための最小限のエスケープを行うのだ。
func EscapeAttr(v string) string {
	return attrEscaper.Replace(v)
}

// BuildTag は生成結果の URL から、メディア種別に応じた完成タグを組み立てます。
// 元のプロンプトと付帯パラメータは追跡用に属性として残すのだ。
func BuildTag(src string, occ domain.Occurrence, style string) (string, error) {
	switch occ.Kind {
	case domain.MediaImage:
		return BuildImageTag(src, occ, style), nil
	case domain.MediaVideo:
		return BuildVideoTag(src, occ, style), nil
	default:
		return "", fmt.Errorf("タグを組み立てられないメディア種別です: %q", occ.Kind)
	}
}

// BuildImageTag は img タグを組み立てるのだ。
// light_intensity は小数第2位に丸めた "a,b" 形式で、無い場合は "0" になります。
func BuildImageTag(src string, occ domain.Occurrence, style string) string {
	light := defaultLightIntensity
	if occ.HasParams {
		if li, ok := prompts.ParseLightIntensity(occ.SideParams); ok {
			light = li.String()
		}
	}

	var sb strings.Builder
	sb.WriteString(`<img src="`)
	sb.WriteString(EscapeAttr(src))
	sb.WriteString(`" light_intensity="`)
	sb.WriteString(EscapeAttr(light))
	sb.WriteString(`" prompt="`)
	sb.WriteString(EscapeAttr(occ.Prompt))
	sb.WriteString(`" style="`)
	sb.WriteString(EscapeAttr(style))
	sb.WriteString(`" onclick="`)
	sb.WriteString(imageOnClick)
	sb.WriteString(`" />`)
	return sb.String()
}

// BuildVideoTag は video タグを組み立てます。videoParams は指定があるときだけ付けるのだ。
func BuildVideoTag(src string, occ domain.Occurrence, style string) string {
	var sb strings.Builder
	sb.WriteString(`<video src="`)
	sb.WriteString(EscapeAttr(src))
	sb.WriteString(`"`)
	if occ.HasParams {
		params := occ.SideParams
		if vp, ok := prompts.ParseVideoParams(params); ok {
			params = strings.Join([]string{vp.FrameCount, vp.Width, vp.Height}, ",")
		}
		sb.WriteString(` videoParams="`)
		sb.WriteString(EscapeAttr(params))
		sb.WriteString(`"`)
	}
	sb.WriteString(` prompt="`)
	sb.WriteString(EscapeAttr(occ.Prompt))
	sb.WriteString(`" style="`)
	sb.WriteString(EscapeAttr(style))
	sb.WriteString(`" loop controls autoplay muted/>`)
	return sb.String()
}
