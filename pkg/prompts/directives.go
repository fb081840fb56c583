package prompts

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/macros"
)

// 付帯パラメータを受け取る共有変数の名前なのだ。
const (
	VarLightIntensity    = "light_intensity"
	VarSunshineIntensity = "sunshine_intensity"
	VarVideoFrameCount   = "videoFrameCount"
	VarVideoWidth        = "videoWidth"
	VarVideoHeight       = "videoHeight"
)

// LightIntensity は画像タグの light_intensity="光量,日差し" を表します。
type LightIntensity struct {
	Light    float64
	Sunshine float64
}

// ParseLightIntensity は "a,b" 形式を解析するのだ。
// 要素数が2でなければ false、数値として読めない要素は 0 になります。
func ParseLightIntensity(raw string) (LightIntensity, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return LightIntensity{}, false
	}
	return LightIntensity{
		Light:    parseRounded(parts[0]),
		Sunshine: parseRounded(parts[1]),
	}, true
}

// String は "a,b" 形式に戻すのだ。
func (li LightIntensity) String() string {
	return formatNumber(li.Light) + "," + formatNumber(li.Sunshine)
}

// VideoParams は動画タグの videoParams="フレーム数,幅,高さ" です。
type VideoParams struct {
	FrameCount string
	Width      string
	Height     string
}

// ParseVideoParams は "f,w,h" 形式を解析します。要素数が3でなければ false なのだ。
func ParseVideoParams(raw string) (VideoParams, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return VideoParams{}, false
	}
	return VideoParams{
		FrameCount: strings.TrimSpace(parts[0]),
		Width:      strings.TrimSpace(parts[1]),
		Height:     strings.TrimSpace(parts[2]),
	}, true
}

// BuildDirectives はプレースホルダの付帯パラメータから setvar ディレクティブ列を組み立てるのだ。
// パラメータが無い、または形式が不正な場合は空文字を返します。
func BuildDirectives(occ domain.Occurrence) string {
	if !occ.HasParams || strings.TrimSpace(occ.SideParams) == "" {
		return ""
	}

	switch occ.Kind {
	case domain.MediaImage:
		li, ok := ParseLightIntensity(occ.SideParams)
		if !ok {
			slog.Warn("light_intensity の形式が不正なので無視するのだ。\"数値,数値\" の形式にしてください", "value", occ.SideParams)
			return ""
		}
		return macros.SetVar(VarLightIntensity, formatNumber(li.Light)) +
			macros.SetVar(VarSunshineIntensity, formatNumber(li.Sunshine))
	case domain.MediaVideo:
		vp, ok := ParseVideoParams(occ.SideParams)
		if !ok {
			slog.Warn("videoParams の形式が不正なので無視するのだ。\"フレーム数,幅,高さ\" の形式にしてください", "value", occ.SideParams)
			return ""
		}
		return macros.SetVar(VarVideoFrameCount, vp.FrameCount) +
			macros.SetVar(VarVideoWidth, vp.Width) +
			macros.SetVar(VarVideoHeight, vp.Height)
	default:
		return ""
	}
}

// parseRounded は小数第2位までに丸めた値を返すのだ。読めない値は 0 です。
func parseRounded(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
