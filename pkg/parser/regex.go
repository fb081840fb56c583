package parser

import "regexp"

// 既定のプレースホルダパターンなのだ。JS の正規表現リテラル形式で保持します。
// 1番目のキャプチャが付帯パラメータ、2番目がプロンプトです。
const (
	DefaultImagePattern = `/<img\b(?:(?:(?!\bprompt\b)[^>])*\blight_intensity\s*=\s*"([^"]*)")?(?:(?!\bprompt\b)[^>])*\bprompt\s*=\s*"([^"]*)"[^>]*>/gi`
	DefaultVideoPattern = `/<video\b(?:(?:(?!\bprompt\b)[^>])*\bvideoParams\s*=\s*"([^"]*)")?(?:(?!\bprompt\b)[^>])*\bprompt\s*=\s*"([^"]*)"[^>]*>/gi`
)

var (
	// ResolvedSrcRegex は生成済みメディアタグ（src 属性を持つもの）を検出します。
	ResolvedSrcRegex = regexp.MustCompile(`(?i)\bsrc\s*=`)

	// literalRegex は "/body/flags" 形式の正規表現リテラルを分解するのだ。
	literalRegex = regexp.MustCompile(`(?s)^/(.*)/([a-z]*)$`)
)
