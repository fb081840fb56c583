package parser

import (
	"log/slog"

	"github.com/shouni/go-chat-media-kit/pkg/domain"

	"github.com/dlclark/regexp2"
)

// Extract は本文中のプレースホルダを左から順に抽出するのだ。
// パターンが g フラグ付きなら全件、そうでなければ生成済みタグを飛ばした最初の1件だけを返します。
// src 属性を持つ（生成済みの）タグは無条件に除外します。
func (m *Matcher) Extract(text string, kind domain.MediaKind) []domain.Occurrence {
	if text == "" {
		return nil
	}

	var out []domain.Occurrence
	match, err := m.re.FindStringMatch(text)
	for match != nil {
		if occ, ok := m.occurrence(match, kind); ok {
			out = append(out, occ)
			if !m.global {
				break
			}
		}
		match, err = m.re.FindNextMatch(match)
	}
	if err != nil {
		// タイムアウト等。ここまでに見つかった分だけを返すのだ
		slog.Warn("プレースホルダの抽出が途中で失敗したのだ", "kind", kind, "found", len(out), "error", err)
	}
	return out
}

func (m *Matcher) occurrence(match *regexp2.Match, kind domain.MediaKind) (domain.Occurrence, bool) {
	full := match.String()
	if ResolvedSrcRegex.MatchString(full) {
		return domain.Occurrence{}, false
	}
	prompt, _ := m.prompt.lookup(match)
	params, hasParams := m.params.lookup(match)
	return domain.Occurrence{
		FullMatch:  full,
		Prompt:     prompt,
		SideParams: params,
		HasParams:  hasParams && params != "",
		Kind:       kind,
		Start:      match.Index,
		End:        match.Index + match.Length,
	}, true
}

// Extract はパターン定義から直接抽出する便利関数です。
// パターンが不正な場合はログを出して空の結果を返し、呼び出し元には投げないのだ。
func Extract(text string, spec PatternSpec, kind domain.MediaKind) []domain.Occurrence {
	if !kind.Enabled() {
		return nil
	}
	m, err := Compile(spec)
	if err != nil {
		slog.Error("プレースホルダのパターンが不正なのだ", "kind", kind, "pattern", spec.Expr, "error", err)
		return nil
	}
	return m.Extract(text, kind)
}
