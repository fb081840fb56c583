package parser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
)

var imageSpec = PatternSpec{Expr: DefaultImagePattern, Fields: PositionalFieldMap}

func TestExtract_DefaultImagePattern(t *testing.T) {
	t.Run("付帯パラメータとプロンプトを名前付きフィールドで取り出すのだ", func(t *testing.T) {
		text := `Look: <img light_intensity="0.5,0.5" prompt="a cat">`
		got := Extract(text, imageSpec, domain.MediaImage)
		if len(got) != 1 {
			t.Fatalf("1件を期待したのだ: %d", len(got))
		}
		occ := got[0]
		if occ.FullMatch != `<img light_intensity="0.5,0.5" prompt="a cat">` {
			t.Errorf("FullMatch が違うのだ: %q", occ.FullMatch)
		}
		if occ.Prompt != "a cat" || occ.SideParams != "0.5,0.5" || !occ.HasParams {
			t.Errorf("フィールドが違うのだ: %+v", occ)
		}
		if occ.Kind != domain.MediaImage {
			t.Errorf("Kind が違うのだ: %s", occ.Kind)
		}
	})

	t.Run("パラメータ無しのタグ", func(t *testing.T) {
		got := Extract(`<IMG prompt="a dog"/>`, imageSpec, domain.MediaImage)
		if len(got) != 1 || got[0].Prompt != "a dog" || got[0].HasParams {
			t.Fatalf("期待と違うのだ: %+v", got)
		}
	})

	t.Run("生成済みのタグは除外されること", func(t *testing.T) {
		text := `<img src="http://x/cat.png" light_intensity="0.5,0.5" prompt="a cat" style="width:auto" />` +
			` and <img prompt="a bird">`
		got := Extract(text, imageSpec, domain.MediaImage)
		if len(got) != 1 || got[0].Prompt != "a bird" {
			t.Fatalf("未生成のタグだけを期待したのだ: %+v", got)
		}
	})

	t.Run("出現順に並び、オフセットはルーン単位", func(t *testing.T) {
		text := `画像: <img prompt="one"> と <img prompt="two">`
		got := Extract(text, imageSpec, domain.MediaImage)
		if len(got) != 2 {
			t.Fatalf("2件を期待したのだ: %d", len(got))
		}
		if got[0].Prompt != "one" || got[1].Prompt != "two" {
			t.Errorf("順序が違うのだ: %+v", got)
		}
		runes := []rune(text)
		for _, occ := range got {
			if string(runes[occ.Start:occ.End]) != occ.FullMatch {
				t.Errorf("オフセットが FullMatch と一致しないのだ: %+v", occ)
			}
		}
		if got[0].Start != 4 {
			t.Errorf("Start = %d, 期待値 4", got[0].Start)
		}
	})
}

func TestExtract_FirstOnlyWithoutGlobalFlag(t *testing.T) {
	spec := PatternSpec{Expr: `/<img\b[^>]*\bprompt\s*=\s*"([^"]*)"[^>]*>/i`}
	m, err := Compile(spec)
	if err != nil {
		t.Fatalf("コンパイルに失敗したのだ: %v", err)
	}
	if m.Global() {
		t.Error("g フラグ無しなのに Global になっているのだ")
	}
	got := m.Extract(`<img prompt="a"> <img prompt="b">`, domain.MediaImage)
	if len(got) != 1 || got[0].Prompt != "a" {
		t.Fatalf("最初の1件だけを期待したのだ: %+v", got)
	}
}

func TestExtract_FirstOnlySkipsResolvedTags(t *testing.T) {
	spec := PatternSpec{Expr: `/<img\b(?:(?:(?!\bprompt\b)[^>])*\blight_intensity\s*=\s*"([^"]*)")?(?:(?!\bprompt\b)[^>])*\bprompt\s*=\s*"([^"]*)"[^>]*>/i`}
	text := `<img src="http://x/a.png" prompt="a" style="s" /> then <img prompt="b">`
	got := Extract(text, spec, domain.MediaImage)
	if len(got) != 1 || got[0].Prompt != "b" {
		t.Fatalf("生成済みタグの次の1件を期待したのだ: %+v", got)
	}
}

func TestExtract_NamedGroups(t *testing.T) {
	spec := PatternSpec{Expr: `/<pic(?: params="(?<params>[^"]*)")? text="(?<prompt>[^"]*)">/g`}
	got := Extract(`<pic text="sky"> <pic params="24,512,512" text="sea">`, spec, domain.MediaVideo)
	if len(got) != 2 {
		t.Fatalf("2件を期待したのだ: %d", len(got))
	}
	if got[0].Prompt != "sky" || got[0].HasParams {
		t.Errorf("1件目が違うのだ: %+v", got[0])
	}
	if got[1].Prompt != "sea" || got[1].SideParams != "24,512,512" {
		t.Errorf("2件目が違うのだ: %+v", got[1])
	}
}

func TestExtract_DefaultVideoPattern(t *testing.T) {
	spec := PatternSpec{Expr: DefaultVideoPattern, Fields: PositionalFieldMap}
	got := Extract(`<video videoParams="16,640,480" prompt="waves">`, spec, domain.MediaVideo)
	if len(got) != 1 || got[0].Prompt != "waves" || got[0].SideParams != "16,640,480" {
		t.Fatalf("期待と違うのだ: %+v", got)
	}
}

func TestCompile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec PatternSpec
	}{
		{"空のパターン", PatternSpec{}},
		{"構文エラー", PatternSpec{Expr: `/(<img/g`}},
		{"未知のフラグ", PatternSpec{Expr: `/<img (.*)>/gq`}},
		{"存在しないグループ番号", PatternSpec{Expr: `/<img (.*)>/g`, Fields: FieldMap{Prompt: "3"}}},
		{"存在しないグループ名", PatternSpec{Expr: `/<img (.*)>/g`, Fields: FieldMap{Prompt: "text"}}},
		{"キャプチャ無し", PatternSpec{Expr: `/<img>/g`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.spec)
			if !errors.Is(err, ErrInvalidPattern) {
				t.Errorf("ErrInvalidPattern を期待したのだ: %v", err)
			}
			if got := Extract(`<img x>`, tt.spec, domain.MediaImage); got != nil {
				t.Errorf("不正なパターンでは空の結果を期待したのだ: %+v", got)
			}
		})
	}
}

func TestExtract_DisabledKind(t *testing.T) {
	if got := Extract(`<img prompt="a">`, imageSpec, domain.MediaDisabled); got != nil {
		t.Errorf("無効時は何も返さないのだ: %+v", got)
	}
}

func TestCompile_CacheIsBounded(t *testing.T) {
	for i := range maxCompiledPatterns + 8 {
		spec := PatternSpec{Expr: fmt.Sprintf(`/<pic%d ([^>]*)>/g`, i)}
		if _, err := Compile(spec); err != nil {
			t.Fatalf("Compile(%d): %v", i, err)
		}
	}
	cacheMu.Lock()
	n, order := len(compiled), len(compiledOrder)
	cacheMu.Unlock()
	if n > maxCompiledPatterns || order != n {
		t.Errorf("キャッシュ件数 = %d (順序 %d), 上限 %d", n, order, maxCompiledPatterns)
	}

	// 追い出された定義も再コンパイルできるのだ
	m, err := Compile(PatternSpec{Expr: `/<pic0 ([^>]*)>/g`})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := m.Extract("<pic0 a dog>", domain.MediaImage); len(got) != 1 || got[0].Prompt != "a dog" {
		t.Errorf("Extract = %+v", got)
	}
}
