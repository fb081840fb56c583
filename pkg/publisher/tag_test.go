package publisher

import (
	"testing"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/parser"
)

func TestBuildImageTag(t *testing.T) {
	t.Run("光量パラメータ付き", func(t *testing.T) {
		occ := domain.Occurrence{Kind: domain.MediaImage, Prompt: "a cat", SideParams: "0.5,0.5", HasParams: true}
		got := BuildImageTag("http://x/cat.png", occ, "width:auto;height:auto")
		want := `<img src="http://x/cat.png" light_intensity="0.5,0.5" prompt="a cat" style="width:auto;height:auto" onclick="window.open(this.src)" />`
		if got != want {
			t.Errorf("BuildImageTag()\n got: %s\nwant: %s", got, want)
		}
	})

	t.Run("パラメータ無しは0になるのだ", func(t *testing.T) {
		occ := domain.Occurrence{Kind: domain.MediaImage, Prompt: "a dog"}
		got := BuildImageTag("u", occ, "")
		want := `<img src="u" light_intensity="0" prompt="a dog" style="" onclick="window.open(this.src)" />`
		if got != want {
			t.Errorf("BuildImageTag()\n got: %s\nwant: %s", got, want)
		}
	})

	t.Run("属性値はエスケープされること", func(t *testing.T) {
		occ := domain.Occurrence{Kind: domain.MediaImage, Prompt: `say "hi" & <wave> it's`}
		got := BuildImageTag(`http://x/?a=1&b="2"`, occ, "")
		want := `<img src="http://x/?a=1&amp;b=&quot;2&quot;" light_intensity="0" prompt="say &quot;hi&quot; &amp; &lt;wave&gt; it&#39;s" style="" onclick="window.open(this.src)" />`
		if got != want {
			t.Errorf("BuildImageTag()\n got: %s\nwant: %s", got, want)
		}
	})
}

func TestBuildVideoTag(t *testing.T) {
	occ := domain.Occurrence{Kind: domain.MediaVideo, Prompt: "waves", SideParams: "16, 640, 480", HasParams: true}
	got := BuildVideoTag("http://x/v.mp4", occ, "width:100%;height:auto")
	want := `<video src="http://x/v.mp4" videoParams="16,640,480" prompt="waves" style="width:100%;height:auto" loop controls autoplay muted/>`
	if got != want {
		t.Errorf("BuildVideoTag()\n got: %s\nwant: %s", got, want)
	}

	noParams := BuildVideoTag("v", domain.Occurrence{Kind: domain.MediaVideo, Prompt: "p"}, "")
	if noParams != `<video src="v" prompt="p" style="" loop controls autoplay muted/>` {
		t.Errorf("BuildVideoTag() = %s", noParams)
	}
}

func TestBuildTag_NeverRematched(t *testing.T) {
	// 完成タグが再びプレースホルダとして扱われないことを確認するのだ
	spec := parser.PatternSpec{Expr: parser.DefaultImagePattern, Fields: parser.PositionalFieldMap}
	occ := domain.Occurrence{Kind: domain.MediaImage, Prompt: "a cat", SideParams: "0.5,0.5", HasParams: true}
	tag, err := BuildTag("http://x/cat.png", occ, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := parser.Extract(tag, spec, domain.MediaImage); len(got) != 0 {
		t.Errorf("完成タグが再抽出されたのだ: %+v", got)
	}

	if _, err := BuildTag("u", domain.Occurrence{Kind: domain.MediaDisabled}, ""); err == nil {
		t.Error("無効な種別でエラーを期待したのだ")
	}
}
