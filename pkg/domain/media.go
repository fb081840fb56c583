package domain

import "fmt"

// MediaKind は生成するメディアの種類です。
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaDisabled MediaKind = "disabled"
)

// ParseMediaKind は設定値の文字列を MediaKind に変換するのだ。
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(s) {
	case MediaImage, MediaVideo, MediaDisabled:
		return MediaKind(s), nil
	case "":
		return MediaDisabled, nil
	default:
		return MediaDisabled, fmt.Errorf("未知のメディア種別です: %q", s)
	}
}

// Enabled は生成対象の種類かどうかを返します。
func (k MediaKind) Enabled() bool {
	return k == MediaImage || k == MediaVideo
}

// Occurrence はメッセージ本文中に現れたプレースホルダタグ1件分なのだ。
// スキャンのたびに作り直され、保存されることはありません。
// Start と End はルーン単位のオフセットです。
type Occurrence struct {
	FullMatch  string
	Prompt     string
	SideParams string
	HasParams  bool
	Kind       MediaKind
	Start      int
	End        int
}

// Key はこのプレースホルダの重複排除キーを返します。
func (o Occurrence) Key() string {
	return PromptKey(o.Prompt)
}

// Message はチャットホストが保持するアクティブメッセージのスナップショットです。
type Message struct {
	Index        int
	Text         string
	IsUserAuthor bool
}
