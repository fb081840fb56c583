package reconciler

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/metrics"
	"github.com/shouni/go-chat-media-kit/pkg/parser"
)

// Lookup は識別キーから生成済みタグを引く関数です。ledger.Ledger.Lookup を渡すのだ。
type Lookup func(key string) (string, bool)

// Scanner は1種類のメディアのプレースホルダを抽出するのだ。
type Scanner struct {
	Kind    domain.MediaKind
	Matcher *parser.Matcher
}

// Result は1回の突き合わせの結果です。
type Result struct {
	Text     string
	Changed  bool
	Counts   map[domain.MediaKind]int
	Replaced int
}

// Reconciler は現在の本文を毎回スキャンし直し、生成済みのプレースホルダを完成タグに置き換えます。
// Ledger を書き換えることはなく、読み出しだけを行うのだ。
type Reconciler struct {
	lookup  Lookup
	metrics *metrics.Metrics
}

// New は Reconciler を作成します。m が nil なら計測しません。
func New(lookup Lookup, m *metrics.Metrics) *Reconciler {
	if m == nil {
		m = metrics.Noop()
	}
	return &Reconciler{lookup: lookup, metrics: m}
}

type span struct {
	start, end int
	tag        string
	kind       domain.MediaKind
}

// Reconcile は text を新たにスキャンし、キャッシュ済みのキーを持つすべての出現箇所を置き換えるのだ。
// 一致するものが無ければ text をそのまま Changed=false で返します。
// 置き換えが重なる場合は先に始まる方を採用します。
func (r *Reconciler) Reconcile(text string, scanners ...Scanner) Result {
	res := Result{Text: text}
	if text == "" || len(scanners) == 0 {
		return res
	}

	var spans []span
	for _, sc := range scanners {
		if sc.Matcher == nil || !sc.Kind.Enabled() {
			continue
		}
		for _, occ := range sc.Matcher.Extract(text, sc.Kind) {
			tag, ok := r.lookup(occ.Key())
			if !ok {
				continue
			}
			spans = append(spans, span{start: occ.Start, end: occ.End, tag: tag, kind: occ.Kind})
		}
	}
	if len(spans) == 0 {
		return res
	}

	slices.SortStableFunc(spans, func(a, b span) int { return a.start - b.start })

	// 出現位置はルーン単位なので、元の文字列のバイト位置に直してから切り出すのだ。
	// 不正な UTF-8 のバイトもそのまま残します。
	offsets := byteOffsets(text)
	var sb strings.Builder
	sb.Grow(len(text))
	res.Counts = make(map[domain.MediaKind]int)
	pos := 0
	for _, s := range spans {
		if s.start < pos || s.end >= len(offsets) {
			continue
		}
		sb.WriteString(text[offsets[pos]:offsets[s.start]])
		sb.WriteString(s.tag)
		pos = s.end
		res.Counts[s.kind]++
		res.Replaced++
		r.metrics.Replacements.WithLabelValues(string(s.kind)).Inc()
	}
	sb.WriteString(text[offsets[pos]:])

	res.Text = sb.String()
	res.Changed = res.Replaced > 0 && res.Text != text
	return res
}

// byteOffsets はルーン番号からバイト位置への対応を返します。末尾の len(text) も含むのだ。
// 不正なバイトは1バイトで1ルーンとして数え、正規表現側のルーン列と揃えます。
func byteOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	for i := 0; i < len(text); {
		offsets = append(offsets, i)
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return append(offsets, len(text))
}
