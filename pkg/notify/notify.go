package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/go-chat-media-kit/pkg/domain"

	"github.com/google/uuid"
)

// Level は通知の重要度です。
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice はユーザーに見せる一時的な通知なのだ。
// 同じ ID の通知は前の通知を置き換えます。
type Notice struct {
	ID      string
	Level   Level
	Kind    domain.MediaKind
	Count   int
	Elapsed time.Duration
	Message string
}

// Notifier は通知の出力先です。ブロッキングなダイアログは出さないこと。
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// LogNotifier は通知を slog に書き出すだけの Notifier なのだ。
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify は通知をログに出します。
func (l LogNotifier) Notify(ctx context.Context, n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch {
	case n.Level == LevelError:
		level = slog.LevelError
	case n.Level == LevelInfo && n.Elapsed > 0:
		// 経過時間の更新は毎秒届くのでデバッグ扱いなのだ
		level = slog.LevelDebug
	}
	logger.Log(ctx, level, n.Message,
		"notice_id", n.ID,
		"level", n.Level.String(),
		"kind", n.Kind,
		"count", n.Count,
		"elapsed", n.Elapsed.Round(time.Second))
}

// TickInterval は生成中の通知の経過時間を更新する間隔です。
const TickInterval = time.Second

// Progress は生成中の通知1件を表すのだ。Done で成功か失敗の通知に置き換わります。
// 生成中は TickInterval ごとに同じ ID で経過秒数を更新します。
type Progress struct {
	notifier Notifier
	id       string
	kind     domain.MediaKind
	count    int
	started  time.Time

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Start は「生成中」の通知を出して Progress を返します。
func Start(ctx context.Context, n Notifier, kind domain.MediaKind, count int) *Progress {
	return start(ctx, n, kind, count, TickInterval)
}

func start(ctx context.Context, n Notifier, kind domain.MediaKind, count int, interval time.Duration) *Progress {
	p := &Progress{
		notifier: n,
		id:       uuid.NewString(),
		kind:     kind,
		count:    count,
		started:  time.Now(),
	}
	if n == nil {
		return p
	}
	n.Notify(ctx, p.pending(0))

	p.stop = make(chan struct{})
	p.stopped = make(chan struct{})
	go p.tick(ctx, interval)
	return p
}

func (p *Progress) tick(ctx context.Context, interval time.Duration) {
	defer close(p.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.notifier.Notify(ctx, p.pending(time.Since(p.started)))
		}
	}
}

func (p *Progress) pending(elapsed time.Duration) Notice {
	return Notice{
		ID:      p.id,
		Level:   LevelInfo,
		Kind:    p.kind,
		Count:   p.count,
		Elapsed: elapsed,
		Message: fmt.Sprintf("%d 件の %s を生成中なのだ... %ds", p.count, p.kind, seconds(elapsed)),
	}
}

// ID は通知の ID を返します。
func (p *Progress) ID() string {
	return p.id
}

// Done は生成中の通知を結果の通知で置き換えるのだ。
// 経過時間の更新は結果の通知より前に必ず止まります。2回目以降の呼び出しは何もしません。
func (p *Progress) Done(ctx context.Context, err error) {
	if p.notifier == nil {
		return
	}
	first := false
	p.stopOnce.Do(func() {
		first = true
		close(p.stop)
		<-p.stopped
	})
	if !first {
		return
	}

	elapsed := time.Since(p.started)
	secs := seconds(elapsed)
	n := Notice{ID: p.id, Kind: p.kind, Count: p.count, Elapsed: elapsed}
	if err != nil {
		n.Level = LevelError
		n.Message = fmt.Sprintf("%s の生成に失敗したのだ (%ds): %v", p.kind, secs, err)
	} else {
		n.Level = LevelSuccess
		n.Message = fmt.Sprintf("%d 件の %s を生成したのだ。所要時間 %ds", p.count, p.kind, secs)
	}
	p.notifier.Notify(ctx, n)
}

func seconds(d time.Duration) int {
	return int(d.Round(time.Second) / time.Second)
}
