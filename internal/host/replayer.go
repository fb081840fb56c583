package host

import (
	"context"
	"time"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
)

// ReplayOptions はメッセージの再生方法です。
type ReplayOptions struct {
	// Stream が true なら本文をチャンクごとに流し込むのだ
	Stream        bool
	ChunkSize     int
	TokenInterval time.Duration
	// Continue が true なら新しいメッセージを作らず、アクティブメッセージに続けて書きます
	Continue bool
}

const defaultChunkSize = 16

// Replayer はアシスタントの返信を Host に書き込みながら、ライフサイクルイベントを発行するのだ。
type Replayer struct {
	host *Host
	opts ReplayOptions
}

// NewReplayer は Replayer を作成します。
func NewReplayer(h *Host, opts ReplayOptions) *Replayer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	return &Replayer{host: h, opts: opts}
}

// Replay は text を返信として再生し、イベントを返すチャネルを返すのだ。
// 再生が終わるか ctx が終わるとチャネルは閉じられます。
func (r *Replayer) Replay(ctx context.Context, text string) <-chan domain.Event {
	events := make(chan domain.Event)
	go func() {
		defer close(events)
		if !r.opts.Stream {
			idx := r.begin(text)
			emit(ctx, events, domain.EventMessageReceived, idx)
			return
		}

		idx := r.begin("")
		if !emit(ctx, events, domain.EventGenerationStarted, idx) {
			return
		}
		runes := []rune(text)
		for start := 0; start < len(runes); start += r.opts.ChunkSize {
			end := min(start+r.opts.ChunkSize, len(runes))
			if err := r.host.AppendText(string(runes[start:end])); err != nil {
				return
			}
			if !emit(ctx, events, domain.EventStreamToken, idx) {
				return
			}
			if r.opts.TokenInterval > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(r.opts.TokenInterval):
				}
			}
		}
		if !emit(ctx, events, domain.EventGenerationEnded, idx) {
			return
		}
		emit(ctx, events, domain.EventMessageReceived, idx)
	}()
	return events
}

func (r *Replayer) begin(text string) int {
	if r.opts.Continue {
		if msg, ok := r.host.ActiveMessage(); ok && !msg.IsUserAuthor {
			if text != "" {
				_ = r.host.AppendText(text)
			}
			return msg.Index
		}
	}
	return r.host.AddMessage(text, false)
}

func emit(ctx context.Context, events chan<- domain.Event, typ domain.EventType, idx int) bool {
	select {
	case events <- domain.Event{Type: typ, MessageIndex: idx}:
		return true
	case <-ctx.Done():
		return false
	}
}
