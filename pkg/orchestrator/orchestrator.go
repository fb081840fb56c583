package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-chat-media-kit/pkg/config"
	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/ledger"
	"github.com/shouni/go-chat-media-kit/pkg/metrics"
	"github.com/shouni/go-chat-media-kit/pkg/parser"
	"github.com/shouni/go-chat-media-kit/pkg/pipeline"
	"github.com/shouni/go-chat-media-kit/pkg/reconciler"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Args は Orchestrator の依存関係です。
type Args struct {
	Host       ChatHost
	Config     config.Provider
	Ledger     *ledger.Ledger
	Runner     JobRunner
	Reconciler *reconciler.Reconciler
	Metrics    *metrics.Metrics
}

// Orchestrator はホストのライフサイクルイベントに応じて、抽出・確保・生成・突き合わせをつなぐのだ。
//
// ストリーミング中は定期スキャンで確保と生成の開始だけを行い、本文には触れません。
// 生成終了時に1回だけ突き合わせを行い、それ以降に終わったジョブは各自で突き合わせます。
type Orchestrator struct {
	host       ChatHost
	cfg        config.Provider
	ledger     *ledger.Ledger
	runner     JobRunner
	reconciler *reconciler.Reconciler
	metrics    *metrics.Metrics

	mu        sync.Mutex
	state     State
	turnIndex int
	hasTurn   bool
	stopLoop  context.CancelFunc
	loopDone  chan struct{}

	// 突き合わせは同時に1つだけ
	reconcileMu sync.Mutex

	tasks errgroup.Group
}

// New は Orchestrator を初期化します。
func New(args Args) (*Orchestrator, error) {
	if args.Host == nil {
		return nil, fmt.Errorf("Host は必須です")
	}
	if args.Config == nil {
		return nil, fmt.Errorf("Config は必須です")
	}
	if args.Runner == nil {
		return nil, fmt.Errorf("Runner は必須です")
	}
	if args.Ledger == nil {
		args.Ledger = ledger.New(ledger.Options{})
	}
	if args.Metrics == nil {
		args.Metrics = metrics.Noop()
	}
	if args.Reconciler == nil {
		args.Reconciler = reconciler.New(args.Ledger.Lookup, args.Metrics)
	}
	return &Orchestrator{
		host:       args.Host,
		cfg:        args.Config,
		ledger:     args.Ledger,
		runner:     args.Runner,
		reconciler: args.Reconciler,
		metrics:    args.Metrics,
	}, nil
}

// State は現在の状態を返すのだ。
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run はイベントチャネルが閉じるか ctx が終わるまでイベントを処理し続けるのだ。
// 実行中の生成ジョブは止めません。待つ場合は Drain を呼んでください。
func (o *Orchestrator) Run(ctx context.Context, events <-chan domain.Event) error {
	defer o.stopScanLoop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			o.HandleEvent(ctx, ev)
		}
	}
}

// Drain は実行中の生成ジョブがすべて終わるまで待ちます。
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- o.tasks.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleEvent はイベント1件を処理するのだ。エラーが呼び出し元に返ることはありません。
func (o *Orchestrator) HandleEvent(ctx context.Context, ev domain.Event) {
	slog.Debug("イベントを受信したのだ", "event", ev.Type, "message_index", ev.MessageIndex, "state", o.State())
	switch ev.Type {
	case domain.EventGenerationStarted:
		o.onGenerationStarted(ctx)
	case domain.EventStreamToken:
		// 定期スキャンが拾うので何もしないのだ
	case domain.EventGenerationEnded, domain.EventGenerationStopped:
		o.onGenerationEnded(ctx)
	case domain.EventMessageReceived:
		o.onMessageReceived(ctx)
	default:
		slog.Warn("未知のイベントなのだ", "event", ev.Type)
	}
}

func (o *Orchestrator) onGenerationStarted(ctx context.Context) {
	if !o.cfg.StreamingEnabled() || !o.cfg.MediaKind().Enabled() {
		return
	}
	msg, ok := o.host.ActiveMessage()
	if ok {
		o.syncTurn(msg.Index)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateStreaming
	if o.stopLoop != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	o.stopLoop = cancel
	o.loopDone = make(chan struct{})
	go o.scanLoop(loopCtx, o.cfg.ScanInterval(), o.loopDone)
	slog.Info("ストリーミング中のスキャンを開始したのだ", "interval", o.cfg.ScanInterval())
}

func (o *Orchestrator) onGenerationEnded(ctx context.Context) {
	wasRunning := o.stopScanLoop()

	o.mu.Lock()
	if o.state != StateStreaming && !wasRunning {
		o.mu.Unlock()
		return
	}
	o.state = StateFinalizing
	o.mu.Unlock()

	// 最後のスキャン以降に出てきたプレースホルダも確保しておくのだ
	o.scanAndLaunch(ctx)
	o.reconcile(ctx, true)

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
	slog.Info("ストリーミングを終了したのだ", "in_flight", o.ledger.InFlight())
}

func (o *Orchestrator) onMessageReceived(ctx context.Context) {
	o.stopScanLoop()
	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()

	if !o.cfg.MediaKind().Enabled() {
		return
	}
	msg, ok := o.host.ActiveMessage()
	if !ok || msg.IsUserAuthor {
		return
	}
	o.syncTurn(msg.Index)

	// 生成済みのものを先に反映してから、残りを生成するのだ
	o.reconcile(ctx, true)
	o.scanAndLaunch(ctx)
}

// syncTurn はアクティブメッセージのインデックスが変わっていたら Ledger をリセットします。
// 同じインデックスの続きの生成ではリセットしないのだ。
func (o *Orchestrator) syncTurn(index int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hasTurn && o.turnIndex == index {
		o.ledger.PruneExpired()
		return
	}
	if o.hasTurn {
		slog.Info("新しいターンなので Ledger をリセットするのだ", "from", o.turnIndex, "to", index)
		o.ledger.ResetForNewTurn()
	}
	o.turnIndex, o.hasTurn = index, true
}

func (o *Orchestrator) scanLoop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.scanAndLaunch(ctx)
		}
	}
}

// stopScanLoop は定期スキャンを止めて、終了を待つのだ。動いていたら true を返します。
func (o *Orchestrator) stopScanLoop() bool {
	o.mu.Lock()
	cancel, done := o.stopLoop, o.loopDone
	o.stopLoop, o.loopDone = nil, nil
	o.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// matcher は現在の設定の種別とコンパイル済みパターンを返します。
func (o *Orchestrator) matcher() (domain.MediaKind, *parser.Matcher, bool) {
	kind := o.cfg.MediaKind()
	if !kind.Enabled() {
		return kind, nil, false
	}
	spec := o.cfg.Pattern(kind)
	m, err := parser.Compile(spec)
	if err != nil {
		slog.Error("プレースホルダのパターンが不正なのだ", "kind", kind, "pattern", spec.Expr, "error", err)
		return kind, nil, false
	}
	return kind, m, true
}

// scanAndLaunch は現在の本文を抽出し、未確保のプレースホルダごとに生成ジョブを起動するのだ。
// 確保は抽出と同じ流れの中で同期的に行うので、同じキーが二重に起動されることはありません。
func (o *Orchestrator) scanAndLaunch(ctx context.Context) int {
	msg, ok := o.host.ActiveMessage()
	if !ok || msg.IsUserAuthor {
		return 0
	}
	o.syncTurn(msg.Index)
	kind, m, ok := o.matcher()
	if !ok {
		return 0
	}

	style := o.cfg.Style(kind)
	launched := 0
	for _, occ := range m.Extract(msg.Text, kind) {
		if strings.TrimSpace(occ.Prompt) == "" {
			continue
		}
		ticket, ok := o.ledger.Claim(occ.Key())
		if !ok {
			o.metrics.Claims.WithLabelValues("skipped").Inc()
			continue
		}
		o.metrics.Claims.WithLabelValues("claimed").Inc()
		o.launch(ctx, pipeline.Job{
			ID:         uuid.NewString(),
			Occurrence: occ,
			Style:      style,
			Ticket:     ticket,
		})
		launched++
	}
	if launched > 0 {
		slog.Info("生成ジョブを起動したのだ", "kind", kind, "count", launched, "message_index", msg.Index)
	}
	return launched
}

// launch はジョブを起動します。ジョブはイベント処理やスキャンの停止ではキャンセルされないのだ。
func (o *Orchestrator) launch(ctx context.Context, job pipeline.Job) {
	jobCtx := context.WithoutCancel(ctx)
	o.tasks.Go(func() error {
		res := o.runner.Run(jobCtx, job)
		if !res.Stored {
			return nil
		}
		// ストリーミング中は本文に触れず、終了時の突き合わせに任せるのだ
		if o.State() == StateStreaming {
			return nil
		}
		o.reconcile(jobCtx, true)
		return nil
	})
}

// reconcile は本文を読み直して突き合わせ、変化があったときだけ書き戻すのだ。
func (o *Orchestrator) reconcile(ctx context.Context, persist bool) reconciler.Result {
	o.reconcileMu.Lock()
	defer o.reconcileMu.Unlock()

	msg, ok := o.host.ActiveMessage()
	if !ok || msg.IsUserAuthor {
		return reconciler.Result{}
	}
	o.mu.Lock()
	sameTurn := !o.hasTurn || o.turnIndex == msg.Index
	o.mu.Unlock()
	if !sameTurn {
		return reconciler.Result{Text: msg.Text}
	}

	kind, m, ok := o.matcher()
	if !ok {
		return reconciler.Result{Text: msg.Text}
	}
	res := o.reconciler.Reconcile(msg.Text, reconciler.Scanner{Kind: kind, Matcher: m})
	if !res.Changed {
		return res
	}

	if err := o.host.SetActiveMessageText(msg.Index, res.Text); err != nil {
		slog.Warn("本文の書き戻しに失敗したのだ", "message_index", msg.Index, "error", err)
		return res
	}
	slog.Info("生成済みのメディアを反映したのだ", "message_index", msg.Index, "replaced", res.Replaced, "counts", res.Counts)
	if persist {
		if err := o.host.Persist(ctx); err != nil {
			slog.Warn("チャットの保存に失敗したのだ", "error", err)
		}
	}
	return res
}
