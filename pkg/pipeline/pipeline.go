package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/ledger"
	"github.com/shouni/go-chat-media-kit/pkg/macros"
	"github.com/shouni/go-chat-media-kit/pkg/metrics"
	"github.com/shouni/go-chat-media-kit/pkg/notify"
	"github.com/shouni/go-chat-media-kit/pkg/prompts"
	"github.com/shouni/go-chat-media-kit/pkg/publisher"

	"golang.org/x/time/rate"
)

// ErrEmptyResult は Generator が空の結果を返したことを示すのだ。
var ErrEmptyResult = errors.New("generator returned an empty result")

// ErrNoTicket はジョブに確保済みのチケットが無いことを示します。
var ErrNoTicket = errors.New("job has no claim ticket")

// Job は確保済みのプレースホルダ1件分の生成ジョブです。
type Job struct {
	ID         string
	Occurrence domain.Occurrence
	Style      string
	Ticket     *ledger.Ticket
}

// Result はジョブの結果なのだ。Stored が true のときだけ Ledger に生成済みタグが入っています。
type Result struct {
	JobID   string
	Key     string
	Kind    domain.MediaKind
	Tag     string
	Stored  bool
	Elapsed time.Duration
	Err     error
}

// Args は Pipeline の依存関係です。
type Args struct {
	Generator Generator
	Builder   prompts.PromptBuilder
	Store     *macros.Store
	Queue     *macros.Serializer
	Limiter   *rate.Limiter
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
}

// Pipeline は確保済みプレースホルダを生成済みタグに変えるのだ。
type Pipeline struct {
	generator Generator
	builder   prompts.PromptBuilder
	store     *macros.Store
	queue     *macros.Serializer
	limiter   *rate.Limiter
	notifier  notify.Notifier
	metrics   *metrics.Metrics
}

// New は Pipeline を初期化します。省略された依存は既定のものを使うのだ。
func New(args Args) (*Pipeline, error) {
	if args.Generator == nil {
		return nil, fmt.Errorf("Generator は必須です")
	}
	if args.Builder == nil {
		b, err := prompts.NewTemplatePromptBuilder(nil)
		if err != nil {
			return nil, err
		}
		args.Builder = b
	}
	if args.Store == nil {
		args.Store = macros.NewStore()
	}
	if args.Queue == nil {
		args.Queue = macros.NewSerializer()
	}
	if args.Limiter == nil {
		args.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if args.Metrics == nil {
		args.Metrics = metrics.Noop()
	}
	return &Pipeline{
		generator: args.Generator,
		builder:   args.Builder,
		store:     args.Store,
		queue:     args.Queue,
		limiter:   args.Limiter,
		notifier:  args.Notifier,
		metrics:   args.Metrics,
	}, nil
}

// NewLimiter は設定の間隔とバースト数から Generator 呼び出しのレートリミッターを作るのだ。
// 間隔が0以下なら無制限です。
func NewLimiter(interval time.Duration, burst int) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(interval), burst)
}

// Run はジョブを最後まで実行するのだ。
// 1. 付帯パラメータのディレクティブと本文を組み立てる
// 2. Serializer で共有変数の設定とプロンプトの確定を直列に行う
// 3. Generator を呼ぶ
// 4. 成功なら完成タグを Ledger に保存、空の結果やエラーならクールダウンを張り直す
// どの経路でも Ticket は必ず1回だけ解放され、エラーやパニックが呼び出し元に漏れることはありません。
func (p *Pipeline) Run(ctx context.Context, job Job) (res Result) {
	occ := job.Occurrence
	if job.Ticket == nil {
		slog.Error("チケットの無いジョブは実行しないのだ", "job_id", job.ID, "kind", occ.Kind)
		return Result{JobID: job.ID, Kind: occ.Kind, Err: ErrNoTicket}
	}
	res = Result{JobID: job.ID, Key: job.Ticket.Key(), Kind: occ.Kind}
	logger := slog.With("job_id", job.ID, "key", domain.ShortKey(res.Key), "kind", occ.Kind)

	start := time.Now()
	progress := notify.Start(ctx, p.notifier, occ.Kind, 1)
	p.metrics.InFlight.Inc()

	defer job.Ticket.Release()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("generation job panicked: %v", r)
			res.Stored = false
		}
		res.Elapsed = time.Since(start)
		p.metrics.InFlight.Dec()
		if res.Err != nil {
			job.Ticket.Fail()
			p.metrics.Generations.WithLabelValues(string(occ.Kind), "failure").Inc()
			logger.Warn("メディア生成に失敗したのだ", "elapsed", res.Elapsed.Round(time.Millisecond), "error", res.Err)
		} else {
			p.metrics.Generations.WithLabelValues(string(occ.Kind), "success").Inc()
			logger.Info("メディア生成が完了したのだ", "elapsed", res.Elapsed.Round(time.Millisecond), "stored", res.Stored)
		}
		progress.Done(ctx, res.Err)
	}()

	tag, err := p.generate(ctx, logger, job)
	if err != nil {
		res.Err = err
		return res
	}
	res.Tag = tag
	res.Stored = job.Ticket.Store(tag)
	if !res.Stored {
		logger.Info("ターンが切り替わったので生成結果を破棄するのだ")
	}
	return res
}

func (p *Pipeline) generate(ctx context.Context, logger *slog.Logger, job Job) (string, error) {
	occ := job.Occurrence
	final, err := p.builder.Build(occ)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(final.String()) == "" {
		return "", fmt.Errorf("プロンプトが空です: %w", ErrEmptyResult)
	}

	resolved, err := p.queue.Enqueue(ctx,
		func(ctx context.Context) error {
			p.store.Execute(final.Directives)
			return nil
		},
		func(ctx context.Context) (string, error) {
			return p.store.Expand(final.Body), nil
		})
	if err != nil {
		return "", fmt.Errorf("プロンプトの確定に失敗しました: %w", err)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("レートリミッター待機中にエラーが発生しました: %w", err)
	}

	logger.Debug("Generator を呼び出すのだ", "prompt", truncate(resolved, 50))
	url, err := p.generator.Generate(ctx, resolved)
	if err != nil {
		return "", fmt.Errorf("メディア生成の呼び出しに失敗しました: %w", err)
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return "", ErrEmptyResult
	}

	return publisher.BuildTag(url, occ, job.Style)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
