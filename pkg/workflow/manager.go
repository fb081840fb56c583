package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-chat-media-kit/pkg/config"
	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/ledger"
	"github.com/shouni/go-chat-media-kit/pkg/macros"
	"github.com/shouni/go-chat-media-kit/pkg/metrics"
	"github.com/shouni/go-chat-media-kit/pkg/notify"
	"github.com/shouni/go-chat-media-kit/pkg/orchestrator"
	"github.com/shouni/go-chat-media-kit/pkg/pipeline"
	"github.com/shouni/go-chat-media-kit/pkg/prompts"
	"github.com/shouni/go-chat-media-kit/pkg/reconciler"

	"github.com/prometheus/client_golang/prometheus"
)

// ManagerArgs は Manager の構築に必要な依存関係です。
type ManagerArgs struct {
	Host      orchestrator.ChatHost
	Settings  config.Settings
	Generator pipeline.Generator
	// 以下は省略可能なのだ
	Notifier   notify.Notifier
	Registerer prometheus.Registerer
	Store      *macros.Store
}

// Manager は生成エンジンの各部品を組み立てて保持します。
type Manager struct {
	provider     *config.StaticProvider
	ledger       *ledger.Ledger
	store        *macros.Store
	metrics      *metrics.Metrics
	pipeline     *pipeline.Pipeline
	orchestrator *orchestrator.Orchestrator
}

// New は設定とホスト、Generator から Manager を初期化するのだ。
func New(args ManagerArgs) (*Manager, error) {
	if args.Host == nil {
		return nil, fmt.Errorf("Host は必須です")
	}
	if args.Generator == nil {
		return nil, fmt.Errorf("Generator は必須です")
	}
	if err := args.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}
	if args.Notifier == nil {
		args.Notifier = notify.LogNotifier{}
	}
	if args.Store == nil {
		args.Store = macros.NewStore()
	}

	m := metrics.New(args.Registerer)
	l := ledger.New(args.Settings.LedgerOptions())

	builder, err := prompts.NewTemplatePromptBuilder(args.Settings.PromptTemplates())
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの作成に失敗しました: %w", err)
	}

	p, err := pipeline.New(pipeline.Args{
		Generator: args.Generator,
		Builder:   builder,
		Store:     args.Store,
		Queue:     macros.NewSerializer(),
		Limiter:   pipeline.NewLimiter(args.Settings.RateInterval, args.Settings.RateBurst),
		Notifier:  args.Notifier,
		Metrics:   m,
	})
	if err != nil {
		return nil, fmt.Errorf("生成パイプラインの初期化に失敗しました: %w", err)
	}

	provider := config.NewStaticProvider(args.Settings)
	o, err := orchestrator.New(orchestrator.Args{
		Host:       args.Host,
		Config:     provider,
		Ledger:     l,
		Runner:     p,
		Reconciler: reconciler.New(l.Lookup, m),
		Metrics:    m,
	})
	if err != nil {
		return nil, fmt.Errorf("オーケストレーターの初期化に失敗しました: %w", err)
	}

	return &Manager{
		provider:     provider,
		ledger:       l,
		store:        args.Store,
		metrics:      m,
		pipeline:     p,
		orchestrator: o,
	}, nil
}

// Run はイベントを処理し、チャネルが閉じたら実行中のジョブを待ってから戻るのだ。
func (m *Manager) Run(ctx context.Context, events <-chan domain.Event) error {
	if err := m.orchestrator.Run(ctx, events); err != nil {
		return err
	}
	return m.orchestrator.Drain(ctx)
}

// UpdateSettings は実行中に設定を差し替えます。次のイベントから反映されるのだ。
func (m *Manager) UpdateSettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.provider.Update(s)
	return nil
}

// Orchestrator は組み立て済みの Orchestrator を返します。
func (m *Manager) Orchestrator() *orchestrator.Orchestrator {
	return m.orchestrator
}

// Ledger は生成状態の台帳を返します。
func (m *Manager) Ledger() *ledger.Ledger {
	return m.ledger
}

// Variables は共有テンプレート変数の現在値を返すのだ。
func (m *Manager) Variables() map[string]string {
	return m.store.Snapshot()
}
