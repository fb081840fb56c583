package orchestrator

import (
	"context"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/pipeline"
)

// ChatHost はチャットホストとの接点なのだ。
// 本文はホスト側のレンダラーも書き換えるので、書き込みの直前に必ず読み直します。
type ChatHost interface {
	// ActiveMessage は現在のアクティブメッセージを返します。無ければ ok=false です。
	ActiveMessage() (msg domain.Message, ok bool)
	// SetActiveMessageText は本文を書き換えて再描画させるのだ。
	SetActiveMessageText(index int, text string) error
	// Persist はチャットを保存します。
	Persist(ctx context.Context) error
}

// JobRunner は確保済みプレースホルダ1件の生成を最後まで実行するのだ。pipeline.Pipeline が満たします。
type JobRunner interface {
	Run(ctx context.Context, job pipeline.Job) pipeline.Result
}
