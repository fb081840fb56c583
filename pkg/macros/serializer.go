package macros

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrSideEffect は変数設定のステップが失敗したことを示すのだ。
var ErrSideEffect = errors.New("variable side-effect step failed")

// SideEffectFunc は共有変数へ書き込むステップです。
type SideEffectFunc func(ctx context.Context) error

// ResolveFunc は共有変数を読んで最終プロンプトを確定するステップなのだ。
type ResolveFunc func(ctx context.Context) (string, error)

// Serializer は「変数の設定」と「プロンプトの確定」の組を到着順に1件ずつ実行する FIFO キューです。
// n+1 件目の設定ステップは、n 件目の確定ステップが終わるまで始まりません。
// 確定後の遅い生成呼び出しはキューの外で行うので、画像生成自体は並行に進められるのだ。
type Serializer struct {
	mu   sync.Mutex
	tail chan struct{}
}

// NewSerializer は空のキューを作成します。
func NewSerializer() *Serializer {
	return &Serializer{}
}

type resolved struct {
	prompt string
	err    error
}

// Enqueue はステップの組をキューの末尾に積み、自分の番の確定結果が出るまで待つのだ。
// 呼び出し側の ctx が途中で終了しても、キューの順序は崩れません。
// 設定ステップが失敗・パニックした場合はログに残して ErrSideEffect を返し、後続の項目はそのまま進みます。
func (s *Serializer) Enqueue(ctx context.Context, sideEffect SideEffectFunc, resolve ResolveFunc) (string, error) {
	s.mu.Lock()
	prev := s.tail
	done := make(chan struct{})
	s.tail = done
	s.mu.Unlock()

	resCh := make(chan resolved, 1)
	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		if err := ctx.Err(); err != nil {
			resCh <- resolved{err: err}
			return
		}
		if err := runSideEffect(ctx, sideEffect); err != nil {
			slog.ErrorContext(ctx, "変数設定ステップに失敗したのだ。キューは続行します", "error", err)
			resCh <- resolved{err: fmt.Errorf("%w: %v", ErrSideEffect, err)}
			return
		}
		prompt, err := runResolve(ctx, resolve)
		resCh <- resolved{prompt: prompt, err: err}
	}()

	select {
	case r := <-resCh:
		return r.prompt, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func runSideEffect(ctx context.Context, fn SideEffectFunc) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func runResolve(ctx context.Context, fn ResolveFunc) (prompt string, err error) {
	if fn == nil {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolve step panicked: %v", r)
		}
	}()
	return fn(ctx)
}
