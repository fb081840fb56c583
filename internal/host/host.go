package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
)

// Host はメモリ上のチャット履歴を持つ ChatHost なのだ。
// 最後のメッセージをアクティブメッセージとして扱い、Persist で本文をファイルに保存します。
type Host struct {
	mu         sync.Mutex
	messages   []domain.Message
	outputPath string
	persisted  int
}

// New は Host を作成します。outputPath が空なら Persist は何もしないのだ。
func New(outputPath string) *Host {
	return &Host{outputPath: outputPath}
}

// AddMessage は新しいメッセージを末尾に追加し、そのインデックスを返すのだ。
func (h *Host) AddMessage(text string, isUser bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx := len(h.messages)
	h.messages = append(h.messages, domain.Message{Index: idx, Text: text, IsUserAuthor: isUser})
	return idx
}

// AppendText はアクティブメッセージの末尾に文字列を追加します。ストリーミングの模擬に使うのだ。
func (h *Host) AppendText(s string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return fmt.Errorf("アクティブメッセージがありません")
	}
	h.messages[len(h.messages)-1].Text += s
	return nil
}

// ActiveMessage は最後のメッセージを返すのだ。
func (h *Host) ActiveMessage() (domain.Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return domain.Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// SetActiveMessageText はアクティブメッセージの本文を書き換えます。
// index がアクティブメッセージでなければエラーになるのだ。
func (h *Host) SetActiveMessageText(index int, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 || h.messages[len(h.messages)-1].Index != index {
		return fmt.Errorf("メッセージ %d はアクティブではありません", index)
	}
	h.messages[len(h.messages)-1].Text = text
	return nil
}

// Persist はアクティブメッセージの本文を出力ファイルに書き出すのだ。
func (h *Host) Persist(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.persisted++
	if h.outputPath == "" || len(h.messages) == 0 {
		return nil
	}
	if dir := filepath.Dir(h.outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
		}
	}
	text := h.messages[len(h.messages)-1].Text
	if err := os.WriteFile(h.outputPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("チャットの保存に失敗しました: %w", err)
	}
	return nil
}

// PersistCount は Persist が呼ばれた回数を返します。
func (h *Host) PersistCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.persisted
}
