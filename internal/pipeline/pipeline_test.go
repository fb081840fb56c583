package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-chat-media-kit/internal/config"
	pkgconfig "github.com/shouni/go-chat-media-kit/pkg/config"
)

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	msgFile := filepath.Join(dir, "reply.txt")
	outFile := filepath.Join(dir, "out", "chat.txt")
	body := `描いたのだ <img prompt="a red fox"> と <video videoParams="16,512,512" prompt="waves">`
	if err := os.WriteFile(msgFile, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name   string
		stream bool
	}{
		{"一括", false},
		{"ストリーミング", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := pkgconfig.DefaultSettings()
			s.StreamScanInterval = 5 * time.Millisecond
			cfg := &config.Config{
				Settings: s,
				Options: config.RunOptions{
					MessageFile:   msgFile,
					OutputFile:    outFile,
					Stream:        tt.stream,
					ChunkSize:     8,
					TokenInterval: time.Millisecond,
					MockBaseURL:   "https://cdn.example",
				},
			}
			got, err := Execute(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if !strings.Contains(got, `<img src="https://cdn.example/`) {
				t.Errorf("画像が生成されていないのだ: %s", got)
			}
			// 画像モードなので動画のプレースホルダはそのまま残るのだ
			if !strings.Contains(got, `<video videoParams="16,512,512" prompt="waves">`) {
				t.Errorf("動画のプレースホルダが変わったのだ: %s", got)
			}
			saved, err := os.ReadFile(outFile)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if string(saved) != got {
				t.Errorf("保存された本文が違うのだ: %s", saved)
			}
		})
	}
}

func TestExecute_MissingMessageFile(t *testing.T) {
	cfg := &config.Config{
		Settings: pkgconfig.DefaultSettings(),
		Options:  config.RunOptions{MessageFile: filepath.Join(t.TempDir(), "missing.txt")},
	}
	if _, err := Execute(context.Background(), cfg); err == nil {
		t.Error("エラーにならないのだ")
	}
}
