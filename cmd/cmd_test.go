package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTagCommand(t *testing.T) {
	tagOpts.url = "http://x/cat.png"
	tagOpts.prompt = `a "cat"`
	tagOpts.params = "0.5,0.5"
	tagOpts.kind = "image"
	t.Cleanup(func() { tagOpts.url, tagOpts.prompt, tagOpts.params, tagOpts.kind = "", "", "", "" })

	var buf bytes.Buffer
	tagCmd.SetOut(&buf)
	if err := tagCommand(tagCmd, nil); err != nil {
		t.Fatalf("tagCommand: %v", err)
	}
	want := `<img src="http://x/cat.png" light_intensity="0.5,0.5" prompt="a &quot;cat&quot;" style="width:auto;height:auto" onclick="window.open(this.src)" />`
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Errorf("出力 =\n %s\nwant\n %s", got, want)
	}
}

func TestScanCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.txt")
	body := `<img prompt="one"> <img src="done.png" prompt="two"> <img light_intensity="1,0" prompt="three">`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	scanMessageFile = path
	t.Cleanup(func() { scanMessageFile = "" })

	var buf bytes.Buffer
	scanCmd.SetOut(&buf)
	if err := scanCommand(scanCmd, nil); err != nil {
		t.Fatalf("scanCommand: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("行数 = %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"one"`) || !strings.Contains(lines[1], `params="1,0"`) {
		t.Errorf("出力 = %q", lines)
	}
}
