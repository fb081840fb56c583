package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shouni/go-chat-media-kit/pkg/domain"
	"github.com/shouni/go-chat-media-kit/pkg/ledger"
	"github.com/shouni/go-chat-media-kit/pkg/macros"
	"github.com/shouni/go-chat-media-kit/pkg/metrics"
	"github.com/shouni/go-chat-media-kit/pkg/prompts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testStyle = "width:auto;height:auto"

func imageOccurrence(prompt, params string) domain.Occurrence {
	return domain.Occurrence{
		FullMatch:  `<img light_intensity="` + params + `" prompt="` + prompt + `">`,
		Prompt:     prompt,
		SideParams: params,
		HasParams:  params != "",
		Kind:       domain.MediaImage,
	}
}

func claim(t *testing.T, l *ledger.Ledger, occ domain.Occurrence) *ledger.Ticket {
	t.Helper()
	ticket, ok := l.Claim(occ.Key())
	if !ok {
		t.Fatalf("キー %s を確保できないのだ", domain.ShortKey(occ.Key()))
	}
	return ticket
}

func TestPipeline_Run_Success(t *testing.T) {
	l := ledger.New(ledger.Options{})
	var gotPrompt string
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "http://x/cat.png", nil
	})
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p, err := New(Args{Generator: gen, Metrics: m})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	occ := imageOccurrence("a cat", "0.5,0.5")
	res := p.Run(context.Background(), Job{ID: "job-1", Occurrence: occ, Style: testStyle, Ticket: claim(t, l, occ)})

	if res.Err != nil {
		t.Fatalf("Run: %v", res.Err)
	}
	want := `<img src="http://x/cat.png" light_intensity="0.5,0.5" prompt="a cat" style="width:auto;height:auto" onclick="window.open(this.src)" />`
	if res.Tag != want {
		t.Errorf("Tag =\n %s\nwant\n %s", res.Tag, want)
	}
	if !res.Stored {
		t.Error("Stored = false")
	}
	if gotPrompt != "a cat" {
		t.Errorf("Generator に渡したプロンプト = %q", gotPrompt)
	}
	if tag, ok := l.Lookup(occ.Key()); !ok || tag != want {
		t.Errorf("Lookup = %q, %v", tag, ok)
	}
	if l.InFlight() != 0 {
		t.Errorf("InFlight = %d", l.InFlight())
	}
	if got := testutil.ToFloat64(m.Generations.WithLabelValues("image", "success")); got != 1 {
		t.Errorf("generations success = %v", got)
	}
	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Errorf("jobs_in_flight = %v", got)
	}
}

func TestPipeline_Run_Failures(t *testing.T) {
	tests := []struct {
		name    string
		gen     GeneratorFunc
		wantErr error
	}{
		{
			name:    "空の結果",
			gen:     func(ctx context.Context, prompt string) (string, error) { return "  ", nil },
			wantErr: ErrEmptyResult,
		},
		{
			name: "生成エラー",
			gen: func(ctx context.Context, prompt string) (string, error) {
				return "", errors.New("boom")
			},
		},
		{
			name: "パニック",
			gen: func(ctx context.Context, prompt string) (string, error) {
				panic("generator exploded")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ledger.New(ledger.Options{})
			p, err := New(Args{Generator: tt.gen})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			occ := imageOccurrence("a dog", "")
			res := p.Run(context.Background(), Job{ID: "job", Occurrence: occ, Style: testStyle, Ticket: claim(t, l, occ)})

			if res.Err == nil {
				t.Fatal("エラーが返らないのだ")
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			st := l.Status(occ.Key())
			if st.Cached || st.InFlight || !st.CoolingDown {
				t.Errorf("Status = %+v, クールダウンのみを期待", st)
			}
			if _, ok := l.Claim(occ.Key()); ok {
				t.Error("クールダウン中に再確保できてしまったのだ")
			}
		})
	}
}

func TestPipeline_Run_DirectivesResolvedThroughStore(t *testing.T) {
	l := ledger.New(ledger.Options{})
	store := macros.NewStore()
	builder, err := prompts.NewTemplatePromptBuilder(map[domain.MediaKind]string{
		domain.MediaImage: "${.Prompt}, light " + macros.GetVar(prompts.VarLightIntensity),
	})
	if err != nil {
		t.Fatalf("NewTemplatePromptBuilder: %v", err)
	}

	var mu sync.Mutex
	seen := map[string]bool{}
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		mu.Lock()
		seen[prompt] = true
		mu.Unlock()
		return "http://x/" + strings.ReplaceAll(prompt, " ", "_"), nil
	})
	p, err := New(Args{Generator: gen, Builder: builder, Store: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	occs := []domain.Occurrence{imageOccurrence("a cat", "0.1,0.2"), imageOccurrence("a fox", "0.9,0.8")}
	var wg sync.WaitGroup
	for i, occ := range occs {
		ticket := claim(t, l, occ)
		wg.Add(1)
		go func(i int, occ domain.Occurrence) {
			defer wg.Done()
			p.Run(context.Background(), Job{ID: "job", Occurrence: occ, Style: testStyle, Ticket: ticket})
		}(i, occ)
	}
	wg.Wait()

	for _, want := range []string{"a cat, light 0.1", "a fox, light 0.9"} {
		if !seen[want] {
			t.Errorf("プロンプト %q が Generator に届いていないのだ: %v", want, seen)
		}
	}
}

func TestPipeline_Run_StaleTurnIsDiscarded(t *testing.T) {
	l := ledger.New(ledger.Options{})
	release := make(chan struct{})
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		<-release
		return "http://x/late.png", nil
	})
	p, err := New(Args{Generator: gen})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	occ := imageOccurrence("late", "")
	ticket := claim(t, l, occ)

	done := make(chan Result, 1)
	go func() {
		done <- p.Run(context.Background(), Job{ID: "late", Occurrence: occ, Style: testStyle, Ticket: ticket})
	}()
	l.ResetForNewTurn()
	close(release)

	select {
	case res := <-done:
		if res.Err != nil {
			t.Fatalf("Run: %v", res.Err)
		}
		if res.Stored {
			t.Error("前のターンの結果が保存されたのだ")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run が終わらないのだ")
	}
	if _, ok := l.Lookup(occ.Key()); ok {
		t.Error("新しいターンにキャッシュが残っているのだ")
	}
}

func TestPipeline_Run_RateLimited(t *testing.T) {
	l := ledger.New(ledger.Options{})
	var calls atomic.Int32
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls.Add(1)
		return "http://x/" + prompt, nil
	})
	p, err := New(Args{Generator: gen, Limiter: NewLimiter(time.Hour, 1)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first := imageOccurrence("one", "")
	if res := p.Run(context.Background(), Job{ID: "1", Occurrence: first, Ticket: claim(t, l, first)}); res.Err != nil {
		t.Fatalf("Run: %v", res.Err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	second := imageOccurrence("two", "")
	res := p.Run(ctx, Job{ID: "2", Occurrence: second, Ticket: claim(t, l, second)})
	if res.Err == nil {
		t.Fatal("レート制限中なのにエラーにならないのだ")
	}
	if calls.Load() != 1 {
		t.Errorf("Generator calls = %d, want 1", calls.Load())
	}
}

func TestPipeline_Run_WithoutTicket(t *testing.T) {
	var calls atomic.Int32
	gen := GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls.Add(1)
		return "http://x/a.png", nil
	})
	p, err := New(Args{Generator: gen})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := p.Run(context.Background(), Job{ID: "job-x", Occurrence: imageOccurrence("a cat", "")})
	if !errors.Is(res.Err, ErrNoTicket) {
		t.Errorf("Err = %v, want ErrNoTicket", res.Err)
	}
	if res.JobID != "job-x" || calls.Load() != 0 {
		t.Errorf("Result = %+v, Generator 呼び出し %d 回", res, calls.Load())
	}
}

func TestNew_RequiresGenerator(t *testing.T) {
	if _, err := New(Args{}); err == nil {
		t.Error("Generator なしでエラーにならないのだ")
	}
}
