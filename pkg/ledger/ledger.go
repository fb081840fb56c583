package ledger

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultCooldown  = 3 * time.Minute
	DefaultRetention = 30 * time.Minute
)

// Options は Ledger の保持期間の設定です。
type Options struct {
	// Cooldown は同じキーの再試行を拒否する期間なのだ。
	Cooldown time.Duration
	// Retention は生成済みタグを保持する期間です。
	Retention time.Duration
}

// Status はキー1件の状態のスナップショットなのだ。
type Status struct {
	Cached      bool
	InFlight    bool
	CoolingDown bool
}

// Ledger は識別キーごとの生成状態（生成済み・生成中・クールダウン）を管理します。
// すべての操作はミューテックスで保護されていて、判定と更新は常に一体で行われるのだ。
type Ledger struct {
	mu        sync.Mutex
	cached    *cache.Cache
	cooldown  *cache.Cache
	inFlight  map[string]uint64
	turn      uint64
	cooldownD time.Duration
}

// New は Ledger を初期化するのだ。
// go-cache の janitor は起動せず、期限切れの掃除は PruneExpired で明示的に行います。
func New(opts Options) *Ledger {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	return &Ledger{
		cached:    cache.New(opts.Retention, 0),
		cooldown:  cache.New(opts.Cooldown, 0),
		inFlight:  make(map[string]uint64),
		cooldownD: opts.Cooldown,
	}
}

// Claim はキーが未生成・未着手・クールダウン外のときだけ生成中として確保し、Ticket を返すのだ。
// 確保と同時に試行時刻を記録するので、同じキーはクールダウン期間内に再び確保されません。
func (l *Ledger) Claim(key string) (*Ticket, bool) {
	if key == "" {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.cached.Get(key); ok {
		return nil, false
	}
	if _, ok := l.inFlight[key]; ok {
		return nil, false
	}
	if _, ok := l.cooldown.Get(key); ok {
		return nil, false
	}

	l.inFlight[key] = l.turn
	l.cooldown.Set(key, time.Now(), cache.DefaultExpiration)
	return &Ticket{ledger: l, key: key, turn: l.turn}, true
}

// TryClaim は Claim の真偽値だけを返す版です。
// 確保したキーは Store / MarkFailed / Release のいずれかで必ず解放してください。
func (l *Ledger) TryClaim(key string) bool {
	_, ok := l.Claim(key)
	return ok
}

// Release は生成中の状態を解除するのだ。
func (l *Ledger) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, key)
}

// Store は生成済みタグを保存します。生成中の状態も同時に解除されるのだ。
func (l *Ledger) Store(key, tag string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, key)
	l.cached.Set(key, tag, cache.DefaultExpiration)
}

// Lookup は生成済みタグを返すのだ。
func (l *Ledger) Lookup(key string) (string, bool) {
	v, ok := l.cached.Get(key)
	if !ok {
		return "", false
	}
	tag, ok := v.(string)
	return tag, ok
}

// MarkFailed は生成中の状態を解除し、クールダウンを新しく張り直すのだ。
func (l *Ledger) MarkFailed(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, key)
	l.cooldown.Set(key, time.Now(), cache.DefaultExpiration)
}

// ResetForNewTurn は前のターンの状態をすべて破棄します。
// アクティブメッセージのインデックスが変わったときだけ呼ぶこと。続きの生成では呼ばないのだ。
func (l *Ledger) ResetForNewTurn() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turn++
	l.cached.Flush()
	l.cooldown.Flush()
	l.inFlight = make(map[string]uint64)
}

// PruneExpired は期限切れの生成済みタグとクールダウンを削除します。
func (l *Ledger) PruneExpired() {
	l.cached.DeleteExpired()
	l.cooldown.DeleteExpired()
}

// Status はキーの現在の状態を返すのだ。
func (l *Ledger) Status(key string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, cached := l.cached.Get(key)
	_, inFlight := l.inFlight[key]
	_, cooling := l.cooldown.Get(key)
	return Status{Cached: cached, InFlight: inFlight, CoolingDown: cooling}
}

// InFlight は生成中のキー数を返します。
func (l *Ledger) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inFlight)
}

// CachedCount は保持している生成済みタグの数なのだ。期限切れでまだ掃除されていないものも含みます。
func (l *Ledger) CachedCount() int {
	return l.cached.ItemCount()
}

// Cooldown はクールダウン期間を返します。
func (l *Ledger) Cooldown() time.Duration {
	return l.cooldownD
}
