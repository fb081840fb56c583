package ledger

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Ticket は Claim で確保した生成ジョブの所有権なのだ。
// Store / Fail / Release のうち最初の1回だけが効き、以降の呼び出しは無視されます。
// 確保後にターンが切り替わっていた場合も、何もしません。
type Ticket struct {
	ledger *Ledger
	key    string
	turn   uint64
	once   sync.Once
}

// Key は確保したキーを返します。
func (t *Ticket) Key() string {
	return t.key
}

// Store は生成結果を保存するのだ。前のターンの結果だった場合は false を返します。
func (t *Ticket) Store(tag string) bool {
	stored := false
	t.once.Do(func() {
		l := t.ledger
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.turn != t.turn {
			return
		}
		delete(l.inFlight, t.key)
		l.cached.Set(t.key, tag, cache.DefaultExpiration)
		stored = true
	})
	return stored
}

// Fail は失敗として解放し、クールダウンを張り直すのだ。
func (t *Ticket) Fail() {
	t.once.Do(func() {
		l := t.ledger
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.turn != t.turn {
			return
		}
		delete(l.inFlight, t.key)
		l.cooldown.Set(t.key, time.Now(), cache.DefaultExpiration)
	})
}

// Release は結果を残さずに生成中の状態だけを解除します。
func (t *Ticket) Release() {
	t.once.Do(func() {
		l := t.ledger
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.turn != t.turn {
			return
		}
		delete(l.inFlight, t.key)
	})
}
