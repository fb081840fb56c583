package macros

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
	"sync"
)

var (
	setvarRegex = regexp.MustCompile(`\{\{setvar::([^:{}]+)::(.*?)\}\}`)
	getvarRegex = regexp.MustCompile(`\{\{getvar::([^{}]+)\}\}`)
)

// SetVar は setvar ディレクティブの文字列を組み立てるのだ。
func SetVar(name, value string) string {
	return fmt.Sprintf("{{setvar::%s::%s}}", name, value)
}

// GetVar は getvar マクロの文字列を組み立てます。
func GetVar(name string) string {
	return fmt.Sprintf("{{getvar::%s}}", name)
}

// Store はホストの共有テンプレート変数なのだ。
// リクエスト単位ではないプロセス全体の状態なので、書き込みと読み出しの組は Serializer で直列化すること。
type Store struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewStore は空の Store を作成します。
func NewStore() *Store {
	return &Store{vars: make(map[string]string)}
}

// Set は変数を1つ設定するのだ。
func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[strings.TrimSpace(name)] = value
}

// Get は変数の値を返します。
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[strings.TrimSpace(name)]
	return v, ok
}

// Snapshot は現在の変数のコピーを返すのだ。
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.vars)
}

// Execute はテキスト中の setvar ディレクティブを左から順に実行し、取り除いたテキストを返すのだ。
func (s *Store) Execute(text string) string {
	matches := setvarRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text
	}
	s.mu.Lock()
	for _, m := range matches {
		s.vars[strings.TrimSpace(m[1])] = m[2]
	}
	s.mu.Unlock()
	return setvarRegex.ReplaceAllString(text, "")
}

// Expand は setvar を実行した上で getvar マクロを現在の値に置き換えます。
// 未定義の変数は空文字になるのだ。
func (s *Store) Expand(text string) string {
	text = s.Execute(text)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getvarRegex.ReplaceAllStringFunc(text, func(m string) string {
		name := getvarRegex.FindStringSubmatch(m)[1]
		return s.vars[strings.TrimSpace(name)]
	})
}
