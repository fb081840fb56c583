package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// ErrInvalidPattern はパターンのコンパイルに失敗したことを示します。
var ErrInvalidPattern = errors.New("invalid placeholder pattern")

const (
	defaultMatchTimeout = time.Second
	groupNamePrompt     = "prompt"
	groupNameParams     = "params"
)

// FieldMap はキャプチャグループとプレースホルダのフィールドの対応表なのだ。
// 値はグループ名か番号（"2" など）です。空の場合はパターンから自動で決めます。
type FieldMap struct {
	Prompt string `yaml:"prompt"`
	Params string `yaml:"params"`
}

// PositionalFieldMap は既定パターン用の「1=パラメータ, 2=プロンプト」の対応です。
var PositionalFieldMap = FieldMap{Prompt: "2", Params: "1"}

// PatternSpec はホストから渡されるパターン定義です。
type PatternSpec struct {
	Expr   string
	Fields FieldMap
}

// Matcher はコンパイル済みのパターンと、解決済みのフィールド対応を保持するのだ。
type Matcher struct {
	re     *regexp2.Regexp
	global bool
	prompt groupRef
	params groupRef
}

type groupRef struct {
	name   string
	number int
	valid  bool
}

func (g groupRef) lookup(m *regexp2.Match) (string, bool) {
	if !g.valid {
		return "", false
	}
	var grp *regexp2.Group
	if g.name != "" {
		grp = m.GroupByName(g.name)
	} else {
		grp = m.GroupByNumber(g.number)
	}
	if grp == nil || len(grp.Captures) == 0 {
		return "", false
	}
	return grp.String(), true
}

// Global はパターンが全件マッチ（g フラグ）として宣言されているかを返します。
func (m *Matcher) Global() bool {
	return m.global
}

// maxCompiledPatterns はコンパイル済みパターンを保持する上限です。
// 設定変更のたびに増えないよう、古いものから捨てるのだ。
const maxCompiledPatterns = 32

var (
	cacheMu       sync.Mutex
	compiled      = make(map[PatternSpec]*Matcher)
	compiledOrder []PatternSpec
)

// Compile はパターン定義をコンパイルするのだ。同じ定義は使い回します。
func Compile(spec PatternSpec) (*Matcher, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if m, ok := compiled[spec]; ok {
		return m, nil
	}
	m, err := compile(spec)
	if err != nil {
		return nil, err
	}
	if len(compiledOrder) >= maxCompiledPatterns {
		delete(compiled, compiledOrder[0])
		compiledOrder = compiledOrder[1:]
	}
	compiled[spec] = m
	compiledOrder = append(compiledOrder, spec)
	return m, nil
}

func compile(spec PatternSpec) (*Matcher, error) {
	expr := strings.TrimSpace(spec.Expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	body, flags := expr, ""
	if m := literalRegex.FindStringSubmatch(expr); m != nil {
		body, flags = m[1], m[2]
	}

	var opts regexp2.RegexOptions
	global := false
	for _, f := range flags {
		switch f {
		case 'g':
			global = true
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'u', 'y':
			// regexp2 はルーン単位で動くので u は不要、y は非対応なのだ
		default:
			return nil, fmt.Errorf("%w: unknown flag %q", ErrInvalidPattern, f)
		}
	}

	re, err := regexp2.Compile(body, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	re.MatchTimeout = defaultMatchTimeout

	prompt, params, err := resolveFields(re, spec.Fields)
	if err != nil {
		return nil, err
	}

	return &Matcher{re: re, global: global, prompt: prompt, params: params}, nil
}

// resolveFields はフィールド対応を一度だけ解決するのだ。
func resolveFields(re *regexp2.Regexp, fields FieldMap) (groupRef, groupRef, error) {
	names := make(map[string]bool)
	for _, n := range re.GetGroupNames() {
		names[n] = true
	}
	maxGroup := 0
	for _, n := range re.GetGroupNumbers() {
		if n > maxGroup {
			maxGroup = n
		}
	}

	resolve := func(v string) (groupRef, error) {
		if v == "" {
			return groupRef{}, nil
		}
		if n, err := strconv.Atoi(v); err == nil {
			if n < 1 || n > maxGroup {
				return groupRef{}, fmt.Errorf("%w: group %d does not exist", ErrInvalidPattern, n)
			}
			return groupRef{number: n, valid: true}, nil
		}
		if !names[v] {
			return groupRef{}, fmt.Errorf("%w: group %q does not exist", ErrInvalidPattern, v)
		}
		return groupRef{name: v, valid: true}, nil
	}

	if fields == (FieldMap{}) {
		switch {
		case names[groupNamePrompt]:
			fields.Prompt = groupNamePrompt
			if names[groupNameParams] {
				fields.Params = groupNameParams
			}
		case maxGroup >= 2:
			fields = PositionalFieldMap
		case maxGroup == 1:
			fields.Prompt = "1"
		default:
			return groupRef{}, groupRef{}, fmt.Errorf("%w: no capture group for prompt", ErrInvalidPattern)
		}
	}

	prompt, err := resolve(fields.Prompt)
	if err != nil {
		return groupRef{}, groupRef{}, err
	}
	if !prompt.valid {
		return groupRef{}, groupRef{}, fmt.Errorf("%w: prompt field is not mapped", ErrInvalidPattern)
	}
	params, err := resolve(fields.Params)
	if err != nil {
		return groupRef{}, groupRef{}, err
	}
	return prompt, params, nil
}
