package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// NormalizePrompt はプロンプトを比較用の正規形に変換するのだ。
// カンマ区切りの各要素を小文字化し、空白を1つに畳み、ソートして連結します。
// 要素の順序・余分な空白・大文字小文字の違いは同じ正規形になるのだ。
func NormalizePrompt(prompt string) string {
	parts := strings.Split(prompt, ",")
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(strings.ToLower(p)), " ")
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}

// PromptKey は正規化したプロンプトから決定論的な識別キーを生成します。
// 空のプロンプトは空文字を返すのだ。
func PromptKey(prompt string) string {
	n := NormalizePrompt(prompt)
	if n == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(n))
	return hex.EncodeToString(hash[:])
}

// ShortKey はログ出力用にキーを先頭10文字へ切り詰めるのだ。
func ShortKey(key string) string {
	if len(key) > 10 {
		return key[:10]
	}
	return key
}
