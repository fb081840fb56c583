package main

import (
	"github.com/shouni/go-chat-media-kit/cmd"
)

// main は chatmedia CLI を起動するのだ。
func main() {
	cmd.Execute()
}
