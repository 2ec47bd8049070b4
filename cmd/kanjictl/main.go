package main

import "github.com/kanjiarena/kanji-arena/internal/cli"

func main() {
	cli.Execute()
}
