package main

import "github.com/vietddude/walletscore/internal/cli"

func main() {
	cli.Execute()
}
