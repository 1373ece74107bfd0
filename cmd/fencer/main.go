package main

import "github.com/vietddude/fencer/internal/cli"

func main() {
	cli.Execute()
}
