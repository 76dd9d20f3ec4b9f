package main

import "github.com/vietddude/genflow/internal/cli"

func main() {
	cli.Execute()
}
