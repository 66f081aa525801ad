package main

import "github.com/ppiankov/conative/internal/cli"

func main() {
	cli.Execute()
}
