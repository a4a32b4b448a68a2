package main

import "github.com/clipmarker/clipmarker-agent/internal/cli"

func main() {
	cli.Execute()
}
