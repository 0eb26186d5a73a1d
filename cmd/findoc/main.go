package main

import "github.com/dyike/FinDocHub/internal/cli"

func main() {
	cli.Run()
}
