package main

import (
	"github.com/matjam/smoothtile/internal/cli"
)

func main() {
	cli.Execute()
}
