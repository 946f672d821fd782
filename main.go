package main

import (
	"github.com/custodia-labs/finqa-cli/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
