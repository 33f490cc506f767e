package main

import "github.com/custodia-labs/deckhand-cli/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
