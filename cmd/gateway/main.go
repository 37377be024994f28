package main

import (
	"os"

	"ble_gateway/cmd/gateway/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
