package main

import (
	"os"

	"github.com/voltbridge/ocpp-gateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
