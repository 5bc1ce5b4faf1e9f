package main

import (
	"fmt"
	"os"

	"go-adxlog/internal/app"
	"go-adxlog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(app.Run).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}
