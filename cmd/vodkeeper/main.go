package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tiroq/vodkeeper/internal/cli"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := cli.Execute(context.Background(), Version); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
