// Command networth tracks prices and imports portfolio history.
package main

import (
	"fmt"
	"os"

	"networth-tracker/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
