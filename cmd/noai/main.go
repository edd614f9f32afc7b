package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	noaierrors "github.com/noai-dev/noai/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌┐┌┌─┐┌─┐┬
  ││││ │├─┤│
  ┘└┘└─┘┴ ┴┴
`

func main() {
	if err := rootCmd().Execute(); err != nil {
		var ne *noaierrors.NoaiError
		if errors.As(err, &ne) {
			fmt.Fprintln(os.Stderr, ne.Format())
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "noai",
		Short: "A calm social network without algorithmic feeds",
		Long: `NOAI serves a chronological social client over HTTP and WebSocket.

Likes, follows and comments are applied optimistically and rolled
back if the backend rejects them. The backend is an in-memory mock
with configurable latency and failure rate.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(),
		demoCmd(),
		configCmd(),
		versionCmd(),
	)
	return root
}

// printBanner prints the NOAI banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
