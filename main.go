// minignet - a turn-based multiplayer session server and its client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"minignet/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "minignet: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
