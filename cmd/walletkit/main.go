package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "walletkit"
	app.Usage = "Wallet session and pending transactions tracker for EVM chains"
	app.Commands = append(
		app.Commands,
		&sessionCmd,
		&settingsCmd,
		&trackCmd,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[walletkit] %v\n", err)
	}
	os.Exit(1)
}
