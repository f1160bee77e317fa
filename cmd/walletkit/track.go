package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var messageFlag = cli.StringFlag{
	Name:  "message",
	Usage: "the message shown once the transaction succeeds",
}

var trackCmd = cli.Command{
	Name:      "track",
	Usage:     "track a transaction until its receipt is available",
	ArgsUsage: "<hash>",
	Action:    trackAction,
	Flags:     []cli.Flag{&chainFlag, &messageFlag},
}

func trackAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	hash, err := parseHash(ctx.Args().First())
	if err != nil {
		return err
	}

	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.close()

	chainID := getChainID(ctx)
	if !svc.chains.IsSupported(chainID) {
		return fmt.Errorf("chain %d is not supported", chainID)
	}
	source, err := svc.chains.ReceiptSource(ctx.Context, chainID)
	if err != nil {
		return err
	}

	tracker := svc.cfg.PendingTxService()
	tracker.Register(domain.NewPendingTransaction(hash, ctx.String(messageFlag.Name)))
	if err := tracker.Start(source, chainID); err != nil {
		return err
	}
	defer tracker.Stop()

	log.Infof("tracking %s on %s", hash.Hex(), svc.chains.ChainName(chainID))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			return nil
		case <-ticker.C:
			if len(tracker.PendingTransactions()) <= 0 {
				return nil
			}
		}
	}
}
