package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/application"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/urfave/cli/v2"
)

const shortAccountLength = 13

var sessionCmd = cli.Command{
	Name:  "session",
	Usage: "start an interactive wallet session",
	Description: "Commands: connect [injected|relay], disconnect, " +
		"track <hash> [message], pending, settings, slippage <percent>, " +
		"pnl on|off, lines on|off, status, quit",
	Action: sessionAction,
}

func sessionAction(ctx *cli.Context) error {
	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.close()

	session := svc.cfg.Session()
	if err := session.Start(ctx.Context); err != nil {
		return err
	}
	defer session.Stop()

	// pending activations are canceled and awaited before stopping the session
	runCtx, cancel := context.WithCancel(ctx.Context)
	host := &sessionHost{session: session, activations: &sync.WaitGroup{}}
	defer func() {
		cancel()
		host.activations.Wait()
	}()

	go func() {
		for state := range session.Updates() {
			printState(session, state)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-sigChan:
			log.Debug("exiting")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := host.execLine(runCtx, line)
			if err != nil {
				log.Warn(err)
			}
			if quit {
				return nil
			}
		}
	}
}

// sessionHost runs the commands of an interactive session. Wallet
// activations run in background so that the host keeps accepting commands
// while waiting for the user to approve from the wallet.
type sessionHost struct {
	session     application.Session
	activations *sync.WaitGroup
}

// execLine runs a single session command and returns whether the session
// must end.
func (h *sessionHost) execLine(ctx context.Context, line string) (bool, error) {
	session := h.session
	args := strings.Fields(line)
	if len(args) <= 0 {
		return false, nil
	}

	switch args[0] {
	case "quit", "exit":
		return true, nil
	case "connect":
		if len(args) < 2 {
			session.ConnectWallet()
			return false, nil
		}
		switch args[1] {
		case "injected":
			h.activate(ctx, domain.ConnectorInjected, session.ActivateInjected)
		case "relay":
			h.activate(ctx, domain.ConnectorRelay, session.ActivateRelay)
		default:
			return false, fmt.Errorf("unknown connector %q", args[1])
		}
		return false, nil
	case "disconnect":
		return false, session.Disconnect(ctx)
	case "track":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: track <hash> [message]")
		}
		hash, err := parseHash(args[1])
		if err != nil {
			return false, err
		}
		session.Track(hash, strings.Join(args[2:], " "))
		return false, nil
	case "pending":
		for _, tx := range session.PendingTransactions() {
			fmt.Println(tx.Hash.Hex(), tx.Message)
		}
		return false, nil
	case "settings":
		form, err := session.OpenSettings(ctx)
		if err != nil {
			return false, err
		}
		settings, err := session.GetSettings(ctx)
		if err != nil {
			return false, err
		}
		fmt.Printf(
			"chain: %d\nslippage: %s%%\npnl in leverage: %t\nshow position lines: %t\n",
			session.ChainID(), form.SlippagePercent, form.IsPnlInLeverage,
			settings.ShouldShowPositionLines,
		)
		return false, nil
	case "slippage":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: slippage <percent>")
		}
		settings, err := session.GetSettings(ctx)
		if err != nil {
			return false, err
		}
		return false, session.SaveSettings(ctx, application.SettingsForm{
			SlippagePercent: args[1],
			IsPnlInLeverage: settings.IsPnlInLeverage,
		})
	case "pnl", "lines":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: %s on|off", args[0])
		}
		enabled, err := parseSwitch(args[1])
		if err != nil {
			return false, err
		}
		if args[0] == "pnl" {
			return false, session.SetPnlInLeverage(ctx, enabled)
		}
		return false, session.SetShowPositionLines(ctx, enabled)
	case "status":
		printState(session, session.State())
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q", args[0])
	}
}

// activate runs fn in background. Failures are already notified to the user
// by the session.
func (h *sessionHost) activate(
	ctx context.Context, kind domain.ConnectorKind,
	fn func(context.Context) error,
) {
	h.activations.Add(1)
	go func() {
		defer h.activations.Done()
		if err := fn(ctx); err != nil {
			log.WithError(err).Debugf("%s activation ended", kind)
		}
	}()
}

func printState(session application.Session, state domain.ConnectionState) {
	if !state.IsActive() {
		fmt.Printf("[%s] not connected, chain %d\n", state.Status, session.ChainID())
		return
	}
	fmt.Printf(
		"[%s] %s via %s on chain %d %s\n",
		state.Status, session.ShortAccount(shortAccountLength), state.Connector,
		session.ChainID(), session.AccountURL(),
	)
}

func parseHash(str string) (common.Hash, error) {
	buf, err := hexutil.Decode(str)
	if err != nil || len(buf) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid tx hash %q", str)
	}
	return common.BytesToHash(buf), nil
}

func parseSwitch(str string) (bool, error) {
	switch strings.ToLower(str) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", str)
	}
}
