package main

import (
	"fmt"

	"github.com/tdex-network/tdex-walletkit/internal/config"
	"github.com/tdex-network/tdex-walletkit/internal/core/application"
	"github.com/urfave/cli/v2"
)

var (
	chainFlag = cli.Uint64Flag{
		Name:  "chain",
		Usage: "the chain id, defaults to the configured default chain",
	}
	slippageFlag = cli.StringFlag{
		Name:  "slippage",
		Usage: "the allowed slippage as a percentage, ie. 0.3",
	}
	pnlInLeverageFlag = cli.BoolFlag{
		Name:  "pnl-in-leverage",
		Usage: "include the PnL in the displayed leverage",
	}
	showPositionLinesFlag = cli.BoolFlag{
		Name:  "show-position-lines",
		Usage: "show the position lines on the chart",
	}
)

var settingsCmd = cli.Command{
	Name:  "settings",
	Usage: "get or set the trading settings of a chain",
	Subcommands: []*cli.Command{
		{
			Name:   "get",
			Usage:  "print the settings of a chain",
			Action: settingsGetAction,
			Flags:  []cli.Flag{&chainFlag},
		},
		{
			Name:   "set",
			Usage:  "update the settings of a chain",
			Action: settingsSetAction,
			Flags: []cli.Flag{
				&chainFlag,
				&slippageFlag,
				&pnlInLeverageFlag,
				&showPositionLinesFlag,
			},
		},
	},
}

func settingsGetAction(ctx *cli.Context) error {
	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.close()

	chainID := getChainID(ctx)
	settings, err := svc.cfg.SettingsService().GetSettings(ctx.Context, chainID)
	if err != nil {
		return err
	}

	fmt.Printf(
		"chain: %d (%s)\nslippage: %s%%\npnl in leverage: %t\nshow position lines: %t\n",
		chainID, svc.chains.ChainName(chainID), settings.SlippagePercent(),
		settings.IsPnlInLeverage, settings.ShouldShowPositionLines,
	)
	return nil
}

func settingsSetAction(ctx *cli.Context) error {
	if !ctx.IsSet(slippageFlag.Name) &&
		!ctx.IsSet(pnlInLeverageFlag.Name) &&
		!ctx.IsSet(showPositionLinesFlag.Name) {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.close()

	chainID := getChainID(ctx)
	settingsSvc := svc.cfg.SettingsService()
	settings, err := settingsSvc.GetSettings(ctx.Context, chainID)
	if err != nil {
		return err
	}

	if ctx.IsSet(slippageFlag.Name) {
		isPnlInLeverage := settings.IsPnlInLeverage
		if ctx.IsSet(pnlInLeverageFlag.Name) {
			isPnlInLeverage = ctx.Bool(pnlInLeverageFlag.Name)
		}
		if err := settingsSvc.SaveSettings(ctx.Context, chainID, application.SettingsForm{
			SlippagePercent: ctx.String(slippageFlag.Name),
			IsPnlInLeverage: isPnlInLeverage,
		}); err != nil {
			return err
		}
	} else if ctx.IsSet(pnlInLeverageFlag.Name) {
		if err := settingsSvc.SetPnlInLeverage(
			ctx.Context, chainID, ctx.Bool(pnlInLeverageFlag.Name),
		); err != nil {
			return err
		}
	}

	if ctx.IsSet(showPositionLinesFlag.Name) {
		if err := settingsSvc.SetShowPositionLines(
			ctx.Context, chainID, ctx.Bool(showPositionLinesFlag.Name),
		); err != nil {
			return err
		}
	}

	fmt.Println("settings updated")
	return nil
}

func getChainID(ctx *cli.Context) uint64 {
	if ctx.IsSet(chainFlag.Name) {
		return ctx.Uint64(chainFlag.Name)
	}
	return config.GetUint64(config.DefaultChainIDKey)
}
