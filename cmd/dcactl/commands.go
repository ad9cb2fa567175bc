package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"BitDCA/internal/domain/models"
	"BitDCA/internal/service/coingecko"
	"BitDCA/internal/services/risk"
	"BitDCA/internal/usecase"
	"BitDCA/pkg/config"
	applogger "BitDCA/pkg/logger"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "dcactl",
		Short:         "Bitcoin DCA risk assessment from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (defaults only when empty)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log feed activity to stderr")

	root.AddCommand(quoteCmd(opts))
	root.AddCommand(strategiesCmd(opts))
	return root
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.configPath == "" {
		c := config.Default()
		c.ApplyEnv(os.Getenv)
		return c, c.Validate()
	}
	return config.LoadWithEnv(opts.configPath)
}

func quoteCmd(opts *rootOptions) *cobra.Command {
	var amount, strategy string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch market data, score it and size a purchase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			l := applogger.Nop()
			if opts.verbose {
				l = applogger.NewWriter(os.Stderr, "debug")
			}
			registry, err := risk.NewRegistryFromConfig(cfg)
			if err != nil {
				return err
			}
			feed := coingecko.New(
				coingecko.WithBaseURL(cfg.Market.BaseURL),
				coingecko.WithAPIKey(cfg.Market.APIKey),
				coingecko.WithTimeout(cfg.Market.Timeout),
				coingecko.WithLogger(l),
			)
			ing := usecase.NewIngestor(feed, registry, usecase.IngestorConfig{
				Symbol:    cfg.Market.Symbol,
				MinPoints: cfg.Engine.MinPoints,
				SMAWindow: cfg.Engine.Deviation.Window,
				Reference: cfg.Engine.HalvingEpoch,
			}, usecase.WithLogger(l))
			sessions := usecase.NewSessionManager(ing, cfg.Engine.SessionTTL, nil)

			a, rec, err := sessions.Quote(cmd.Context(), strategy, amount)
			if err != nil {
				var ie *models.IngestionError
				if errors.As(err, &ie) {
					return errors.New(ie.UserMessage())
				}
				return err
			}
			renderQuote(cmd.OutOrStdout(), a, rec)
			return nil
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "base DCA amount in USD")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "risk strategy (deviation, tanh, blend)")
	return cmd
}

func strategiesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the available risk strategies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			registry, err := risk.NewRegistryFromConfig(cfg)
			if err != nil {
				return err
			}
			renderStrategies(cmd.OutOrStdout(), registry.Infos())
			return nil
		},
	}
}

func labelColor(label string) *color.Color {
	switch label {
	case risk.LabelBuyMore:
		return color.New(color.FgGreen, color.Bold)
	case risk.LabelBuyLess:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow)
	}
}

func renderQuote(w io.Writer, a models.Assessment, rec *models.Recommendation) {
	bold := color.New(color.Bold)
	s := a.Signals

	bold.Fprintf(w, "%s  $%.2f\n", a.Symbol, s.SpotPrice)
	fmt.Fprintf(w, "  SMA(%d)        $%.2f\n", s.SMAWindow, s.SMA)
	fmt.Fprintf(w, "  max deviation %.4f\n", s.MaxDeviation)
	fmt.Fprintf(w, "  history       %d days (%s to %s)\n", s.Points,
		s.FirstDate.Format("2006-01-02"), s.LastDate.Format("2006-01-02"))
	fmt.Fprintf(w, "  risk [%s]     %+.4f  ", a.Score.Strategy, a.Score.Value)
	labelColor(a.Score.Label).Fprintln(w, a.Score.Label)
	if a.Score.Neutral {
		color.New(color.FgYellow).Fprintln(w, "  inputs were degenerate; neutral score used")
	}

	if rec == nil {
		fmt.Fprintln(w, "  no amount given; pass --amount to size a purchase")
		return
	}
	fmt.Fprintf(w, "  multiplier    x%.2f\n", rec.Multiplier)
	bold.Fprintf(w, "  buy           $%s = %s BTC\n", rec.USDDisplay, rec.BTCDisplay)
}

func renderStrategies(w io.Writer, infos []models.StrategyInfo) {
	for _, info := range infos {
		name := info.Name
		if info.Default {
			name += " (default)"
		}
		color.New(color.Bold).Fprintln(w, name)
		fmt.Fprintf(w, "  %s\n", info.Description)
		fmt.Fprintf(w, "  sign: %s\n", info.SignConvention)
		fmt.Fprintf(w, "  multiplier: %s\n", info.Multiplier)
		if len(info.Params) > 0 {
			parts := make([]string, 0, len(info.Params))
			for k, v := range info.Params {
				parts = append(parts, fmt.Sprintf("%s=%g", k, v))
			}
			sort.Strings(parts)
			fmt.Fprintf(w, "  params: %s\n", strings.Join(parts, " "))
		}
	}
}
