package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/dyike/FinDocHub/config"
	"github.com/dyike/FinDocHub/consts"
	"github.com/dyike/FinDocHub/models"
	"github.com/dyike/FinDocHub/pkg/roi"
)

// NewRootCmd creates the root command
func NewRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "findoc",
		Short: "FinDocHub - Financial document intelligence dashboard",
		Long: `FinDocHub talks to the financial analysis service: ask questions about
financial documents, classify the sentiment of financial text, analyze and
compare stocks, and project the ROI of automating analyst work.

Run without a command to start the interactive dashboard.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", "", "Analysis service base URL (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug mode")

	rootCmd.AddCommand(newAskCmd(opts))
	rootCmd.AddCommand(newSentimentCmd(opts))
	rootCmd.AddCommand(newStockCmd(opts))
	rootCmd.AddCommand(newROICmd(opts))
	rootCmd.AddCommand(newHealthCmd(opts))
	rootCmd.AddCommand(newMetricsCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd(version))

	return rootCmd
}

// withSession opens a one-shot session for cmd and closes it afterwards.
func withSession(cmd *cobra.Command, opts *globalOptions, fn func(*Session) error) (err error) {
	s, err := openSession(opts, cmd.OutOrStdout(), false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

func runTool(cmd *cobra.Command, opts *globalOptions, req models.Request) error {
	return withSession(cmd, opts, func(s *Session) error {
		return s.Run(cmd.Context(), req)
	})
}

func newAskCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ask QUESTION...",
		Short:   "Ask a question about the financial documents",
		Example: `  findoc ask "What was the revenue growth in Q3?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, opts, models.AskRequest{Question: strings.Join(args, " ")})
		},
	}
}

func newSentimentCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "sentiment TEXT...",
		Short:   "Classify the sentiment of a financial text",
		Example: `  findoc sentiment "Margins expanded for the third straight quarter"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, opts, models.SentimentRequest{Text: strings.Join(args, " ")})
		},
	}
}

func newStockCmd(opts *globalOptions) *cobra.Command {
	stockCmd := &cobra.Command{
		Use:   "stock",
		Short: "Stock analysis and comparison",
	}

	var period string
	analyzeCmd := &cobra.Command{
		Use:     "analyze SYMBOL",
		Short:   "Analyze a single stock",
		Example: "  findoc stock analyze AAPL --period 6mo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, opts, models.StockAnalyzeRequest{Symbol: args[0], Period: period})
		},
	}
	analyzeCmd.Flags().StringVar(&period, "period", "", "Lookback window such as 1mo, 1y or max (config default if empty)")

	var comparePeriod string
	compareCmd := &cobra.Command{
		Use:     "compare SYMBOL1 SYMBOL2",
		Short:   "Compare the performance of two stocks",
		Example: "  findoc stock compare AAPL MSFT",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, opts, models.StockCompareRequest{Symbol1: args[0], Symbol2: args[1], Period: comparePeriod})
		},
	}
	compareCmd.Flags().StringVar(&comparePeriod, "period", "", "Lookback window such as 1mo, 1y or max (config default if empty)")

	stockCmd.AddCommand(analyzeCmd, compareCmd)
	return stockCmd
}

func newROICmd(opts *globalOptions) *cobra.Command {
	in := roi.DefaultInputs()
	cmd := &cobra.Command{
		Use:   "roi",
		Short: "Project the ROI of automating analyst work",
		Long: `Project annual savings, ROI and break-even of replacing manual analyst hours
with the analysis service. The per-seat price and efficiency factor come from
the config file.`,
		Example: "  findoc roi --team-size 10 --hours 40 --rate 200",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *Session) error {
				return s.ROI(in)
			})
		},
	}
	cmd.Flags().IntVar(&in.TeamSize, "team-size", in.TeamSize, "Number of analysts")
	cmd.Flags().Float64Var(&in.HoursPerWeekPerAnalyst, "hours", in.HoursPerWeekPerAnalyst, "Hours per week each analyst spends on document work")
	cmd.Flags().Float64Var(&in.HourlyRate, "rate", in.HourlyRate, "Fully loaded hourly rate in dollars")
	return cmd
}

func newHealthCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the analysis service is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *Session) error {
				return s.Health(cmd.Context())
			})
		},
	}
}

func newMetricsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show the analysis service usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *Session) error {
				return s.Metrics(cmd.Context())
			})
		},
	}
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		params models.HistoryParams
		export bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently completed requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.Tool != "" && !slices.Contains(consts.Tools, params.Tool) {
				return fmt.Errorf("unknown tool %q, expected one of %s", params.Tool, strings.Join(consts.Tools, ", "))
			}
			return withSession(cmd, opts, func(s *Session) error {
				if export {
					return s.ExportHistory(cmd.Context(), params)
				}
				return s.PrintHistory(cmd.Context(), params)
			})
		},
	}
	cmd.Flags().StringVar(&params.Tool, "tool", "", "Only show one tool: "+strings.Join(consts.Tools, ", "))
	cmd.Flags().IntVar(&params.Limit, "limit", 20, "Maximum number of entries (at most 200)")
	cmd.Flags().BoolVar(&export, "export", false, "Write the entries to a CSV file under the data directory")

	cmd.AddCommand(&cobra.Command{
		Use:     "show ID",
		Short:   "Show one request in full, by id or unique id prefix",
		Example: "  findoc history show 3f2a9c1e",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *Session) error {
				return s.ShowHistory(cmd.Context(), args[0])
			})
		},
	})
	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "FinDocHub %s\n", version)
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(opts *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Inspect the FinDocHub configuration file and the effective settings",
	}

	format := string(outputYAML)
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return showConfig(cmd, cfg, outputFormat(format))
		},
	}
	showCmd.Flags().StringVarP(&format, "output", "o", format, "Output format: yaml or json")
	configCmd.AddCommand(showCmd)

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is valid\n", path)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:     "set KEY VALUE",
		Short:   "Change one setting in the configuration file",
		Example: "  findoc config set request_timeout_seconds 10",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *Session) error {
				return s.SetConfigValue(args[0], args[1])
			})
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, err := loadConfig(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return configCmd
}

// loadConfig reads the config file, creating it with defaults when missing,
// and layers the environment and flags over it.
func loadConfig(opts *globalOptions) (config.Config, string, error) {
	mgr, err := config.NewManager(config.WithConfigPath(opts.configPath))
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	return opts.apply(mgr.Get()), mgr.Path(), nil
}

func showConfig(cmd *cobra.Command, cfg config.Config, format outputFormat) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case outputYAML:
		data, err = yaml.Marshal(cfg)
	case outputJSON:
		if data, err = json.MarshalIndent(cfg, "", "  "); err == nil {
			data = append(data, '\n')
		}
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
