package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/erp/unify/internal/bootstrap"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/infrastructure/advisor"
	"github.com/erp/unify/internal/infrastructure/config"
	"github.com/erp/unify/internal/interfaces/http/dto"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var opts globalOptions
	root := &cobra.Command{
		Use:           "etl",
		Short:         "Unify customer, product and order exports into one relational model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: ./config.toml, ./config/config.toml, /etc/unify/config.toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(&opts),
		newRegisterCmd(&opts),
		newProcessCmd(&opts),
		newFilesCmd(&opts),
		newProfileCmd(&opts),
		newSuggestCmd(&opts),
	)
	return root
}

// loadConfig reads the config file and applies the global overrides.
// Logs go to stderr so stdout carries only command output.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	return cfg, nil
}

// withApp runs fn against a wired application and closes it afterwards
func withApp(ctx context.Context, cfg *config.Config, fn func(context.Context, *bootstrap.App) error) (err error) {
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, app.Close(context.WithoutCancel(ctx)))
	}()
	return fn(ctx, app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseEntity(s string) (commerce.EntityType, error) {
	if s == "" {
		return "", nil
	}
	e, ok := commerce.ParseEntityType(s)
	if !ok {
		return "", usagef("unknown entity type %q", s)
	}
	return e, nil
}

func newRunCmd(g *globalOptions) *cobra.Command {
	var req dto.RunRequest
	var fresh bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline over the configured raw files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("fresh") {
				cfg.Pipeline.FreshLoad = fresh
			}
			return withApp(cmd.Context(), cfg, func(ctx context.Context, app *bootstrap.App) error {
				report, err := app.Runner.RunFull(ctx, req.Apply(app.Sources))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&req.Customers, "customers", "", "Customer export (overrides config)")
	cmd.Flags().StringVar(&req.Products, "products", "", "Product export (overrides config)")
	cmd.Flags().StringVar(&req.Reconciliation, "recon", "", "Reconciliation export (overrides config)")
	cmd.Flags().StringVar(&req.Unstructured, "unstructured", "", "Unstructured order export (overrides config)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Empty the unified tables before loading")
	return cmd
}

func newRegisterCmd(g *globalOptions) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "register <path>",
		Short: "Profile a raw file and add it to the source registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guess, err := parseEntity(entity)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, func(ctx context.Context, app *bootstrap.App) error {
				f, err := app.Runner.RegisterFile(ctx, args[0], guess)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.ToSourceFileResponse(f))
			})
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "Entity type guess (default: from the file name)")
	return cmd
}

func newProcessCmd(g *globalOptions) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "process <file-id>",
		Short: "Process one registered file against the stored ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return usagef("invalid file id %q", args[0])
			}
			override, err := parseEntity(entity)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Runner.RunFile(ctx, id, override)
				if res != nil {
					if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
						return errors.Join(err, perr)
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "Override the registered entity type")
	return cmd
}

func newFilesCmd(g *globalOptions) *cobra.Command {
	var q dto.ListFilesQuery
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the source registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, func(ctx context.Context, app *bootstrap.App) error {
				files, err := app.Runner.ListFiles(ctx, q.Filter())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.ToSourceFileResponses(files))
			})
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "", "Only files in this processing status")
	cmd.Flags().StringVar(&q.SortBy, "sort-by", "", "Sort column (default: upload_timestamp)")
	cmd.Flags().StringVar(&q.SortOrder, "sort-order", "", "asc or desc (default: desc)")
	return cmd
}

func newProfileCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <path>...",
		Short: "Report rows, columns, delimiter and encoding of raw files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, func(ctx context.Context, app *bootstrap.App) error {
				for _, p := range args {
					prof, err := app.Loader.Profile(ctx, p)
					if err != nil {
						return err
					}
					if err := printJSON(cmd.OutOrStdout(), prof); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newSuggestCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <source-a> <source-b>",
		Short: "Ask the schema advisor to map two raw files onto the unified model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, func(ctx context.Context, app *bootstrap.App) error {
				if !app.Advisor.Enabled() {
					return errors.New("schema advisor is not configured, set advisor.api_key")
				}
				var req advisor.Request
				for i, p := range args {
					b, err := app.Loader.Load(ctx, p)
					if err != nil {
						return err
					}
					src := advisor.Source{Name: b.Source, Columns: b.Columns}
					if i == 0 {
						req.SourceA = src
					} else {
						req.SourceB = src
					}
				}
				s := app.Advisor.SuggestSchemaMapping(ctx, req)
				if s == nil {
					app.Logger.Warn("schema advisor returned no suggestion")
					return errors.New("no schema mapping suggestion available")
				}
				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	}
}
