package main

import (
	"context"
	"io"
	"os"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"

	highlight "go.gopad.dev/go-highlight"
	"go.gopad.dev/go-highlight/grammar/lexer"
	"go.gopad.dev/go-highlight/grammar/rules"
	"go.gopad.dev/go-highlight/internal/config"
	"go.gopad.dev/go-highlight/internal/logging"
	"go.gopad.dev/go-highlight/internal/tracing"
	"go.gopad.dev/go-highlight/language/golang"
	"go.gopad.dev/go-highlight/provider"
	"go.gopad.dev/go-highlight/provider/remote"
)

type options struct {
	language   string
	configFile string
	debug      bool
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var opts options

	cmd := &cobra.Command{
		Use:          "highlight [file]",
		Short:        "Highlight source code as HTML or for the terminal",
		Long:         "Highlight a file, or stdin when no file is given, and write the result to stdout.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHighlight(cmd, v, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.language, "lang", "l", "", "language of the input, detected from the file when empty")
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (yaml or toml)")
	flags.BoolVar(&opts.debug, "debug", false, "log at debug level")
	flags.String("format", highlight.FormatCustomElements.String(), "output format: html, class or ansi")
	flags.String("class-prefix", "", "class name prefix for the class format")
	flags.Uint("depth", highlight.DefaultMaxInjectionDepth, "maximum injection depth, 0 disables injections")
	flags.StringSlice("grammars", nil, "directories containing grammar definitions")
	flags.String("grammar-url", "", "base URL serving grammar definitions")

	_ = v.BindPFlag("format", flags.Lookup("format"))
	_ = v.BindPFlag("class_prefix", flags.Lookup("class-prefix"))
	_ = v.BindPFlag("max_injection_depth", flags.Lookup("depth"))
	_ = v.BindPFlag("grammar_dirs", flags.Lookup("grammars"))
	_ = v.BindPFlag("grammar_url", flags.Lookup("grammar-url"))

	return cmd
}

func runHighlight(cmd *cobra.Command, v *viper.Viper, opts options, args []string) error {
	cfg, err := config.Load(v, opts.configFile)
	if err != nil {
		return err
	}
	if opts.debug {
		cfg.Log.Level = zerolog.LevelDebugValue
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return err
	}
	ctx := logger.WithContext(cmd.Context())

	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	filename, source, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	language := opts.language
	if language == "" {
		language = lexer.Detect(filename, source)
	}
	if language == "" {
		return errors.New("cannot detect the language of the input, set it with --lang")
	}

	p, err := newProvider(cfg)
	if err != nil {
		return err
	}

	hlCfg, err := cfg.Highlight()
	if err != nil {
		return err
	}
	hlCfg.Tracer = tp.Tracer()
	hlCfg.Logger = &logger
	if hlCfg.Format == highlight.FormatANSI {
		hlCfg.Profile = termenv.NewOutput(cmd.OutOrStdout()).EnvColorProfile()
	}

	logger.Debug().Str("language", language).Str("file", filename).Msg("highlighting")
	out, err := highlight.New(p, hlCfg).Highlight(ctx, language, source)
	if err != nil {
		return err
	}

	_, err = io.WriteString(cmd.OutOrStdout(), out)
	return errors.WithStack(err)
}

func readInput(cmd *cobra.Command, args []string) (string, []byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", nil, errors.Errorf("error reading stdin: %w", err)
		}
		return "", data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	return args[0], data, nil
}

// newProvider chains the bundled grammars, grammar definitions from the configured
// directories and URL, and chroma lexers, in that order.
func newProvider(cfg config.Config) (highlight.Provider, error) {
	builtin, err := rules.Builtin()
	if err != nil {
		return nil, err
	}

	providers := []highlight.Provider{
		provider.NewStatic(nil, provider.WithLanguages(golang.Language()), provider.WithRules(builtin...)),
	}
	if len(cfg.GrammarDirs) > 0 {
		loader := remote.NewFSLoader(afero.NewOsFs(), cfg.GrammarDirs...)
		providers = append(providers, remote.New(loader, remote.WithTTL(cfg.CacheTTL)))
	}
	if cfg.GrammarURL != "" {
		loader, err := remote.NewHTTPLoader(cfg.GrammarURL, nil)
		if err != nil {
			return nil, err
		}
		providers = append(providers, remote.New(loader, remote.WithTTL(cfg.CacheTTL)))
	}
	providers = append(providers, lexer.Provider())

	return provider.Chain(providers...), nil
}
