package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/uniform-studio/internal/i18n"
	"finitefield.org/uniform-studio/internal/observability"
)

type rootOptions struct {
	lang    string
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "uniformctl",
		Short:         "Inspect and generate sports uniform designs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.lang, "lang", "ko", "caption and menu language (ko, en)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log submission details to stderr")

	root.AddCommand(newMenuCmd(opts), newPayloadCmd(opts), newGenerateCmd(opts))
	return root
}

func (o *rootOptions) bundle() (*i18n.Bundle, string, error) {
	bundle, err := i18n.Default()
	if err != nil {
		return nil, "", err
	}
	if !bundle.IsSupported(o.lang) {
		return nil, "", fmt.Errorf("unsupported language %q (choose from %v)", o.lang, bundle.Supported())
	}
	return bundle, o.lang, nil
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := observability.NewLogger("uniformctl")
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
