package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"finitefield.org/uniform-studio/internal/config"
	"finitefield.org/uniform-studio/internal/generator"
	"finitefield.org/uniform-studio/internal/submission"
)

type generateOptions struct {
	endpoint string
	out      string
	timeout  time.Duration
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	form := &formFlags{}
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Validate the form flags and request one uniform image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, lang, err := root.bundle()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			endpoint := opts.endpoint
			if endpoint == "" {
				cfg, err := config.Load(ctx, config.WithEnvFile(".env"))
				if err != nil {
					return err
				}
				endpoint = cfg.Web.GeneratorEndpoint
			}
			client := &http.Client{Timeout: opts.timeout}
			gen, err := newGenerator(endpoint, client)
			if err != nil {
				return err
			}

			wf := submission.NewWorkflow(gen,
				submission.WithMessages(submission.MessagesFor(bundle, lang)),
				submission.WithLogger(root.logger()),
			)
			display := newTerminalDisplay(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.out, client)
			res := wf.Submit(ctx, "cli", form.state(cmd.Flags()), display)
			switch {
			case res.State == submission.StateIdle:
				return fmt.Errorf("form rejected: %w", res.Err)
			case res.State != submission.StateSuccess:
				return fmt.Errorf("generation ended in state %s", res.State)
			case res.Image() != submission.ImageReady:
				return fmt.Errorf("image was generated but not saved: %w", display.fetchErr)
			}
			return nil
		},
	}
	form.bind(cmd)
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", os.Getenv("UNIFORM_GENERATOR_ENDPOINT"), `generation endpoint URL, or "fake" for the offline placeholder`)
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the generated image to this file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "HTTP timeout")
	return cmd
}

func newGenerator(endpoint string, client *http.Client) (submission.Generator, error) {
	if (config.WebConfig{GeneratorEndpoint: endpoint}).UsesFakeGenerator() {
		return generator.NewStaticGenerator(), nil
	}
	return generator.NewClient(endpoint, client, generator.WithUserAgent("uniformctl"))
}
