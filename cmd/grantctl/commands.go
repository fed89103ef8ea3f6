package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/grant-tagger/internal/bootstrap"
	"github.com/kirillkom/grant-tagger/internal/config"
	"github.com/kirillkom/grant-tagger/internal/core/domain"
	"github.com/kirillkom/grant-tagger/internal/core/ports"
	"github.com/kirillkom/grant-tagger/internal/core/usecase"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/resilience"
	"github.com/kirillkom/grant-tagger/internal/observability/logging"
)

// deps lets tests swap the classifier and the store-backed seeder.
type deps struct {
	loadConfig    func() config.Config
	newClassifier func(cfg config.Config, vocabulary *domain.Vocabulary) ports.GrantClassifier
	seed          func(ctx context.Context, cfg config.Config, source string) (int, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		newClassifier: func(cfg config.Config, vocabulary *domain.Vocabulary) ports.GrantClassifier {
			executor := resilience.NewExecutor(bootstrap.BreakerConfig(cfg))
			return bootstrap.NewClassifier(cfg, vocabulary, executor, nil)
		},
		seed: func(ctx context.Context, cfg config.Config, source string) (int, error) {
			app, err := bootstrap.New(ctx, cfg, nil)
			if err != nil {
				return 0, err
			}
			defer app.Close()
			return app.Seed(ctx, source)
		},
	}
}

func newRootCommand(d deps) *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:          "grantctl",
		Short:        "Inspect the tag vocabulary, classify grants and seed the grant store",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Install(logging.New(cmd.ErrOrStderr(), "grantctl", logLevel))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newTagsCommand(), newClassifyCommand(d), newSeedCommand(d))
	return root
}

func newTagsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Print the allowed tags in canonical order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tags := domain.DefaultVocabulary().Tags()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string][]string{"tags": tags})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tags, "\n"))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newClassifyCommand(d deps) *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Tag a grant without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := d.loadConfig()
			if strings.TrimSpace(cfg.LLMAPIKey) == "" {
				return fmt.Errorf("LLM_API_KEY or GROQ_API_KEY is required")
			}
			vocabulary := domain.DefaultVocabulary()
			tagger := usecase.NewTagGrantsUseCase(nil, d.newClassifier(cfg, vocabulary), vocabulary)

			tagged, err := tagger.TagOne(cmd.Context(), domain.Grant{Name: name, Description: description})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"grant_name": tagged.Name,
				"tags":       tagged.Tags,
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "grant name")
	cmd.Flags().StringVar(&description, "description", "", "grant description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newSeedCommand(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file|sample>",
		Short: "Tag every grant in a YAML or JSON file and store them as one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := d.loadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			source := args[0]
			if !strings.EqualFold(source, bootstrap.SampleSeed) {
				if _, err := os.Stat(source); err != nil {
					return fmt.Errorf("seed source: %w", err)
				}
			}

			stored, err := d.seed(cmd.Context(), cfg, source)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %d grants\n", stored)
			return err
		},
	}
	return cmd
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
