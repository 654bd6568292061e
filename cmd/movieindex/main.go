package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pallavi-MMM/movie-indexing/internal/config"
	"github.com/pallavi-MMM/movie-indexing/internal/logging"
	"github.com/pallavi-MMM/movie-indexing/internal/pipeline"
	"github.com/pallavi-MMM/movie-indexing/internal/record"
	"github.com/pallavi-MMM/movie-indexing/internal/schema"
	"github.com/pallavi-MMM/movie-indexing/internal/stage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	strict  bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "movieindex",
	Short: "movieindex - scene segmentation and record fusion for movies",
	Long:  "Segments movies into scenes and fuses per-stage analysis records into one canonical, schema-validated record per scene.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("strict") {
			cfg.Schema.Strict = strict
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "treat schema violations as fatal per scene")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(fuseCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
}

func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, *config.Config, error) {
	cfg := config.FromContext(cmd.Context())

	sch, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		return nil, nil, err
	}

	reg := stage.NewRegistry(log.Logger)
	return pipeline.New(log.Logger, cfg, sch, reg), cfg, nil
}

var indexCmd = &cobra.Command{
	Use:   "index [video file or directory]",
	Short: "Segment a movie and build its scene index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, _, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		if info.IsDir() {
			return pipe.IndexAll(cmd.Context(), args[0])
		}

		index, err := pipe.IndexMovie(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return pipe.Write(index)
	},
}

var fuseCmd = &cobra.Command{
	Use:   "fuse [partials.json...]",
	Short: "Fuse pre-computed partial records into canonical scene records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, cfg, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		var partials []record.Partial
		for _, path := range args {
			loaded, err := pipeline.LoadPartials(path)
			if err != nil {
				return err
			}
			partials = append(partials, loaded...)
		}

		recs, reports := pipe.FusePartials(partials)
		for _, r := range reports {
			if !r.StrictOK {
				log.Warn().
					Str("scene_id", r.SceneID).
					Int("violations", len(r.Violations)).
					Bool("strict", cfg.Schema.Strict).
					Msg("scene has schema violations")
			}
		}

		out, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [index.json]",
	Short: "Validate a scene index against the schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		sch, err := schema.Load(cfg.Schema.Path)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var index pipeline.MovieIndex
		if err := json.Unmarshal(data, &index); err != nil {
			return fmt.Errorf("parsing index: %w", err)
		}

		failed := 0
		for _, rec := range index.Scenes {
			violations := sch.Validate(rec)
			if len(violations) == 0 {
				continue
			}
			failed++
			for _, v := range violations {
				log.Warn().
					Str("scene_id", rec.SceneID).
					Str("violation", v.String()).
					Msg("schema violation")
			}
		}

		log.Info().
			Int("scenes", len(index.Scenes)).
			Int("failed", failed).
			Msg("validation complete")
		if failed > 0 && cfg.Schema.Strict {
			return fmt.Errorf("%d of %d scenes failed strict validation", failed, len(index.Scenes))
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}
