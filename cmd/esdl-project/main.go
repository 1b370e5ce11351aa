package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mapeditor/core-go/internal/boundary"
	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/httpapi"
	"mapeditor/core-go/internal/modelstore"
	"mapeditor/core-go/internal/notify"
	"mapeditor/core-go/internal/projection"
)

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "esdl-project",
		Short: "Project ESDL energy system documents onto map editor layers",
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(projectCmd(&logLevel))
	rootCmd.AddCommand(buildingCmd(&logLevel))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// cliLogger writes console logs to stderr; stdout carries the JSON output.
func cliLogger(cmd *cobra.Command, level string) zerolog.Logger {
	return httpapi.NewLogger(httpapi.LogConfig{
		Level:   level,
		Service: "esdl-project",
		Format:  "console",
		Out:     cmd.ErrOrStderr(),
	})
}

type projectOptions struct {
	editor       bool
	messages     bool
	boundaryFile string
	year         int
	seed         int64
}

func projectCmd(logLevel *string) *cobra.Command {
	var opts projectOptions

	cmd := &cobra.Command{
		Use:   "project [document.json]",
		Short: "Project a whole energy system and print the batch as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProject(cmd.Context(), cmd.OutOrStdout(), cliLogger(cmd, *logLevel), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.editor, "editor", false, "render buildings as editor canvases")
	cmd.Flags().BoolVar(&opts.messages, "messages", false, "print the published message stream instead of the batch")
	cmd.Flags().StringVar(&opts.boundaryFile, "boundaries", "", "GeoJSON feature collection with area boundaries")
	cmd.Flags().IntVar(&opts.year, "year", 2019, "boundaries year")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "seed for synthesized positions")
	return cmd
}

func buildingCmd(logLevel *string) *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "building [document.json] [building-id]",
		Short: "Print the editor view of one building",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuilding(cmd.Context(), cmd.OutOrStdout(), cliLogger(cmd, *logLevel), args[0], args[1], seed)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 1, "seed for synthesized positions")
	return cmd
}

func loadDocument(path string) (*modelstore.Store, *esdl.EnergySystem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	es, err := esdl.Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	store := modelstore.New()
	store.Put(es)
	return store, es, nil
}

func runProject(ctx context.Context, w io.Writer, log zerolog.Logger, path string, opts projectOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, es, err := loadDocument(path)
	if err != nil {
		return err
	}

	var boundaries boundary.Service
	if opts.boundaryFile != "" {
		s, err := boundary.LoadStaticFile(opts.boundaryFile)
		if err != nil {
			return err
		}
		boundaries = s
	}

	rec := notify.NewRecorder()
	engine := projection.NewEngine(log, projection.Options{
		Systems:        store,
		Boundaries:     boundaries,
		Rand:           rand.New(rand.NewSource(opts.seed)),
		Publisher:      rec,
		BoundariesYear: opts.year,
	})

	batch, err := engine.Project(ctx, es.ID, projection.Mode{EditorView: opts.editor})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if opts.messages {
		var out []notify.Message
		for _, b := range rec.Batches(es.ID) {
			out = append(out, b...)
		}
		return enc.Encode(out)
	}
	return enc.Encode(batch)
}

func runBuilding(ctx context.Context, w io.Writer, log zerolog.Logger, path, buildingID string, seed int64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, es, err := loadDocument(path)
	if err != nil {
		return err
	}

	engine := projection.NewEngine(log, projection.Options{
		Systems: store,
		Rand:    rand.New(rand.NewSource(seed)),
	})
	info, err := engine.BuildingView(ctx, es.ID, buildingID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}
