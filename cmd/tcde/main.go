// Package main provides the CLI entry point for the TCDE simulator.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/selectess/TCDE-sub001/internal/infrastructure/catalog"
	"github.com/selectess/TCDE-sub001/pkg/tcde"
)

var (
	version = "1.0.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tcde",
	Short: "TCDE - cognitive field simulator",
	Long: `TCDE simulates a complex-valued radial basis field on a 6D cognitive
manifold.

It provides:
  - Multimodal ingestion of text, image, and audio input
  - PDE evolution with autopoiesis and adaptive parameters
  - Reflexivity, prediction, and cross-modal integration metrics
  - Versioned binary snapshots with a SQLite catalog`,
	Version: version,
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

// loadOrCreate opens the input snapshot, or starts an empty field when no
// input path is given.
func loadOrCreate(ctx context.Context, cfg tcde.Config, in string) (*tcde.Simulator, error) {
	if in == "" {
		return tcde.New(cfg)
	}
	return tcde.Load(ctx, cfg, in)
}

func printJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}

// recordToCatalog registers a saved snapshot when a catalog path is set.
func recordToCatalog(ctx context.Context, catalogPath, snapshotPath string, sim *tcde.Simulator) error {
	if catalogPath == "" {
		return nil
	}
	store, err := catalog.Open(catalogPath)
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.RecordSnapshot(ctx, catalog.SnapshotRecord{
		Path:      snapshotPath,
		FieldTime: sim.Field().Time(),
		NCenters:  sim.Field().Len(),
		Energy:    sim.Energy(),
	})
	return err
}

// ============================================================================
// Ingest Command
// ============================================================================

var ingestIn string
var ingestOut string
var ingestText string
var ingestIntensity float64
var ingestCatalog string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest text into a field snapshot",
	Long:  `Ingest text into the semantic band of a field and save the result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sim, err := loadOrCreate(ctx, tcde.DefaultConfig(), ingestIn)
		if err != nil {
			return err
		}
		added, err := sim.IngestText(ingestText, ingestIntensity)
		if err != nil {
			return err
		}
		if err := sim.Save(ctx, ingestOut); err != nil {
			return err
		}
		if err := recordToCatalog(ctx, ingestCatalog, ingestOut, sim); err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"centersAdded": added,
			"centers":      sim.Field().Len(),
			"fieldTime":    sim.Field().Time(),
			"energy":       sim.Energy(),
		})
	},
}

// ============================================================================
// Evolve Command
// ============================================================================

var evolveIn string
var evolveOut string
var evolveSteps int
var evolveAdaptive string
var evolveAutopoiesis bool
var evolveCatalog string

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Evolve a field snapshot",
	Long:  `Advance a field by a number of PDE steps and save the result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		cfg := tcde.DefaultConfig()
		if evolveAdaptive != "" {
			cfg.Evolution.Adaptive.Strategy = tcde.Strategy(evolveAdaptive)
		}
		cfg.Evolution.Autopoiesis.Enabled = evolveAutopoiesis

		sim, err := tcde.Load(ctx, cfg, evolveIn)
		if err != nil {
			return err
		}
		if err := sim.Run(ctx, evolveSteps); err != nil {
			return err
		}
		if err := sim.Save(ctx, evolveOut); err != nil {
			return err
		}
		if err := recordToCatalog(ctx, evolveCatalog, evolveOut, sim); err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"steps":     evolveSteps,
			"centers":   sim.Field().Len(),
			"fieldTime": sim.Field().Time(),
			"energy":    sim.Energy(),
			"coherence": tcde.Coherence(sim.Field()),
			"params":    sim.Params(),
		})
	},
}

// ============================================================================
// Inspect Command
// ============================================================================

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot>",
	Short: "Show field statistics from a snapshot",
	Long:  `Load a snapshot and print its structural and spectral statistics.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sim, err := tcde.Load(ctx, tcde.DefaultConfig(), args[0])
		if err != nil {
			return err
		}
		f := sim.Field()
		return printJSON(map[string]interface{}{
			"centers":              f.Len(),
			"capacity":             f.Capacity(),
			"kernel":               f.Kernel().String(),
			"fieldTime":            f.Time(),
			"energy":               sim.Energy(),
			"coherence":            tcde.Coherence(f),
			"fractalDimension":     tcde.FractalDimension(f, 0.01, 1.0, 8),
			"correlationDimension": tcde.CorrelationDimension(f),
		})
	},
}

// ============================================================================
// Verify Command
// ============================================================================

var verifyCmd = &cobra.Command{
	Use:   "verify <snapshot>",
	Short: "Verify a snapshot file",
	Long:  `Parse a snapshot file fully without loading it, reporting corruption.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if err := tcde.Verify(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", args[0])
		return nil
	},
}

// ============================================================================
// Metrics Command
// ============================================================================

var metricsCmd = &cobra.Command{
	Use:   "metrics <snapshot>",
	Short: "Compute the integration metrics of a snapshot",
	Long:  `Load a snapshot and compute the holistic integration score with its components.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sim, err := tcde.Load(ctx, tcde.DefaultConfig(), args[0])
		if err != nil {
			return err
		}
		if err := sim.Field().RequireNonEmpty(); err != nil {
			return fmt.Errorf("%w: %s", err, args[0])
		}
		report, err := sim.HIS(ctx)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

// ============================================================================
// Catalog Command
// ============================================================================

var catalogPath string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog management commands",
	Long:  `Commands for browsing the snapshot catalog.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued snapshots",
	Long:  `List all snapshots registered in the catalog, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		store, err := catalog.Open(catalogPath)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.ListSnapshots(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No snapshots in catalog")
			return nil
		}
		return printJSON(records)
	},
}

func init() {
	// Ingest command
	ingestCmd.Flags().StringVarP(&ingestIn, "in", "i", "", "Input snapshot (empty starts a new field)")
	ingestCmd.Flags().StringVarP(&ingestOut, "out", "o", "", "Output snapshot (required)")
	ingestCmd.Flags().StringVarP(&ingestText, "text", "t", "", "Text to ingest (required)")
	ingestCmd.Flags().Float64Var(&ingestIntensity, "intensity", 1.0, "Ingestion intensity")
	ingestCmd.Flags().StringVar(&ingestCatalog, "catalog", "", "Catalog database to record the snapshot in")
	ingestCmd.MarkFlagRequired("out")
	ingestCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(ingestCmd)

	// Evolve command
	evolveCmd.Flags().StringVarP(&evolveIn, "in", "i", "", "Input snapshot (required)")
	evolveCmd.Flags().StringVarP(&evolveOut, "out", "o", "", "Output snapshot (required)")
	evolveCmd.Flags().IntVarP(&evolveSteps, "steps", "n", 10, "Number of evolution steps")
	evolveCmd.Flags().StringVar(&evolveAdaptive, "adaptive", "", "Adaptive strategy (energy, complexity, gradient, combined)")
	evolveCmd.Flags().BoolVar(&evolveAutopoiesis, "autopoiesis", false, "Enable the autopoietic sweep")
	evolveCmd.Flags().StringVar(&evolveCatalog, "catalog", "", "Catalog database to record the snapshot in")
	evolveCmd.MarkFlagRequired("in")
	evolveCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(evolveCmd)

	// Inspect command
	rootCmd.AddCommand(inspectCmd)

	// Verify command
	rootCmd.AddCommand(verifyCmd)

	// Metrics command
	rootCmd.AddCommand(metricsCmd)

	// Catalog commands
	catalogCmd.PersistentFlags().StringVar(&catalogPath, "db", "tcde-catalog.db", "Catalog database path")
	catalogCmd.AddCommand(catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
