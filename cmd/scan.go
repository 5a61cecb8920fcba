package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rotwatch.dev/pkg/rotwatch/internal/adapter"
	"rotwatch.dev/pkg/rotwatch/internal/controller"
	"rotwatch.dev/pkg/rotwatch/internal/domain"
)

var scanHashAlgorithmFlag string
var scanWorkersFlag int
var scanChunkSizeFlag int
var scanSaveEveryFlag int
var scanNoCheckFlag bool

const scanLongDescription = `Reconcile a directory tree against its ledger.

The verification pass re-digests every recorded file and classifies it
as unchanged, updated (timestamp moved: assumed intentional edit),
removed, or corrupted (content changed under an unchanged timestamp).
The discovery pass then records files the ledger has never seen.

Exit status is 0 when no corruption was found and 1 otherwise.`

// scanCmd represents the scan command.
var scanCmd = newScanCmd()

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scan [path]",
		Short:        "Scan a directory tree for bit rot",
		Long:         scanLongDescription,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, scanRoot(args))
		},
	}

	configureScanFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func configureScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&scanHashAlgorithmFlag, hashAlgorithmFlagName, "H",
		viper.GetString(hashAlgorithmKey),
		fmt.Sprintf("digest algorithm %v", adapter.SupportedAlgorithms()))
	bindFlagToConfig(cmd.Flags().Lookup(hashAlgorithmFlagName), hashAlgorithmKey)

	cmd.Flags().IntVarP(&scanWorkersFlag, workersFlagName, "w",
		viper.GetInt(workersKey), "digest worker pool size (0 = number of CPUs)")
	bindFlagToConfig(cmd.Flags().Lookup(workersFlagName), workersKey)

	cmd.Flags().IntVarP(&scanChunkSizeFlag, chunkSizeFlagName, "c",
		viper.GetInt(chunkSizeKey), "bytes per read chunk")
	bindFlagToConfig(cmd.Flags().Lookup(chunkSizeFlagName), chunkSizeKey)

	cmd.Flags().IntVarP(&scanSaveEveryFlag, saveEveryFlagName, "s",
		viper.GetInt(saveEveryKey), "commit the ledger after this many mutations")
	bindFlagToConfig(cmd.Flags().Lookup(saveEveryFlagName), saveEveryKey)

	cmd.Flags().BoolVarP(&scanNoCheckFlag, noCheckFlagName, "n",
		viper.GetBool(noCheckKey), "skip the verification pass, only discover new files")
	bindFlagToConfig(cmd.Flags().Lookup(noCheckFlagName), noCheckKey)
}

func runScan(cmd *cobra.Command, root string) error {
	runID := uuid.NewString()
	configureLogger("", viper.GetBool(logVerboseKey), runID)
	slog.Info("scan starting", "root", root)

	digester, err := adapter.NewDigester(viper.GetString(hashAlgorithmKey), viper.GetInt(chunkSizeKey))
	if err != nil {
		return err
	}

	dbPath := ledgerPath(root)

	ledger, err := adapter.OpenLedger(dbPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	defer func() {
		if closeErr := ledger.Close(); closeErr != nil {
			slog.Error("failed to close ledger", "error", closeErr)
		}
	}()

	scanFS, err := adapter.NewLocalScanFS(root, dbPath, viper.GetString(logFilenameKey))
	if err != nil {
		return fmt.Errorf("resolve scan root: %w", err)
	}

	reporter := controller.NewConsoleReporter(cmd.OutOrStdout(), dbPath, scanFS.Root(), controller.IsTTY(os.Stdout))

	reconciler := domain.NewReconciler(domain.Config{
		Ledger:    ledger,
		FS:        scanFS,
		Digester:  digester,
		Reporter:  reporter,
		Workers:   viper.GetInt(workersKey),
		SaveEvery: viper.GetInt(saveEveryKey),
		Check:     !viper.GetBool(noCheckKey),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := reconciler.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Uncommitted mutations are rolled back on close; the
			// ledger stays at its last checkpoint.
			cmd.Println("Interrupted; ledger left at its last checkpoint.")
			slog.Warn("scan interrupted")

			return nil
		}

		return err
	}

	reporter.Summary(stats)

	if stats.CorruptionFound() {
		return domain.ErrBitRotFound
	}

	return nil
}
