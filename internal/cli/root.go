package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugsync/plugsync/internal/dispatch"
	"github.com/plugsync/plugsync/internal/enhance"
	"github.com/plugsync/plugsync/internal/uninstall"
)

// ErrUsage marks argument and flag errors so the binary can exit with a
// distinct status code.
var ErrUsage = errors.New("invalid arguments")

var (
	// Global flags
	jsonOutput bool

	// Mode selection flags, mutually exclusive
	flagFetchRemote   bool
	flagDelegateHost  bool
	flagCopyInstalled bool
	flagMirrorDev     bool
	flagAll           bool
	flagUninstall     bool

	// Modifier flags
	flagForce          bool
	flagLocalOnly      bool
	flagDryRun         bool
	flagNoBackup       bool
	flagCleanupOrphans bool
)

// rootCmd is the root command for plugsync.
var rootCmd = &cobra.Command{
	Use:     "plugsync",
	Version: "dev",
	Short:   "Installer and synchronizer for the plugin file tree",
	Long: `plugsync reconciles the installed plugin tree with one of several sources:
the remote manifest, the host tool's validator, the marketplace copy, or a
local development checkout.

Exactly one mode flag may be given; without one, --fetch-remote is assumed.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("%w: unexpected arguments: %s", ErrUsage, strings.Join(args, " "))
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSync,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// selectMode resolves the mode flags to a single sync mode. No mode flag
// means fetch-remote.
func selectMode() (dispatch.SyncMode, error) {
	var selected []dispatch.SyncMode
	for _, m := range []struct {
		set  bool
		mode dispatch.SyncMode
	}{
		{flagFetchRemote, dispatch.ModeFetchRemote},
		{flagDelegateHost, dispatch.ModeDelegateHost},
		{flagCopyInstalled, dispatch.ModeCopyInstalled},
		{flagMirrorDev, dispatch.ModeMirrorDev},
		{flagAll, dispatch.ModeAll},
		{flagUninstall, dispatch.ModeUninstall},
	} {
		if m.set {
			selected = append(selected, m.mode)
		}
	}

	switch len(selected) {
	case 0:
		return dispatch.ModeFetchRemote, nil
	case 1:
		return selected[0], nil
	default:
		names := make([]string, len(selected))
		for i, m := range selected {
			names[i] = "--" + m.String()
		}
		return "", fmt.Errorf("%w: %s are mutually exclusive", ErrUsage, strings.Join(names, ", "))
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	mode, err := selectMode()
	if err != nil {
		return err
	}

	d, err := newDispatcher()
	if err != nil {
		return err
	}

	opts := dispatch.Options{
		CreateBackup:   !flagNoBackup,
		DryRun:         flagDryRun,
		Force:          flagForce,
		LocalOnly:      flagLocalOnly,
		CleanupOrphans: flagCleanupOrphans,
	}

	result := d.Dispatch(context.Background(), mode, opts)

	if jsonOutput {
		if err := outputJSON(result); err != nil {
			return err
		}
	} else {
		renderResult(result)
	}

	if !result.Success {
		if result.Error != "" {
			return errors.New(result.Error)
		}
		return errors.New(result.Message)
	}
	return nil
}

// renderResult prints the human-readable report for one dispatch.
func renderResult(result *dispatch.SyncResult) {
	if result.Success {
		PrintSuccess(result.Message)
	} else {
		PrintError(result.Message)
	}

	if result.Mode == dispatch.ModeUninstall {
		renderUninstall(result)
		return
	}

	if vc := result.VersionComparison; vc != nil {
		switch vc.Status {
		case enhance.StatusUpgradeAvailable:
			PrintWarning(fmt.Sprintf("upgrade available: %s -> %s", vc.ProjectVersion, vc.SourceVersion))
		case enhance.StatusDowngradeRisk:
			PrintWarning(fmt.Sprintf("installed version %s is newer than source %s", vc.ProjectVersion, vc.SourceVersion))
		case enhance.StatusUpToDate:
			PrintInfo(fmt.Sprintf("version %s is up to date", vc.ProjectVersion))
		}
	}

	if oc := result.OrphanCleanup; oc != nil && oc.OrphansDetected > 0 {
		if oc.DryRun {
			PrintWarning(fmt.Sprintf("%s no longer listed by the source (re-run with --cleanup-orphans to delete)",
				PrintCount(oc.OrphansDetected, "file is", "files are")))
			PrintList(oc.Orphans, 1)
		} else {
			PrintInfo(fmt.Sprintf("deleted %s", PrintCount(oc.OrphansDeleted, "orphaned file", "orphaned files")))
		}
	}

	if sm := result.SettingsMerged; sm != nil && sm.Added > 0 {
		PrintInfo(fmt.Sprintf("merged %s into user settings", PrintCount(sm.Added, "new entry", "new entries")))
	}

	if v := result.Validation; v != nil && !v.Passed() {
		PrintSection("Validation Issues")
		PrintList(v.Issues, 1)
	}
}

func renderUninstall(result *dispatch.SyncResult) {
	if result.DryRun {
		PrintSection("Uninstall Preview")
		if len(result.FilesToRemove) == 0 {
			PrintEmptyState("nothing to remove")
			return
		}
		PrintList(result.FilesToRemove, 1)
		PrintLabelValue("Total size", fmt.Sprintf("%d bytes", result.TotalSizeBytes))
		return
	}

	if result.BackupPath != "" {
		PrintLabelValue("Backup", result.BackupPath)
	}
	if result.Details["status"] == uninstall.StatusPartial {
		PrintList(result.Errors, 1)
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	// Mode flags
	rootCmd.Flags().BoolVar(&flagFetchRemote, "fetch-remote", false, "Install from the remote manifest (default)")
	rootCmd.Flags().BoolVar(&flagDelegateHost, "delegate-host", false, "Hand the sync to the host tool's validator")
	rootCmd.Flags().BoolVar(&flagCopyInstalled, "copy-installed", false, "Copy non-destructively from the marketplace copy")
	rootCmd.Flags().BoolVar(&flagMirrorDev, "mirror-dev", false, "True-sync from the development source tree")
	rootCmd.Flags().BoolVar(&flagAll, "all", false, "Run every sync mode in order")
	rootCmd.Flags().BoolVar(&flagUninstall, "uninstall", false, "Remove the installed plugin tree")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the plugsync version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	// Modifier flags
	rootCmd.Flags().BoolVar(&flagForce, "force", false, "Confirm destructive operations")
	rootCmd.Flags().BoolVar(&flagLocalOnly, "local-only", false, "Leave host-wide shared locations alone during uninstall")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Preview without mutating")
	rootCmd.Flags().BoolVar(&flagNoBackup, "no-backup", false, "Skip the pre-sync snapshot")
	rootCmd.Flags().BoolVar(&flagCleanupOrphans, "cleanup-orphans", false, "Delete files the source no longer lists")
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
