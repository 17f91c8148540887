package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/linkbridge/internal/output"
	versionpkg "github.com/mrz1836/linkbridge/internal/version"
)

// versionCheckTimeout bounds the release lookup.
const versionCheckTimeout = 15 * time.Second

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	versionCheck bool

	// newVersionClient is replaced in tests.
	newVersionClient = func() *versionpkg.Client { return versionpkg.NewClient() }
)

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show the linkbridge version, the SDK descriptor sent to link frames and,
with --check, whether a newer release is available.`,
	Example: `  linkbridge version
  linkbridge version --check -o json`,
	GroupID: groupConfig,
	Args:    cobra.NoArgs,
	RunE:    runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
}

// versionResult is the JSON shape of the version command.
type versionResult struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Date     string `json:"date"`
	Platform string `json:"platform"`
	Latest   string `json:"latest,omitempty"`
	IsNewer  bool   `json:"isNewer,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	specs := versionpkg.SDKSpecs()
	result := versionResult{
		Version:  specs.Version,
		Commit:   versionpkg.Commit,
		Date:     versionpkg.Date,
		Platform: specs.Platform,
	}

	if versionCheck {
		ctx, cancel := context.WithTimeout(commandContext(cmd), versionCheckTimeout)
		defer cancel()

		info, err := newVersionClient().Check(ctx)
		if err != nil {
			return fmt.Errorf("failed to check for updates: %w", err)
		}
		result.Latest = info.Latest
		result.IsNewer = info.IsNewer
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return writeJSON(w, result)
	}

	out(w, "linkbridge %s (%s, %s) platform %s\n", result.Version, result.Commit, result.Date, result.Platform)
	if !versionCheck {
		return nil
	}
	if result.IsNewer {
		output.Warnf(cmd.ErrOrStderr(), "A newer version is available: %s -> %s", result.Version, result.Latest)
	} else {
		output.Successf(w, "You are on the latest version")
	}
	return nil
}
