package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bianoble/course-sync/internal/logging"
	"github.com/bianoble/course-sync/pkg/coursesync"
)

// Shutdown policy: sockets still draining after a publish get a grace
// window to close on their own, then a hard exit bounds the process.
const (
	closeGraceWindow = 30 * time.Second
	hardExitDelay    = 5 * time.Second
)

var publishCmd = &cobra.Command{
	Use:   "publish <manifest>",
	Short: "Publish a manifest tree to the platform",
	Long: `Walks the manifest tree rooted at the given manifest.json, creating or
updating every unit and lesson it describes, uploading configs, videos and
images, and converging each lesson's container file system.

A failed branch aborts the run; content already published by earlier
branches stays published.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := coursesync.New(coursesync.Options{ConfigPath: configPath})
		if err != nil {
			return err
		}

		result, runErr := client.Publish(cmd.Context(), args[0])

		// Close draining sockets regardless of outcome. The hard-exit
		// timer fires only if CloseAll itself wedges.
		if client.OpenSockets() > 0 {
			info("Waiting for %d socket(s) to close...", client.OpenSockets())
		}
		exitTimer := time.AfterFunc(closeGraceWindow+hardExitDelay, func() {
			logging.Error().Msg("sockets did not close in time, forcing exit")
			os.Exit(1)
		})
		client.Close(closeGraceWindow)
		exitTimer.Stop()

		if runErr != nil {
			return runErr
		}

		info("Publish complete: %d manifest(s), %d unit(s), %d lesson(s), %d request(s).",
			result.Manifests, result.Units, result.Lessons, result.Requests)
		if result.Assets != nil {
			detail("Assets: %d uploaded, %d reused.", len(result.Assets.Uploaded), len(result.Assets.Reused))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
