package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/course-sync/pkg/coursesync"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Upload images from the configured image directory",
	Long: `Reconciles the configured image directory against the platform's file
listing. Images are content-addressed: a local file whose hash and format
already exist remotely is reused, everything else is uploaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := coursesync.New(coursesync.Options{ConfigPath: configPath})
		if err != nil {
			return err
		}

		result, err := client.UploadAssets(cmd.Context())
		if err != nil {
			return err
		}

		for _, name := range result.Uploaded {
			info("  uploaded  %s", name)
		}
		for _, name := range result.Reused {
			detail("  reused    %s", name)
		}
		info("")
		info("Assets complete: %d uploaded, %d reused.", len(result.Uploaded), len(result.Reused))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assetsCmd)
}
