package cli

import (
	"fmt"

	"github.com/fmueller/whisperd/internal/config"
	"github.com/fmueller/whisperd/internal/whisper"
	"github.com/spf13/cobra"
)

func newSetupCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download and verify speech model assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.cfg.Engine != config.EngineCLI {
				return fmt.Errorf("setup only applies to the %s engine; got %s", config.EngineCLI, app.cfg.Engine)
			}

			modelDir, err := modelStorageDir(app.cfg.ModelDir)
			if err != nil {
				return err
			}

			resolved, err := whisper.ResolveAsset(app.cfg.Model, modelDir)
			if err != nil {
				return err
			}
			if resolved.IsCustomPath {
				return fmt.Errorf("setup expects a named model; got custom path %s", resolved.Path)
			}

			resolved, err = whisper.EnsureAsset(cmd.Context(), app.cfg.Model, whisper.AssetOptions{
				ModelDir:     modelDir,
				AutoDownload: true,
				Verify:       true,
				NoProgress:   app.noProgress,
				Logger:       app.log(),
				Fetch:        app.fetch,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model %s ready at %s\n", resolved.Name, resolved.Path)
			return nil
		},
	}
}
