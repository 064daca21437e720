package commands

import (
	"github.com/spf13/cobra"
)

var predictionsLast int

var predictionsCmd = &cobra.Command{
	Use:   "predictions",
	Short: "List saved predictions",
	Long: `List the records in the prediction store, oldest first.

Examples:
  crybaby predictions
  crybaby predictions --last 5 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		repo, err := openRepository(cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		records, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}
		if predictionsLast > 0 && len(records) > predictionsLast {
			records = records[len(records)-predictionsLast:]
		}
		return outputResult(records)
	},
}

func init() {
	predictionsCmd.Flags().IntVar(&predictionsLast, "last", 0, "only show the most recent N records")
	rootCmd.AddCommand(predictionsCmd)
}
