package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/speech-coach/internal/app"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay [flags] <manifest.yaml>",
	Short: "Replay a manifest of recorded attempts",
	Long: `Replay recorded attempts from a YAML or JSON manifest through the pipeline.

Sessions run concurrently, attempts within a session run in order so the
learning state evolves as it would live. The report holds every attempt,
a summary per session and aggregate score statistics.

Manifest example:
  version: "1"
  description: evening class
  concurrency: 4
  timeout: 5m
  sessions:
    - id: learner-1
      attempts:
        - audio: recordings/l1-001.wav
          reference_text: 你好
          recognized_text: 你好

Examples:
  speech-coach replay class.yaml
  speech-coach replay -o json --output-file report.json class.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	application, err := app.NewApp(newAppContext())
	if err != nil {
		return fmt.Errorf("%sFailed to initialize: %v%s", ColorRed, err, ColorReset)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := application.Replay(ctx, args[0])
	if report != nil {
		if outErr := application.OutputResults(report); outErr != nil {
			return outErr
		}
	}
	return err
}
