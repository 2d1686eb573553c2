package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/speech-coach/internal/app"
	"github.com/RyanBlaney/speech-coach/internal/assessment"
)

var (
	assessReference  string
	assessRecognized string
	assessAttempt    int
	assessFormat     string
	assessSession    string
)

// assessCmd represents the assess command
var assessCmd = &cobra.Command{
	Use:   "assess [flags] <audio-file>",
	Short: "Assess one recorded attempt",
	Long: `Assess a single recording against its reference text and print the score,
issues, inferred emotion, learning state and feedback text.

The audio format is taken from --format, else from the file extension, else
sniffed from the content. Supported formats are wav, mp3 and raw 16 kHz mono
16-bit PCM.

Examples:
  # Score a recording with its reference and recognized text
  speech-coach assess --reference 你好 --recognized 你好 hello.wav

  # Third try at the same sentence, JSON output
  speech-coach assess --reference 谢谢 --attempt 3 -o json thanks.mp3

  # Raw PCM from a recorder
  speech-coach assess --format pcm --reference 再见 take.raw`,
	Args: cobra.ExactArgs(1),
	RunE: runAssess,
}

func init() {
	rootCmd.AddCommand(assessCmd)

	assessCmd.Flags().StringVar(&assessReference, "reference", "",
		"reference text the learner was asked to read")
	assessCmd.Flags().StringVar(&assessRecognized, "recognized", "",
		"text recognized from the recording")
	assessCmd.Flags().IntVar(&assessAttempt, "attempt", 1,
		"attempt number for this sentence")
	assessCmd.Flags().StringVar(&assessFormat, "format", "",
		"audio format hint (wav, mp3, pcm)")
	assessCmd.Flags().StringVar(&assessSession, "session", "",
		"session id (default is a new session)")
}

func runAssess(cmd *cobra.Command, args []string) error {
	application, err := app.NewApp(newAppContext())
	if err != nil {
		return fmt.Errorf("%sFailed to initialize: %v%s", ColorRed, err, ColorReset)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := application.AssessFile(ctx, args[0], assessment.Request{
		Format:         assessFormat,
		ReferenceText:  assessReference,
		RecognizedText: assessRecognized,
		AttemptCount:   assessAttempt,
		SessionID:      assessSession,
	})
	if err != nil {
		return err
	}

	return application.OutputResults(app.Timestamped("assessment", result))
}
