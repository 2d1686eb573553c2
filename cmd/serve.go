package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/speech-coach/internal/api"
	"github.com/RyanBlaney/speech-coach/internal/app"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

var serveListen string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API that assesses uploaded recordings and tracks learner
sessions.

Routes:
  POST   /api/v1/assess               multipart upload (audio, reference_text,
                                      recognized_text, attempt_count,
                                      session_id, format)
  GET    /api/v1/sessions/:id/summary session summary
  POST   /api/v1/sessions/:id/reset   clear session statistics
  DELETE /api/v1/sessions/:id         forget a session
  GET    /healthz                     health and classifier model status

Examples:
  # Listen on the configured address
  speech-coach serve

  # Override the address
  speech-coach serve --listen 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"listen address (default from server.listen)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := app.NewApp(newAppContext())
	if err != nil {
		return fmt.Errorf("%sFailed to initialize: %v%s", ColorRed, err, ColorReset)
	}

	config := application.Config()
	logger := application.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Emotion.Warmup {
		application.Pipeline().Warmup(ctx)
	}

	server := api.NewServer(application.Pipeline(), config.Server, logger)

	logger.Info("Starting speech coach API", logging.Fields{
		"listen":       config.Server.Listen,
		"mode":         config.Server.Mode,
		"model_status": string(application.Pipeline().ModelStatus()),
	})

	return server.Run(ctx)
}
