package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/chatstream/internal/devserver"
	"github.com/diogo/chatstream/internal/logging"
)

var (
	serveAddrFlag  string
	serveDelayFlag time.Duration
	serveFailFlag  int
	serveNoiseFlag bool
	serveReplyFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local chat backend for testing",
	Long: `Run a local backend that speaks the chat stream protocol on ` + devserver.ChatPath + `.

Every turn is answered with an echo of the last user message (or --reply),
streamed one word per JSON line.

Examples:
  chatstream serve
  chatstream serve --delay 200ms --noise
  chatstream serve --fail-status 500`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "127.0.0.1:8787", "Listen address")
	serveCmd.Flags().DurationVar(&serveDelayFlag, "delay", 50*time.Millisecond, "Pause between fragments")
	serveCmd.Flags().IntVar(&serveFailFlag, "fail-status", 0, "Fail every chat request with this HTTP status")
	serveCmd.Flags().BoolVar(&serveNoiseFlag, "noise", false, "Interleave blank lines and objects without a response field")
	serveCmd.Flags().StringVar(&serveReplyFlag, "reply", "", "Fixed reply instead of echoing the user")
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := devserver.Options{
		Delay:      serveDelayFlag,
		FailStatus: serveFailFlag,
		Noise:      serveNoiseFlag,
		Logger:     logging.L(),
	}
	if serveReplyFlag != "" {
		opts.Reply = devserver.Fixed(serveReplyFlag)
	}
	srv := devserver.New(opts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(serveAddrFlag)
	}()

	fmt.Fprintf(deps.Stderr, "Serving %s on http://%s (Ctrl+C to stop)\n", devserver.ChatPath, serveAddrFlag)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.L().Error("dev server shutdown failed", zap.Error(err))
		return err
	}
	return <-errCh
}
