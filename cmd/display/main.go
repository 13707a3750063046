package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bshs-site-api/pkg/logging"
	"bshs-site-api/pkg/page"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	proxyURL         string
	weatherInterval  time.Duration
	reminderInterval time.Duration
	hourSlots        int
	verbose          bool
)

var rootCmd = &cobra.Command{
	Use:   "display",
	Short: "Terminal rendition of the school site's weather card and widgets",
	Long: `display polls the site's weather proxy and renders the weather card, reminder banner,
weather details modal and chatbot panel to the terminal.

Keys (followed by Enter):
  m  toggle the weather details modal
  c  toggle the chatbot panel
  b  toggle the reminder banner
  r  refresh the weather now
  q  quit`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New("production", verbose)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.Flags().StringVar(&proxyURL, "proxy-url", "http://localhost:8080/api/weather", "weather proxy endpoint")
	rootCmd.Flags().DurationVar(&weatherInterval, "weather-interval", 10*time.Minute, "weather refresh interval")
	rootCmd.Flags().DurationVar(&reminderInterval, "reminder-interval", 30*time.Second, "reminder banner rotation interval")
	rootCmd.Flags().IntVar(&hourSlots, "hours", 6, "number of upcoming hours shown in the details modal")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func run(ctx context.Context, in io.Reader, out io.Writer, logger *zap.Logger) error {
	cfg := page.DefaultControllerConfig()
	cfg.WeatherInterval = weatherInterval
	cfg.ReminderInterval = reminderInterval
	cfg.HourSlots = hourSlots

	controller := page.NewController(page.NewProxyClient(proxyURL), nil, logger, cfg)
	detach := page.NewTerminalView(out).Attach(controller.Store)
	defer detach()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := controller.Start(ctx); err != nil {
		return err
	}
	defer controller.Stop()

	go func() {
		handleInput(ctx, in, controller)
		cancel()
	}()

	<-ctx.Done()
	return nil
}

// handleInput applies key commands until q, EOF or cancellation.
func handleInput(ctx context.Context, in io.Reader, controller *page.Controller) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "m":
			controller.WeatherModal.Toggle()
		case "c":
			controller.Chatbot.Toggle()
		case "b":
			controller.ReminderBanner.Toggle()
		case "r":
			_ = controller.Display.Refresh(ctx)
		case "q":
			return
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
