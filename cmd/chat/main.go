package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/suPer8Hu/alira/internal/conversation"
	"github.com/suPer8Hu/alira/internal/logging"
	"github.com/suPer8Hu/alira/internal/ui"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "alira-chat",
	Short: "Talk to the ALIRA planning assistant",
	Long:  `Interactive terminal client for the relay. Replies are printed as they stream in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8080", "relay base URL")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().Duration("timeout", 2*time.Minute, "deadline for a single turn, 0 disables it")
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.PersistentFlags().StringP("prompt", "p", "", "send one message, print the reply and exit")
	_ = viper.BindPFlag("prompt", rootCmd.PersistentFlags().Lookup("prompt"))

	rootCmd.PersistentFlags().StringP("log-level", "l", "warn", "log level")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.SetEnvPrefix("ALIRA")
	viper.AutomaticEnv()
}

func runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	logger, err := logging.New(viper.GetString("log_level"), "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	r := ui.NewRenderer(out)
	agg := conversation.New(
		conversation.NewClient(viper.GetString("server")),
		conversation.WithOnChange(r.Update),
		conversation.WithLogger(logger),
	)
	timeout := viper.GetDuration("timeout")

	if prompt := viper.GetString("prompt"); prompt != "" {
		return turn(ctx, agg, prompt, timeout)
	}

	r.Greet(agg.Snapshot())
	r.Hint("type /quit to leave")

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "/quit" {
			return nil
		}
		if err := turn(ctx, agg, line, timeout); err != nil {
			// the transcript already holds the fallback reply
			logger.Debug("turn failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func turn(ctx context.Context, agg *conversation.Aggregator, text string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := agg.Submit(ctx, text)
	if errors.Is(err, conversation.ErrEmptyInput) {
		return nil
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
