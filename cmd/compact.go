package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/washu-tag/context-gateway/internal/gateway"
	"github.com/washu-tag/context-gateway/internal/summarization"
)

// chatFile is the part of a chat request the offline commands read.
type chatFile struct {
	Model    string                  `json:"model"`
	Messages []summarization.Message `json:"messages"`
}

func newCompactCmd(flags *rootFlags) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "compact [file|-]",
		Short: "Run the summarization filter on a chat request and print the result",
		Long: `Reads a chat request (or a pipelines inlet envelope) from a file or stdin,
runs the same filter the gateway runs, and prints the resulting request.
Status events go to stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(cmd, flags, args, model)
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "summarizer model (default: summarization.summarizer.model, then the request's model)")
	return cmd
}

func newCountCmd(flags *rootFlags) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "count [file|-]",
		Short: "Print per-message and total token counts of a chat request",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, flags, args, full)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print whole message contents instead of previews")
	return cmd
}

func runCompact(cmd *cobra.Command, flags *rootFlags, args []string, model string) error {
	cfg, _, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if model != "" {
		cfg.Summarization.Summarizer.Model = model
	}

	raw, req, err := readChatRequest(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	filter, err := gateway.NewFilter(ctx, cfg.Summarization, nil, log.Logger)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	emit := func(_ context.Context, ev summarization.StatusEvent) {
		fmt.Fprintln(stderr, ev.Data.Description)
	}
	res := filter.Inlet(ctx, summarization.Request{Model: req.Model, Messages: req.Messages}, emit)

	out := raw
	if res.Changed {
		msgs, err := json.Marshal(res.Messages)
		if err != nil {
			return fmt.Errorf("encode messages: %w", err)
		}
		if out, err = sjson.SetRawBytes(raw, "messages", msgs); err != nil {
			return fmt.Errorf("rewrite messages: %w", err)
		}
	}

	fmt.Fprintf(stderr, "action=%s tokens=%d/%d messages=%d/%d\n",
		res.Action, res.OriginalTokens, res.FinalTokens, len(req.Messages), len(res.Messages))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
	return err
}

func runCount(cmd *cobra.Command, flags *rootFlags, args []string, full bool) error {
	cfg, _, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}

	_, req, err := readChatRequest(cmd, args)
	if err != nil {
		return err
	}

	sc := cfg.Summarization.WithDefaults()
	counter := summarization.NewTokenCounter(sc.Encoding, sc.TokenEstimateRatio)
	total := counter.CountAll(req.Messages)

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, summarization.FormatMessagesSummary(req.Messages, "Messages", counter, full))
	estimate := ""
	if counter.Estimated() {
		estimate = " (estimated)"
	}
	_, err = fmt.Fprintf(w, "Total: %d tokens%s, threshold %d\n", total, estimate, sc.TokenThreshold)
	return err
}

// readChatRequest reads the chat request named by args ("-" or none for
// stdin). A pipelines envelope is unwrapped to its body.
func readChatRequest(cmd *cobra.Command, args []string) ([]byte, chatFile, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, chatFile{}, fmt.Errorf("read chat request: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return nil, chatFile{}, fmt.Errorf("chat request is not valid JSON")
	}
	if inner := gjson.GetBytes(data, "body"); inner.IsObject() {
		data = []byte(inner.Raw)
	}

	var req chatFile
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, chatFile{}, fmt.Errorf("decode chat request: %w", err)
	}
	return data, req, nil
}
