// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/arxiv-digest/internal/digest"
	"github.com/pdiddy/arxiv-digest/internal/history"
	"github.com/pdiddy/arxiv-digest/internal/pipeline"
	"github.com/pdiddy/arxiv-digest/internal/secrets"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build today's digest",
	Long: `Run fetches (or reuses today's cached) listing for the configured topic,
removes duplicates, keeps papers inside the look-back window and the chosen
categories, and scores them against your interest statement. Papers scoring
at or above the threshold are written as an HTML digest, printed as a table,
and optionally mailed through SendGrid.

Without an interest statement the filtered listing is written unscored.`,
	RunE: runRun,
}

func init() {
	addSelectionFlags(runCmd)
	runCmd.Flags().StringSlice("category", nil, `category to keep (repeatable), e.g. --category "Machine Learning"`)
	runCmd.Flags().Bool("no-category-filter", false, "ignore configured categories")
	runCmd.Flags().String("interest", "", "interest statement sent to the judge")
	runCmd.Flags().Int("threshold", 0, "minimum score kept in the digest (inclusive)")
	runCmd.Flags().Int("limit", 0, "score at most this many papers")
	runCmd.Flags().String("out", "digest.html", "path of the HTML digest")
	runCmd.Flags().Bool("mail", false, "mail the digest through SendGrid")
	runCmd.Flags().Bool("skip-delivered", false, "leave out papers an earlier run already delivered")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	outPath, _ := cmd.Flags().GetString("out")

	runner, err := newRunner(cfg, loadedSecrets, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var store *history.Store
	if cfg.History.Enabled {
		if store, err = history.Open(cfg.DataDir); err != nil {
			// A missing history only disables skipping and recording.
			logger.Warn("could not open run history", zap.Error(err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	started := time.Now()
	res, err := runner.Run(ctx, pipeline.OptionsFromConfig(cfg))
	if err != nil {
		var nre *types.NoResultsError
		if errors.As(err, &nre) {
			fmt.Fprintf(os.Stderr, "No papers for %s: %v\n", cfg.Topic, err)
		}
		return err
	}

	if res.Score.HasFailures() {
		fmt.Fprintf(os.Stderr, "warning: %d of %d judge batches failed; their papers are missing from the digest\n",
			len(res.Score.Failed), res.Score.Batches)
	}

	if store != nil && cfg.History.SkipDelivered {
		fresh, err := skipDelivered(ctx, os.Stderr, store, res.Papers)
		if err != nil {
			return err
		}
		res.Papers = fresh
	}

	body, err := digest.RenderHTML(res.Papers)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing digest: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes, %d papers)\n", outPath, len(body), len(res.Papers))

	if err := digest.WriteTable(os.Stdout, res.Papers); err != nil {
		return err
	}

	mailed := false
	if cfg.Mail.Enabled {
		msg := digestMessage(cfg, loadedSecrets, body, started)
		mailed, err = mailDigest(ctx, os.Stderr, newMailer(cfg, loadedSecrets, logger), msg)
		if err != nil {
			return err
		}
	}

	if store != nil {
		if err := recordRun(ctx, store, cfg, res, started, mailed); err != nil {
			// The digest is already written; a history failure is reported only.
			logger.Warn("could not record run history", zap.Error(err))
		}
	}
	return nil
}

// skipDelivered drops papers that an earlier run already delivered. It
// fails with a *types.NoResultsError when nothing new is left.
func skipDelivered(ctx context.Context, w io.Writer, store *history.Store, set []types.Paper) ([]types.Paper, error) {
	fresh, err := store.Undelivered(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("checking earlier deliveries: %w", err)
	}
	if dropped := len(set) - len(fresh); dropped > 0 {
		fmt.Fprintf(w, "skipping %d paper(s) delivered by an earlier run\n", dropped)
	}
	if len(fresh) == 0 {
		return nil, &types.NoResultsError{Stage: "history", Detail: "every paper was delivered by an earlier run"}
	}
	return fresh, nil
}

// newMailer returns the SendGrid mailer, or nil when no API key is
// configured.
func newMailer(cfg types.Config, s secrets.Secrets, log *zap.Logger) digest.Mailer {
	key := cfg.Mail.APIKey
	if key == "" {
		key = s.Get(secrets.SendGridAPIKey)
	}
	if key == "" {
		return nil
	}
	return &digest.SendGridMailer{APIKey: key, Log: log}
}

// digestMessage addresses body from config, falling back to the
// from-email and to-email secrets.
func digestMessage(cfg types.Config, s secrets.Secrets, body string, at time.Time) digest.Message {
	from, to := cfg.Mail.From, cfg.Mail.To
	if from == "" {
		from = s.Get("from-email")
	}
	if to == "" {
		to = s.Get("to-email")
	}
	return digest.Message{From: from, To: to, Subject: digest.Subject(at), HTML: body}
}

// mailDigest sends msg through m and reports whether a mail was sent. A nil
// mailer skips delivery with a notice on w.
func mailDigest(ctx context.Context, w io.Writer, m digest.Mailer, msg digest.Message) (bool, error) {
	if m == nil {
		fmt.Fprintln(w, "No SendGrid API key, skipping e-mail")
		return false, nil
	}
	if err := m.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("mailing digest: %w", err)
	}
	fmt.Fprintf(w, "Digest mailed to %s\n", msg.To)
	return true, nil
}

func recordRun(ctx context.Context, store *history.Store, cfg types.Config, res pipeline.Result, started time.Time, mailed bool) error {
	candidates := res.Build.InCategories
	if cfg.Limit > 0 {
		candidates = min(candidates, cfg.Limit)
	}
	id, err := store.Record(ctx, history.Run{
		StartedAt:     started,
		Topic:         res.Topic.Name,
		Subject:       res.Topic.Code,
		Window:        string(res.Kind),
		Interest:      cfg.Interest,
		Threshold:     cfg.Threshold,
		Candidates:    candidates,
		Kept:          len(res.Papers),
		FailedBatches: len(res.Score.Failed),
		Mailed:        mailed,
	}, res.Papers)
	if err != nil {
		return err
	}
	logger.Info("run recorded", zap.String("run_id", id))
	return nil
}
