package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pantry-bot/internal/container"
	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/report"
)

// NewScanCmd создаёт команду сканирования снимка из файла.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Recognize groceries on a photo and reconcile them with the inventory",
		Long: `Scan sends the image to the classifier, keeps detections above the
confidence threshold and splits them into new and already known items.
Without --yes nothing is written.`,
		Example: `  pantrybot scan fridge.jpg
  pantrybot scan fridge.jpg --drop "paper towel" --yes
  pantrybot scan fridge.jpg --yes --accept-partial --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().StringSliceP("drop", "d", nil, "Remove a false positive from the new items (repeatable)")
	cmd.Flags().BoolP("yes", "y", false, "Write the new items to the inventory")
	cmd.Flags().Bool("accept-partial", false, "Accept a partially written commit instead of failing")
	cmd.Flags().Int("retries", 0, "Retry failed writes this many times")
	cmd.Flags().Float64("threshold", 0, "Override the confidence threshold")
	cmd.Flags().StringP("format", "f", report.FormatMarkdown, "Output format: markdown or json")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	drop, err := cmd.Flags().GetStringSlice("drop")
	if err != nil {
		return err
	}
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}
	acceptPartial, err := cmd.Flags().GetBool("accept-partial")
	if err != nil {
		return err
	}
	retries, err := cmd.Flags().GetInt("retries")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	out, err := report.NewWriter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.ConfidenceThreshold, _ = cmd.Flags().GetFloat64("threshold")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := cfg.ValidateClassifier(); err != nil {
		return err
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	c, err := container.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	sess, err := scanImage(ctx, c.ScanService, image, scanOptions{
		drop:          drop,
		commit:        yes,
		acceptPartial: acceptPartial,
		retries:       retries,
	})
	if sess.ID != "" {
		if werr := out.WriteSession(sess); werr != nil {
			return errors.Join(err, werr)
		}
	}
	return err
}

type scanOptions struct {
	drop          []string
	commit        bool
	acceptPartial bool
	retries       int
}

// scanner описывает операции сессии, которые нужны команде scan.
type scanner interface {
	NewSession() entity.ScanSession
	StartCapture(id string) (entity.ScanSession, error)
	ImageReady(ctx context.Context, id string, image []byte) (entity.ScanSession, error)
	RemoveFromNew(id, label string) (entity.ScanSession, error)
	Confirm(ctx context.Context, id string) (entity.ScanSession, error)
	RetryFailed(ctx context.Context, id string) (entity.ScanSession, error)
	AcceptPartial(id string) (entity.ScanSession, error)
	Cancel(id string) (entity.ScanSession, error)
	Release(id string) error
}

// scanImage проводит одну сессию от снимка до записи и возвращает её итоговое состояние.
func scanImage(ctx context.Context, svc scanner, image []byte, opts scanOptions) (entity.ScanSession, error) {
	sess := svc.NewSession()
	defer func() {
		// Незавершённая сессия отменяется, завершённая освобождается
		if _, err := svc.Cancel(sess.ID); err != nil {
			_ = svc.Release(sess.ID)
		}
	}()

	if _, err := svc.StartCapture(sess.ID); err != nil {
		return sess, err
	}

	snap, err := svc.ImageReady(ctx, sess.ID, image)
	if err != nil {
		if snap.ID == "" {
			snap = sess
		}
		return snap, fmt.Errorf("scan: %w", err)
	}

	for _, label := range opts.drop {
		if snap, err = svc.RemoveFromNew(sess.ID, label); err != nil {
			return snap, err
		}
	}

	if !opts.commit {
		return snap, nil
	}

	snap, err = svc.Confirm(ctx, sess.ID)
	for i := 0; i < opts.retries && isCommitError(err); i++ {
		snap, err = svc.RetryFailed(ctx, sess.ID)
	}
	if isCommitError(err) && opts.acceptPartial {
		return svc.AcceptPartial(sess.ID)
	}
	return snap, err
}

func isCommitError(err error) bool {
	var ce *entity.CommitError
	return errors.As(err, &ce)
}
