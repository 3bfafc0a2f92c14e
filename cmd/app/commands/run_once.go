package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	emailUseCase "github.com/allisson/mailqueue/internal/email/usecase"
)

// RunDispatchOnce claims one batch of due requests and publishes it.
func RunDispatchOnce(
	ctx context.Context,
	dispatchUseCase emailUseCase.DispatchUseCase,
	logger *slog.Logger,
	w io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	report, err := dispatchUseCase.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("failed to dispatch: %w", err)
	}

	logger.Info("dispatch completed",
		slog.Int("claimed", report.Claimed),
		slog.Int("published", report.Published),
		slog.Int("failed", report.Failed),
		slog.Int("unresolved", report.Unresolved),
	)

	if format == FormatJSON {
		return writeJSON(w, report)
	}
	_, err = fmt.Fprintf(w, "Claimed %d request(s): %d published, %d failed, %d unresolved\n",
		report.Claimed, report.Published, report.Failed, report.Unresolved)
	return err
}

// RunReclaimOnce returns requests stuck in Processing to Pending.
func RunReclaimOnce(
	ctx context.Context,
	reclaimUseCase emailUseCase.ReclaimUseCase,
	logger *slog.Logger,
	w io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	ids, err := reclaimUseCase.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("failed to reclaim: %w", err)
	}

	logger.Info("reclaim completed", slog.Int("count", len(ids)))

	if format == FormatJSON {
		reclaimed := make([]string, 0, len(ids))
		for _, id := range ids {
			reclaimed = append(reclaimed, id.String())
		}
		return writeJSON(w, map[string]any{"count": len(ids), "request_ids": reclaimed})
	}

	if _, err := fmt.Fprintf(w, "Reclaimed %d request(s)\n", len(ids)); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := fmt.Fprintf(w, "  %s\n", id); err != nil {
			return err
		}
	}
	return nil
}
