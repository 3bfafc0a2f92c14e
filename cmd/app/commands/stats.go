package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/allisson/mailqueue/internal/email/domain"
	emailUseCase "github.com/allisson/mailqueue/internal/email/usecase"
)

// RunTopicStats prints request and result counts for a topic.
func RunTopicStats(
	ctx context.Context,
	statsUseCase emailUseCase.StatsUseCase,
	logger *slog.Logger,
	w io.Writer,
	topicID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	stats, err := statsUseCase.TopicStats(ctx, topicID)
	if err != nil {
		return fmt.Errorf("failed to get topic stats: %w", err)
	}
	logger.Debug("topic stats loaded", slog.String("topic_id", topicID))

	if format == FormatJSON {
		return writeJSON(w, stats)
	}

	r := stats.Requests
	if _, err := fmt.Fprintf(w,
		"Topic %s\nRequests: %d total, %d pending, %d processing, %d sent, %d failed\n",
		stats.TopicID, r.Total, r.Pending, r.Processing, r.Sent, r.Failed,
	); err != nil {
		return err
	}
	return writeResultCounts(w, stats.Results)
}

// RunWindowCounts prints terminal request counts and result counts for the
// last hours.
func RunWindowCounts(
	ctx context.Context,
	statsUseCase emailUseCase.StatsUseCase,
	logger *slog.Logger,
	w io.Writer,
	hours int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	counts, err := statsUseCase.WindowCounts(ctx, hours)
	if err != nil {
		return fmt.Errorf("failed to get window counts: %w", err)
	}
	logger.Debug("window counts loaded", slog.Int("hours", hours))

	if format == FormatJSON {
		return writeJSON(w, counts)
	}

	if _, err := fmt.Fprintf(w, "Last %d hour(s): %d sent, %d failed\n",
		counts.Hours, counts.Sent, counts.Failed); err != nil {
		return err
	}
	return writeResultCounts(w, counts.Results)
}

func writeResultCounts(w io.Writer, results map[domain.OutcomeKind]int64) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "Results: none")
		return err
	}

	kinds := make([]string, 0, len(results))
	for kind := range results {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	if _, err := fmt.Fprintln(w, "Results:"); err != nil {
		return err
	}
	for _, kind := range kinds {
		if _, err := fmt.Fprintf(w, "  %s: %d\n", kind, results[domain.OutcomeKind(kind)]); err != nil {
			return err
		}
	}
	return nil
}
