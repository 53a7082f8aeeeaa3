package queue

import (
	"context"
	"fmt"
)

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch {
		case status == StatusPending:
			health.Pending += count
		case status == StatusMatched:
			health.Matched += count
		case status == StatusSucceeded:
			health.Succeeded += count
		case status.IsFailure():
			health.Failed += count
		case status.IsProcessing():
			health.Processing += count
		}
	}
	return health, nil
}

// ResetStuck rolls items stranded in a processing state back to pending, for
// recovery after a crash or kill mid-acquisition.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	statuses := make([]Status, 0, len(processingStatuses))
	for status := range processingStatuses {
		statuses = append(statuses, status)
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, 0, len(statuses)+1)
	args = append(args, StatusPending)
	for _, status := range statuses {
		args = append(args, status)
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE queue_items SET status = ? WHERE status IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}
