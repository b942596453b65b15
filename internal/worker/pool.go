package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool() {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(i)
	}

	w.logger.Info("Worker pool spawned", slog.Int("worker_count", w.concurrency))
}

// workerLoop processes tasks until the dispatcher closes the task channel.
// Each event runs on its own deadline so shutdown never interrupts a write halfway.
func (w *Worker) workerLoop(workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)

	for t := range w.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), w.eventTimeout)
		err := w.processEvent(ctx, t.event)
		cancel()

		if err != nil {
			requeue := shouldRequeue(err)
			w.logger.Error("Event processing failed",
				slog.String("worker_name", workerName),
				slog.String("event_id", t.event.EventID),
				slog.String("type", t.event.Type),
				slog.Bool("requeue", requeue),
				slog.Any("error", err),
			)
			if nackErr := t.delivery.Nack(false, requeue); nackErr != nil {
				w.logger.Error("Failed to NACK event",
					slog.String("worker_name", workerName),
					slog.String("event_id", t.event.EventID),
					slog.Any("error", nackErr),
				)
			}
			continue
		}

		if ackErr := t.delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK event",
				slog.String("worker_name", workerName),
				slog.String("event_id", t.event.EventID),
				slog.Any("error", ackErr),
			)
		}
	}
}

// shouldRequeue requeues transient failures only
func shouldRequeue(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}
