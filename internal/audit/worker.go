package audit

import (
	"context"
	"database/sql"
)

type txFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  txFn
	ch  chan error
}

// worker runs every write transaction on one goroutine.
type worker struct {
	db   *sql.DB
	jobs chan job
	done chan struct{}
}

func newWorker(db *sql.DB) *worker {
	w := &worker{
		db:   db,
		jobs: make(chan job, 64),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *worker) close() {
	close(w.jobs)
	<-w.done
}

func (w *worker) do(ctx context.Context, fn txFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch}

	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	// The worker still finishes a job whose caller gave up; the result
	// lands in the buffered channel and is dropped.
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		tx, err := w.db.BeginTx(j.ctx, nil)
		if err != nil {
			j.ch <- err
			continue
		}

		if err := j.fn(j.ctx, tx); err != nil {
			_ = tx.Rollback()
			j.ch <- err
			continue
		}

		j.ch <- tx.Commit()
	}
}
