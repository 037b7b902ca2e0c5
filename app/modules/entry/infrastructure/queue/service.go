package entryqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	entryservice "github.com/aceclub-io/ace-engine/app/modules/entry/application"
	verificationservice "github.com/aceclub-io/ace-engine/app/modules/verification/application"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
)

// sweepQueue is the dedicated River queue for the periodic sweeps. One worker
// is enough: the sweeps are serial by design and idempotent under overlap.
const sweepQueue = "sweep"

// Service runs the periodic auto-miss and expiry sweeps on River. River
// requires pgx, so the service owns its own pool next to the bun connection.
type Service struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService builds the River client with both sweep workers registered as
// periodic jobs at interval.
func NewService(
	ctx context.Context,
	dsn string,
	interval time.Duration,
	entries entryservice.Service,
	verifications verificationservice.Service,
	logger *slog.Logger,
) (*Service, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN for River: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool for River: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database for River: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewEntrySweepWorker(entries, logger))
	river.AddWorker(workers, NewVerificationSweepWorker(verifications, logger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			sweepQueue:         {MaxWorkers: 1},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(interval),
				func() (river.JobArgs, *river.InsertOpts) {
					return EntrySweepJob{}, &river.InsertOpts{Queue: sweepQueue}
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(interval),
				func() (river.JobArgs, *river.InsertOpts) {
					return VerificationSweepJob{}, &river.InsertOpts{Queue: sweepQueue}
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Service{client: client, pool: pool, logger: logger}, nil
}

// Start begins periodic sweep execution.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Sweep queue started")
	return nil
}

// Stop drains in-flight jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.client.Stop(ctx); err != nil {
		s.pool.Close()
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.pool.Close()
	s.logger.InfoContext(ctx, "Sweep queue stopped")
	return nil
}

// TriggerEntrySweep enqueues an immediate entry sweep, outside the periodic
// schedule.
func (s *Service) TriggerEntrySweep(ctx context.Context) error {
	res, err := s.client.Insert(ctx, EntrySweepJob{}, &river.InsertOpts{Queue: sweepQueue})
	if err != nil {
		return fmt.Errorf("failed to enqueue entry sweep: %w", err)
	}
	s.logger.InfoContext(ctx, "Entry sweep enqueued", attr.Int64("job_id", res.Job.ID))
	return nil
}

// TriggerVerificationSweep enqueues an immediate verification sweep.
func (s *Service) TriggerVerificationSweep(ctx context.Context) error {
	res, err := s.client.Insert(ctx, VerificationSweepJob{}, &river.InsertOpts{Queue: sweepQueue})
	if err != nil {
		return fmt.Errorf("failed to enqueue verification sweep: %w", err)
	}
	s.logger.InfoContext(ctx, "Verification sweep enqueued", attr.Int64("job_id", res.Job.ID))
	return nil
}
