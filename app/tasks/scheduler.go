package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/robfig/cron/v3"

	"feedsink/app/cfg"
	"feedsink/app/database"
	"feedsink/app/feed"
	"feedsink/app/importer"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// tickSpec drives the pipeline clock: interval emission, queue scans, and
// poll scheduling all run on the same 5-minute cadence the interval rounding
// contract assumes.
const tickSpec = "*/5 * * * *"

type Scheduler struct {
	subscriptionRepo database.SubscriptionRepository
	queueRepo        database.QueueRepository
	creator          *importer.Creator
	orchestrator     *importer.Orchestrator
	httpClient       *http.Client
	parser           *gofeed.Parser
	userAgent        string
	fetchTimeout     time.Duration
	workerCount      int
	cron             *cron.Cron
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(subscriptionRepo database.SubscriptionRepository, queueRepo database.QueueRepository,
	creator *importer.Creator, orchestrator *importer.Orchestrator, httpClient *http.Client) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Scheduler{
		subscriptionRepo: subscriptionRepo,
		queueRepo:        queueRepo,
		creator:          creator,
		orchestrator:     orchestrator,
		httpClient:       httpClient,
		parser:           gofeed.NewParser(),
		userAgent:        c.UserAgent,
		fetchTimeout:     time.Duration(c.FetchTimeout) * time.Second,
		workerCount:      c.WorkerCount,
		cron:             cron.New(cron.WithLocation(time.UTC)),
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() error {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if _, err := s.cron.AddFunc(tickSpec, s.enqueueTick); err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}

	s.cron.Start()

	// Catch up on queued imports left over from a previous run.
	if err := s.EnqueueTask(NewProcessQueueTask(s.queueRepo, s.orchestrator)); err != nil {
		slog.Warn("Failed to enqueue startup queue scan", "error", err)
	}

	return nil
}

func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	// The queue stays open: a retry goroutine sleeping through shutdown may
	// still re-enqueue, and a send on a closed channel would panic.
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// TriggerImport is the document-change trigger: called by the creator when a
// feed item row was created, it starts an import run without waiting for the
// next queue scan.
func (s *Scheduler) TriggerImport(itemID string) {
	task := NewImportItemTask(itemID, s.orchestrator)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue import task", "item_id", itemID, "error", err)
	}
}

func (s *Scheduler) enqueueTick() {
	if err := s.EnqueueTask(NewEmitIntervalsTask(s.subscriptionRepo, s.creator)); err != nil {
		slog.Warn("Failed to enqueue EmitIntervalsTask", "error", err)
	}

	if err := s.EnqueueTask(NewProcessQueueTask(s.queueRepo, s.orchestrator)); err != nil {
		slog.Warn("Failed to enqueue ProcessQueueTask", "error", err)
	}

	s.enqueuePolls()
}

func (s *Scheduler) enqueuePolls() {
	now := time.Now().UTC()

	for _, subType := range []feed.SubscriptionType{feed.SubscriptionRSS, feed.SubscriptionYouTube} {
		subs, err := s.subscriptionRepo.ListActiveByType(subType)
		if err != nil {
			slog.Warn("Failed to list subscriptions for polling", "type", subType, "error", err)
			continue
		}

		for _, sub := range subs {
			if !sub.Schedule.DueAt(now) {
				slog.Debug("Subscription not due for polling", "subscription", sub.ID)
				continue
			}

			task := NewPollFeedTask(sub, s.httpClient, s.parser, s.creator, s.userAgent, s.fetchTimeout)
			if err := s.EnqueueTask(task); err != nil {
				slog.Warn("Failed to enqueue PollFeedTask", "subscription", sub.ID, "error", err)
			}
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		}
	}
}
