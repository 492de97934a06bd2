package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/feed-normalizer/app/database"
	"github.com/lysyi3m/feed-normalizer/app/feed"
	"github.com/lysyi3m/feed-normalizer/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var (
	ErrQueueFull      = errors.New("task queue is full")
	ErrAlreadyQueued  = errors.New("source is already queued")
	ErrSourceNotFound = errors.New("source not found")
)

const (
	queueSize     = 300
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

type Scheduler struct {
	feedRepo    database.FeedRepository
	configCache *sources.ConfigCache
	fetcher     Fetcher
	normalizer  Normalizer
	filterer    *sources.Filterer
	extractor   *feed.ContentExtractor
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	// sources with a task queued, running or waiting for a retry
	pending   map[string]struct{}
	pendingMu sync.Mutex
}

func NewScheduler(configCache *sources.ConfigCache, feedRepo database.FeedRepository,
	fetcher Fetcher, normalizer Normalizer, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		feedRepo:    feedRepo,
		configCache: configCache,
		fetcher:     fetcher,
		normalizer:  normalizer,
		filterer:    sources.NewFilterer(),
		extractor:   feed.NewContentExtractor(),
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
		pending:     make(map[string]struct{}),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

// Stop cancels running tasks and waits for the workers to exit. The queue is
// left open so pending retries never send on a closed channel.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// EnqueueSource queues a normalization of one configured source regardless
// of its next fetch time.
func (s *Scheduler) EnqueueSource(sourceName string) error {
	sourceConfig, err := s.configCache.GetConfig(sourceName)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, sourceName)
	}

	return s.enqueueSource(sourceConfig)
}

func (s *Scheduler) enqueueSource(sourceConfig *sources.Config) error {
	if !s.markPending(sourceConfig.Name) {
		return ErrAlreadyQueued
	}

	task := NewNormalizeSourceTask(sourceConfig.Name, sourceConfig, s.fetcher, s.normalizer, s.filterer, s.extractor, s.feedRepo)
	if err := s.EnqueueTask(task); err != nil {
		s.releasePending(sourceConfig.Name)
		return err
	}

	return nil
}

func (s *Scheduler) enqueueTasks() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	slog.Debug("Processing enabled source configurations for task scheduling", "count", len(sourceConfigs))

	now := time.Now().UTC()

	for _, sourceConfig := range sourceConfigs {
		nextFetch, err := s.feedRepo.GetNextFetchAt(sourceConfig.Name)
		if err != nil {
			slog.Warn("Failed to get next fetch time from database, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}

		if nextFetch != nil && nextFetch.After(now) {
			slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name, "next_fetch_at", nextFetch)
			continue
		}

		if err := s.enqueueSource(sourceConfig); err != nil {
			if errors.Is(err, ErrAlreadyQueued) {
				slog.Debug("Source already queued", "source", sourceConfig.Name)
				continue
			}
			slog.Warn("Failed to enqueue NormalizeSourceTask", "source", sourceConfig.Name, "error", err)
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

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.releasePending(task.GetSourceName())
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		s.releasePending(task.GetSourceName())
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	go func() {
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			s.releasePending(task.GetSourceName())
		case <-time.After(delay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				s.releasePending(task.GetSourceName())
			}
		}
	}()
}

// retryDelay doubles from one second per attempt, capped at maxRetryDelay.
func retryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func (s *Scheduler) markPending(sourceName string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if _, ok := s.pending[sourceName]; ok {
		return false
	}
	s.pending[sourceName] = struct{}{}
	return true
}

func (s *Scheduler) releasePending(sourceName string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	delete(s.pending, sourceName)
}
