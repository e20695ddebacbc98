// Package scheduler 提供定时任务调度功能，使用 gocron/v2 库.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/yeisme/docvault/pkg/log"
)

// JobStatus 表示任务的状态类型.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 任务已调度
	StatusRunning   JobStatus = "running"   // 任务正在运行
	StatusError     JobStatus = "error"     // 上次执行出错
)

// JobInfo 表示定时任务的信息，用于可视化和监控.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Scheduler 是定时任务调度器的实现.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job // 以任务名称为键
	jobInfos  map[string]*JobInfo   // 以任务名称为键
	mu        sync.RWMutex
	logger    *zerolog.Logger
}

// NewScheduler 创建一个新的 Scheduler 实例，同一任务不会并发执行.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithGlobalJobOptions(gocron.WithSingletonMode(gocron.LimitModeReschedule)))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		jobInfos:  make(map[string]*JobInfo),
		logger:    log.Logger(),
	}, nil
}

// AddCron 添加一个基于 cron 表达式的定时任务，job 返回的错误记录在任务信息中.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, job func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	wrapped := func(ctx context.Context) {
		s.markRunning(name)

		var err error

		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job: %v", r)
				s.logger.Error().Str("job", name).Interface("panic", r).Msg("Job panicked")
			}

			s.markDone(name, err)
		}()

		err = job(ctx)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrapped, ctx),
		gocron.WithName(name),
	)
	if err != nil {
		return err
	}

	now := time.Now()
	nextRun, _ := j.NextRun()

	s.jobs[name] = j
	s.jobInfos[name] = &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		NextRun:   nextRun,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("Added cron job")

	return nil
}

// RunNow 立即执行一次任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	return job.RunNow()
}

// GetJobInfoByName 通过名称获取任务信息副本.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.jobInfos[name]
	if !exists {
		return JobInfo{}, fmt.Errorf("job with name %s does not exist", name)
	}

	return s.snapshot(name, info), nil
}

// GetJobInfos 返回所有定时任务的信息，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobInfos))
	for name, info := range s.jobInfos {
		jobs = append(jobs, s.snapshot(name, info))
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	return jobs
}

// JobsWaitingInQueue 等待执行的任务数.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.scheduler.JobsWaitingInQueue()
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("Starting scheduler")
	s.scheduler.Start()
}

// Shutdown 停止调度器并等待正在执行的任务结束.
func (s *Scheduler) Shutdown() error {
	s.logger.Info().Msg("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// snapshot 复制任务信息并刷新下次执行时间，调用方持有读锁.
func (s *Scheduler) snapshot(name string, info *JobInfo) JobInfo {
	out := *info

	if job, ok := s.jobs[name]; ok {
		if next, err := job.NextRun(); err == nil {
			out.NextRun = next
		}
	}

	return out
}

func (s *Scheduler) markRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, ok := s.jobInfos[name]; ok {
		info.Status = StatusRunning
		info.LastRun = time.Now()
		info.UpdatedAt = info.LastRun
	}
}

func (s *Scheduler) markDone(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.jobInfos[name]
	if !ok {
		return
	}

	now := time.Now()
	info.UpdatedAt = now

	if err != nil {
		info.Status = StatusError
		info.Error = err.Error()
		s.logger.Error().Err(err).Str("job", name).Msg("Job failed")

		return
	}

	info.Status = StatusScheduled
	info.Error = ""
	info.LastSuccess = now
}
