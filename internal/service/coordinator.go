package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
	"github.com/thirdjal/A10-cli-deploy/internal/metrics"
	"github.com/thirdjal/A10-cli-deploy/internal/queue"
	"github.com/thirdjal/A10-cli-deploy/pkg/importexport"
)

// RunRecorder 保存运行汇总
type RunRecorder interface {
	InsertRun(*domain.RunHistory) error
}

// Coordinator 编排一次完整运行：清理 -> 入队 -> 启动 worker -> 等待全部完成
type Coordinator struct {
	disp    *Dispatcher
	runs    RunRecorder
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	last    *Job
}

func NewCoordinator(disp *Dispatcher, log logrus.FieldLogger) *Coordinator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{disp: disp, log: log}
}

func (c *Coordinator) SetRunRecorder(r RunRecorder) { c.runs = r }

func (c *Coordinator) SetMetrics(m *metrics.Metrics) { c.metrics = m }

// LastJob 最近一次 Execute 的计数，没有运行过返回 nil
func (c *Coordinator) LastJob() *Job { return c.last }

// Execute 对 targets 下发 batch，返回总耗时。
// 只有结果目录清理失败会返回错误 (ErrSetup)，单台设备失败只记录日志。
// ctx 结束时剩余设备以失败结束，等 worker 全部退出后返回 ctx 的错误。
func (c *Coordinator) Execute(ctx context.Context, targets []domain.Target, batch domain.CommandBatch, cred domain.Credential) (time.Duration, error) {
	if err := c.disp.sink.Clear(); err != nil {
		return 0, err
	}
	job := &Job{RunID: uuid.NewString(), Batch: batch, Cred: cred}
	c.last = job
	log := c.log.WithField("run", job.RunID)

	log.Infof("We are going to send the following commands to %d devices.", len(targets))
	for _, cmd := range batch {
		log.Info(cmd)
	}
	if dup := importexport.DuplicateHosts(targets); len(dup) > 0 {
		log.Warnf("duplicate hosts will be deployed more than once: %v", dup)
	}

	q := queue.New[domain.Target]()
	for _, t := range targets {
		if err := q.Put(t); err != nil {
			return 0, fmt.Errorf("%w: enqueue %s: %v", domain.ErrSetup, t.Host, err)
		}
	}

	start := time.Now()
	pool := c.disp.Start(ctx, q, job)
	joinErr := q.Join(ctx)
	// ctx 结束后剩余设备的会话会立即失败，worker 很快取空队列退出
	if err := pool.Shutdown(); err != nil {
		log.WithError(err).Warn("worker pool shutdown")
	}
	elapsed := time.Since(start)

	log.Infof("Entire job took: %s", elapsed.Round(time.Millisecond))
	if job.Failed() > 0 {
		log.Warnf("%d of %d devices failed", job.Failed(), len(targets))
	}
	if c.metrics != nil {
		c.metrics.ObserveRun(len(targets), elapsed)
	}
	if c.runs != nil {
		rh := &domain.RunHistory{
			ID:         job.RunID,
			Targets:    len(targets),
			Failed:     job.Failed(),
			Commands:   len(batch),
			StartedAt:  start,
			FinishedAt: start.Add(elapsed),
			DurationMs: elapsed.Milliseconds(),
		}
		if err := c.runs.InsertRun(rh); err != nil {
			log.WithError(err).Warn("record run history")
		}
	}
	return elapsed, joinErr
}
