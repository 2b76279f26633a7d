package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
	"github.com/thirdjal/A10-cli-deploy/internal/metrics"
	"github.com/thirdjal/A10-cli-deploy/internal/queue"
)

// DefaultWorkers 默认并发数
const DefaultWorkers = 5

// SessionClient 抽象单设备会话，便于替换真实 aXAPI / Mock
type SessionClient interface {
	Run(ctx context.Context, t domain.Target, cred domain.Credential, batch domain.CommandBatch) domain.SessionResult
}

// ResultSink 结果目录
type ResultSink interface {
	Clear() error
	Write(name string, payload []byte) (string, error)
}

// Job 一次运行中所有 worker 共享的只读参数，外加结果计数
type Job struct {
	RunID string
	Batch domain.CommandBatch
	Cred  domain.Credential

	ok     atomic.Int64
	failed atomic.Int64
}

func (j *Job) OK() int     { return int(j.ok.Load()) }
func (j *Job) Failed() int { return int(j.failed.Load()) }

// Dispatcher 固定大小的 worker 池
type Dispatcher struct {
	client  SessionClient
	sink    ResultSink
	workers int
	hWriter *HistoryWriter
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewDispatcher(client SessionClient, sink ResultSink, workers int, log logrus.FieldLogger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{client: client, sink: sink, workers: workers, log: log}
}

// SetHistoryWriter 可选：记录每台设备的会话元数据
func (d *Dispatcher) SetHistoryWriter(w *HistoryWriter) { d.hWriter = w }

// SetMetrics 可选
func (d *Dispatcher) SetMetrics(m *metrics.Metrics) { d.metrics = m }

func (d *Dispatcher) Workers() int { return d.workers }

// Pool 一组已启动的 worker
type Pool struct {
	q *queue.Queue[domain.Target]
	g *errgroup.Group
}

// Start 启动恰好 workers 个 goroutine 从 q 取设备执行，直到 q 关闭且取空。
func (d *Dispatcher) Start(ctx context.Context, q *queue.Queue[domain.Target], job *Job) *Pool {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		id := i + 1
		g.Go(func() error { return d.worker(gctx, id, q, job) })
	}
	return &Pool{q: q, g: g}
}

// Shutdown 关闭队列并等待所有 worker 退出
func (p *Pool) Shutdown() error {
	p.q.Close()
	return p.g.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int, q *queue.Queue[domain.Target], job *Job) error {
	log := d.log.WithFields(logrus.Fields{"worker": id, "run": job.RunID})
	for {
		t, ok := q.Get()
		if !ok {
			return nil
		}
		d.handle(ctx, log, q, t, job)
	}
}

// handle 处理一台设备。Done 在任何路径上都会被调用，包括 panic。
func (d *Dispatcher) handle(ctx context.Context, log logrus.FieldLogger, q *queue.Queue[domain.Target], t domain.Target, job *Job) {
	defer q.Done()
	defer func() {
		if r := recover(); r != nil {
			job.failed.Add(1)
			log.WithField("host", t.Host).Errorf("worker recovered: %v", r)
		}
	}()
	log = log.WithField("host", t.Host)

	res := d.session(ctx, t, job)
	var outPath string
	if res.OK() {
		p, err := d.sink.Write(t.Host, res.Payload)
		if err != nil {
			res.Err = fmt.Errorf("write result: %w", err)
			res.FailedAt = domain.StateDone
		} else {
			outPath = p
			log.Infof("Saving results to %s (%s).", p, humanize.Bytes(uint64(len(res.Payload))))
		}
	}
	if res.OK() {
		job.ok.Add(1)
	} else {
		job.failed.Add(1)
		log.WithField("state", res.FailedAt.String()).WithError(res.Err).Error("device failed")
	}
	if d.metrics != nil {
		d.metrics.ObserveSession(res)
	}
	if d.hWriter != nil {
		d.hWriter.Write(domain.NewDeviceHistory(job.RunID, res, outPath))
	}
}

// session 调用客户端；客户端 panic 时转为失败结果
func (d *Dispatcher) session(ctx context.Context, t domain.Target, job *Job) (res domain.SessionResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = domain.SessionResult{
				Target:     t,
				Err:        fmt.Errorf("%w: %s: panic: %v", domain.ErrSession, t.Host, r),
				FailedAt:   domain.StateIdle,
				StartedAt:  start,
				FinishedAt: time.Now(),
			}
		}
	}()
	return d.client.Run(ctx, t, job.Cred, job.Batch)
}
