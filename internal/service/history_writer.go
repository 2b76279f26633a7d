package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
	"github.com/thirdjal/A10-cli-deploy/internal/repository"
)

// HistoryWriter 异步批量写入设备历史，worker 不会因为数据库变慢而阻塞
type HistoryWriter struct {
	repo          repository.HistoryRepoIface
	ch            chan domain.DeviceHistory
	stop          chan struct{}
	flushInterval time.Duration
	batchSize     int
	wg            sync.WaitGroup
	once          sync.Once
	dropped       atomic.Int64
	log           logrus.FieldLogger
}

func NewHistoryWriter(repo repository.HistoryRepoIface, flush time.Duration, batchSize int, log logrus.FieldLogger) *HistoryWriter {
	if flush <= 0 {
		flush = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	hw := &HistoryWriter{repo: repo, ch: make(chan domain.DeviceHistory, batchSize*4), stop: make(chan struct{}), flushInterval: flush, batchSize: batchSize, log: log}
	hw.wg.Add(1)
	go hw.loop()
	return hw
}

func (w *HistoryWriter) loop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()
	batch := make([]domain.DeviceHistory, 0, w.batchSize)
	flush := func() {
		for i := range batch {
			h := batch[i]
			if err := w.repo.InsertDevice(&h); err != nil {
				w.log.WithError(err).WithField("host", h.Host).Warn("history insert failed")
			}
		}
		batch = batch[:0]
	}
	for {
		select {
		case h := <-w.ch:
			batch = append(batch, h)
			if len(batch) >= w.batchSize {
				flush()
			}
		case <-ticker.C:
			if len(batch) > 0 {
				flush()
			}
		case <-w.stop:
			// 取完已入队的记录再退出
			for {
				select {
				case h := <-w.ch:
					batch = append(batch, h)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Write 非阻塞；缓冲满时丢弃并计数
func (w *HistoryWriter) Write(h domain.DeviceHistory) {
	select {
	case w.ch <- h:
	default:
		w.dropped.Add(1)
	}
}

// Dropped 因缓冲满被丢弃的记录数
func (w *HistoryWriter) Dropped() int64 { return w.dropped.Load() }

// Close 写完剩余记录后返回，可重复调用。Close 之后不应再 Write。
func (w *HistoryWriter) Close() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}
