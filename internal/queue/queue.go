// Package queue 提供带 join 语义的多生产者/多消费者工作队列。
//
// Put 不阻塞；Get 在队列为空时阻塞；每个被 Get 取出的元素处理完成后必须调用
// Done。Join 只有在所有 Put 进来的元素都被 Done 之后才返回。
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed 队列关闭后继续 Put
var ErrClosed = errors.New("queue closed")

type Queue[T any] struct {
	mu         sync.Mutex
	notEmpty   *sync.Cond
	items      []T
	unfinished int
	closed     bool
	// drained 在 unfinished 归零时关闭，unfinished 从 0 变为 1 时重建
	drained chan struct{}
}

func New[T any]() *Queue[T] {
	q := &Queue[T]{drained: make(chan struct{})}
	q.notEmpty = sync.NewCond(&q.mu)
	close(q.drained)
	return q
}

// Put 追加一个元素并唤醒一个等待中的 Get
func (q *Queue[T]) Put(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if q.unfinished == 0 {
		q.drained = make(chan struct{})
	}
	q.unfinished++
	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return nil
}

// Get 阻塞直到有元素可取。队列关闭且已取空时返回 ok=false。
func (q *Queue[T]) Get() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Done 标记一个已取出的元素处理完毕。调用次数超过 Put 次数会 panic。
func (q *Queue[T]) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unfinished <= 0 {
		panic("queue: Done called more times than Put")
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.drained)
	}
}

// Join 等待所有已 Put 的元素都被 Done，或 ctx 结束
func (q *Queue[T]) Join(ctx context.Context) error {
	q.mu.Lock()
	ch := q.drained
	q.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 拒绝后续 Put，并唤醒所有阻塞的 Get。剩余元素仍可被取出。
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
}

// Len 当前待取出的元素个数
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Unfinished 已 Put 但尚未 Done 的元素个数
func (q *Queue[T]) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}
