package utils

import "sync"

// CircularBuffer 固定容量的环形缓冲区, 满了之后覆盖最旧的元素
type CircularBuffer[T any] struct {
	mu    sync.Mutex
	data  []T
	head  int
	count int
}

func NewCircularBuffer[T any](size int) *CircularBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &CircularBuffer[T]{data: make([]T, size)}
}

func (cb *CircularBuffer[T]) Add(item T) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.data[cb.head] = item
	cb.head = (cb.head + 1) % len(cb.data)
	if cb.count < len(cb.data) {
		cb.count++
	}
}

// GetAll 按写入顺序返回所有元素, 最旧的在前
func (cb *CircularBuffer[T]) GetAll() []T {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	result := make([]T, 0, cb.count)
	start := (cb.head - cb.count + len(cb.data)) % len(cb.data)
	for i := 0; i < cb.count; i++ {
		result = append(result, cb.data[(start+i)%len(cb.data)])
	}
	return result
}

func (cb *CircularBuffer[T]) Len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.count
}
