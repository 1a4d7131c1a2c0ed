package conductor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := newMessageQueue()
	for i := 0; i < 5; i++ {
		q.Push(leftToRight{target: i})
	}
	for i := 0; i < 5; i++ {
		msg, ok := q.Pop(context.Background())
		require.True(t, ok)
		assert.Equal(t, i, msg.(leftToRight).target)
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := newMessageQueue()

	got := make(chan conductorMessage, 1)
	go func() {
		msg, ok := q.Pop(context.Background())
		if ok {
			got <- msg
		}
	}()

	time.Sleep(50 * time.Millisecond)
	q.Push(shutdownRequested{})

	select {
	case msg := <-got:
		assert.IsType(t, shutdownRequested{}, msg)
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestQueueDrainsAfterClose(t *testing.T) {
	q := newMessageQueue()
	q.Push(leftToRight{target: 1})
	q.Push(leftToRight{target: 2})
	q.Close()

	// Pushed after close: dropped.
	q.Push(leftToRight{target: 3})

	msg, ok := q.Pop(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, msg.(leftToRight).target)

	msg, ok = q.Pop(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2, msg.(leftToRight).target)

	_, ok = q.Pop(context.Background())
	assert.False(t, ok)
}

func TestQueueCloseIdempotent(t *testing.T) {
	q := newMessageQueue()
	q.Close()
	q.Close()
	_, ok := q.Pop(context.Background())
	assert.False(t, ok)
}

func TestQueuePopHonorsContext(t *testing.T) {
	q := newMessageQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := newMessageQueue()
	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(leftToRight{target: p})
			}
		}(p)
	}
	wg.Wait()

	counts := map[int]int{}
	for i := 0; i < producers*perProducer; i++ {
		msg, ok := q.Pop(context.Background())
		require.True(t, ok)
		counts[msg.(leftToRight).target]++
	}
	for p := 0; p < producers; p++ {
		assert.Equal(t, perProducer, counts[p])
	}
}
