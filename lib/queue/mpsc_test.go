package queue

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

// TestPushRecv tests basic push and receive
func TestPushRecv(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		if !q.Push(i) {
			t.Fatalf("Failed to push item %d", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if val != i {
				t.Errorf("Expected %d, got %d", i, val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", val)
	case <-time.After(10 * time.Millisecond):
	}
}

// TestConcurrentProducers verifies that no value is lost or duplicated with many producers
func TestConcurrentProducers(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	const numProducers = 10
	const itemsPerProducer = 1000
	const total = numProducers * itemsPerProducer

	received := make([]bool, total)
	lastPerProducer := make([]int, numProducers)
	for i := range lastPerProducer {
		lastPerProducer[i] = -1
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := 0; n < total; n++ {
			select {
			case val := <-q.Recv():
				if received[val] {
					t.Errorf("Duplicate item received: %d", val)
				}
				received[val] = true

				// values of one producer arrive in push order
				p, i := val/itemsPerProducer, val%itemsPerProducer
				if i <= lastPerProducer[p] {
					t.Errorf("Producer %d: item %d received after %d", p, i, lastPerProducer[p])
				}
				lastPerProducer[p] = i
			case <-time.After(2 * time.Second):
				t.Errorf("Timeout waiting for items, received %d of %d", n, total)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				if !q.Push(p*itemsPerProducer + i) {
					t.Errorf("Producer %d failed to push item %d", p, i)
				}
				if i%100 == 0 {
					runtime.Gosched()
				}
			}
		}(p)
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout waiting for consumer to finish")
	}
}

// TestCloseDrains verifies that values queued before Close are still delivered
func TestCloseDrains(t *testing.T) {
	q := NewMPSC[int]()

	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	q.Close()

	if q.Push(100) {
		t.Error("Should not be able to push after queue is closed")
	}

	for i := 0; i < 5; i++ {
		select {
		case val := <-q.Recv():
			if val != i {
				t.Errorf("Expected %d, got %d", i, val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d after close", i)
		}
	}

	select {
	case _, ok := <-q.Recv():
		if ok {
			t.Error("Channel should be closed but is still open")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Channel was not closed after draining")
	}
}

// TestAbortDiscards verifies that Abort closes the channel without delivering queued values
func TestAbortDiscards(t *testing.T) {
	q := NewMPSC[int]()

	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	q.Abort()
	q.Abort() // idempotent

	if !q.IsClosed() {
		t.Error("Queue should be closed after abort")
	}

	// at most the value that was already handed over can still arrive
	deadline := time.After(200 * time.Millisecond)
	for n := 0; ; n++ {
		select {
		case _, ok := <-q.Recv():
			if !ok {
				if n > 1 {
					t.Errorf("Expected at most one value after abort, got %d", n)
				}
				return
			}
		case <-deadline:
			t.Fatal("Channel was not closed after abort")
		}
	}
}

// TestSingleProducerOrder checks strict FIFO order with one producer
func TestSingleProducerOrder(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	const itemCount = 10000
	go func() {
		for i := 0; i < itemCount; i++ {
			q.Push(i)
		}
	}()

	for i := 0; i < itemCount; i++ {
		select {
		case val := <-q.Recv():
			if val != i {
				t.Fatalf("Expected %d, got %d", i, val)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Expected empty queue, Len is %d", q.Len())
	}
}

// BenchmarkSingleProducer benchmarks the queue with a single producer
func BenchmarkSingleProducer(b *testing.B) {
	q := NewMPSC[int]()
	defer q.Close()

	go func() {
		for range q.Recv() {
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(i)
	}
}

// BenchmarkMultiProducer benchmarks the queue with multiple producers
func BenchmarkMultiProducer(b *testing.B) {
	q := NewMPSC[int]()
	defer q.Close()

	go func() {
		for range q.Recv() {
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(i)
			i++
		}
	})
}
