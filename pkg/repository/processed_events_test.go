package repository

import (
	"sync"
	"testing"
	"time"
)

func TestMarkIfNew(t *testing.T) {
	r := NewProcessedEventsRepository(time.Minute)

	if !r.MarkIfNew("Ev1") {
		t.Error("first delivery should be new")
	}
	if r.MarkIfNew("Ev1") {
		t.Error("second delivery should be a duplicate")
	}
	if !r.MarkIfNew("Ev2") {
		t.Error("a different event should be new")
	}
}

func TestMarkIfNewEvictsAfterRetention(t *testing.T) {
	r := NewProcessedEventsRepository(time.Minute)

	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }

	r.MarkIfNew("Ev1")

	now = now.Add(2 * time.Minute)
	if !r.MarkIfNew("Ev1") {
		t.Error("entry should have been evicted after the retention window")
	}
	if len(r.seen) != 1 {
		t.Errorf("expected only the fresh entry, got %d", len(r.seen))
	}
}

func TestMarkIfNewConcurrent(t *testing.T) {
	r := NewProcessedEventsRepository(time.Minute)

	var wg sync.WaitGroup
	hits := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits <- r.MarkIfNew("Ev1")
		}()
	}
	wg.Wait()
	close(hits)

	fresh := 0
	for hit := range hits {
		if hit {
			fresh++
		}
	}
	if fresh != 1 {
		t.Errorf("exactly one delivery should win, got %d", fresh)
	}
}
