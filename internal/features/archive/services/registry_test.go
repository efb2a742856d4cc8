package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestPageIDRegistry(t *testing.T) {
	r := NewPageIDRegistry()

	if err := r.Record(1, "2023-01.html"); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if err := r.Record(1, "2023-01.html"); err != nil {
		t.Errorf("Re-recording the same page should be a no-op, got %v", err)
	}

	err := r.Record(1, "2023-01_2.html")
	if !errors.Is(err, ErrRegistryConflict) {
		t.Errorf("Expected ErrRegistryConflict, got %v", err)
	}

	page, ok := r.Resolve(1)
	if !ok || page != "2023-01.html" {
		t.Errorf("Expected 2023-01.html, got %q (found=%v)", page, ok)
	}

	if _, ok := r.Resolve(2); ok {
		t.Error("Expected unknown id to be unresolved")
	}

	if link := r.Link(1); link != "2023-01.html#1" {
		t.Errorf("Expected link 2023-01.html#1, got %q", link)
	}
	if link := r.Link(2); link != "" {
		t.Errorf("Expected empty link for unresolved id, got %q", link)
	}

	if r.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", r.Len())
	}
}

func TestPageIDRegistryConcurrentWriters(t *testing.T) {
	r := NewPageIDRegistry()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				id := int64(w*1000 + i)
				if err := r.Record(id, fmt.Sprintf("page-%d.html", w)); err != nil {
					t.Errorf("Record %d: %v", id, err)
				}
			}
		}(w)
	}
	wg.Wait()

	if r.Len() != 1000 {
		t.Errorf("Expected 1000 entries, got %d", r.Len())
	}
	if page, _ := r.Resolve(3249); page != "page-3.html" {
		t.Errorf("Expected page-3.html, got %q", page)
	}
}
