package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"linkforge/internal/entities"
)

func TestMemoryStore_URLs(t *testing.T) {
	store := NewMemoryStore()
	urls := store.URLs()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := entities.NewURLMapping("abc", "https://a.example", now, nil)
	if err := urls.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.ID == 0 {
		t.Fatal("Create() did not assign an ID")
	}

	dup := entities.NewURLMapping("abc", "https://b.example", now, nil)
	if err := urls.Create(ctx, dup); !errors.Is(err, entities.ErrDuplicateCode) {
		t.Fatalf("Create(duplicate) error = %v, want ErrDuplicateCode", err)
	}

	// Returned records are copies
	got, err := urls.FindByShortCode(ctx, "abc")
	if err != nil {
		t.Fatalf("FindByShortCode() error = %v", err)
	}
	got.OriginalURL = "changed"
	again, _ := urls.FindByShortCode(ctx, "abc")
	if again.OriginalURL != "https://a.example" {
		t.Error("store leaked its internal record")
	}

	if _, err := urls.SetActive(ctx, "abc", false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if _, err := urls.FindActiveByShortCode(ctx, "abc"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("FindActiveByShortCode(inactive) error = %v, want ErrNotFound", err)
	}
	if _, err := urls.FindByShortCode(ctx, "abc"); err != nil {
		t.Errorf("FindByShortCode(inactive) error = %v", err)
	}
	if exists, _ := urls.Exists(ctx, "abc"); !exists {
		t.Error("Exists(inactive) = false, want true")
	}
	if _, err := urls.SetActive(ctx, "missing", true); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("SetActive(missing) error = %v, want ErrNotFound", err)
	}
	if err := urls.IncrementClickCount(ctx, 999); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("IncrementClickCount(999) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	store := NewMemoryStore()
	urls := store.URLs()
	ctx := context.Background()

	mapping := entities.NewURLMapping("hot", "https://example.com", time.Now(), nil)
	if err := urls.Create(ctx, mapping); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := urls.IncrementClickCount(ctx, mapping.ID); err != nil {
				t.Errorf("IncrementClickCount() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := urls.FindByShortCode(ctx, "hot")
	if got.ClickCount != n {
		t.Errorf("ClickCount = %d, want %d", got.ClickCount, n)
	}
}

func TestMemoryStore_ListActiveOrder(t *testing.T) {
	store := NewMemoryStore()
	urls := store.URLs()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	clicks := map[string]int{"low": 1, "high": 5, "mid": 3, "off": 9}
	for code, n := range clicks {
		m := entities.NewURLMapping(code, "https://example.com/"+code, now, nil)
		if err := urls.Create(ctx, m); err != nil {
			t.Fatalf("Create(%s) error = %v", code, err)
		}
		for i := 0; i < n; i++ {
			if err := urls.IncrementClickCount(ctx, m.ID); err != nil {
				t.Fatalf("IncrementClickCount() error = %v", err)
			}
		}
	}
	if _, err := urls.SetActive(ctx, "off", false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	page, err := urls.ListActive(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(page) != 2 || page[0].ShortCode != "high" || page[1].ShortCode != "mid" {
		t.Errorf("first page = %v", codes(page))
	}

	page, _ = urls.ListActive(ctx, 2, 2)
	if len(page) != 1 || page[0].ShortCode != "low" {
		t.Errorf("second page = %v", codes(page))
	}

	total, unexpired, sum, err := urls.Counts(ctx, now.AddDate(0, 0, 8))
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if total != 3 || unexpired != 0 || sum != 9 {
		t.Errorf("Counts() = %d, %d, %d; want 3, 0, 9", total, unexpired, sum)
	}
}

func TestMemoryStore_Clicks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mapping := entities.NewURLMapping("abc", "https://example.com", now, nil)
	if err := store.URLs().Create(ctx, mapping); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Clicks().Create(ctx, &entities.ClickEvent{URLMappingID: 404, ClickedAt: now}); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Create(unknown mapping) error = %v, want ErrNotFound", err)
	}

	for i := 0; i < 3; i++ {
		ev := &entities.ClickEvent{URLMappingID: mapping.ID, ClickedAt: now.Add(time.Duration(i) * time.Hour), UserAgent: string(rune('a' + i))}
		if err := store.Clicks().Create(ctx, ev); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	events, err := store.Clicks().ListByURL(ctx, mapping.ID, 2)
	if err != nil {
		t.Fatalf("ListByURL() error = %v", err)
	}
	if len(events) != 2 || events[0].UserAgent != "c" || events[1].UserAgent != "b" {
		t.Errorf("ListByURL() returned %+v", events)
	}

	count, _ := store.Clicks().CountSince(ctx, now.Add(time.Hour))
	if count != 2 {
		t.Errorf("CountSince() = %d, want 2", count)
	}
}

func codes(urls []*entities.URLMapping) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = u.ShortCode
	}
	return out
}
