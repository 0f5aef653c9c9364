package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
)

func testKey(month time.Month) SummaryKey {
	start := time.Date(2025, month, 1, 0, 0, 0, 0, time.UTC)
	return SummaryKey{
		Range: core.DateRange{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Millisecond)},
	}
}

func testSummary(income int64) core.Summary {
	s := core.NewSummary()
	s.TotalIncome = decimal.NewFromInt(income)
	s.Balance = s.TotalIncome
	s.AccountBalances.Add(string(core.Bank), s.TotalIncome)
	return s
}

func TestSummaryKeyDistinguishesFilters(t *testing.T) {
	a := testKey(time.March)
	b := a
	b.Filters.Division = core.Office
	c := a
	c.Filters.Category = "office"

	if a.String() == b.String() || b.String() == c.String() {
		t.Fatalf("keys collide: %s %s %s", a, b, c)
	}
}

func TestLRUSummaryCacheInvalidatesPerUser(t *testing.T) {
	ctx := context.Background()
	c := NewLRUSummaryCache(NewLRUCache[core.Summary](16, time.Minute))

	c.Set(ctx, "alice", testKey(time.March), 0, testSummary(10))
	c.Set(ctx, "alice", testKey(time.April), 0, testSummary(20))
	c.Set(ctx, "alice2", testKey(time.March), 0, testSummary(30))

	got, _, ok := c.Get(ctx, "alice", testKey(time.April))
	if !ok || !got.Equal(testSummary(20)) {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	c.Invalidate(ctx, "alice")
	if _, _, ok := c.Get(ctx, "alice", testKey(time.March)); ok {
		t.Error("alice's summaries should be gone")
	}
	if _, _, ok := c.Get(ctx, "alice2", testKey(time.March)); !ok {
		t.Error("alice2 must not be affected by alice's invalidation")
	}
}

func TestLRUSummaryCacheDropsSetFromOlderGeneration(t *testing.T) {
	ctx := context.Background()
	c := NewLRUSummaryCache(NewLRUCache[core.Summary](16, time.Minute))
	key := testKey(time.March)

	_, gen, ok := c.Get(ctx, "alice", key)
	if ok {
		t.Fatal("unexpected hit on empty cache")
	}
	c.Invalidate(ctx, "alice")
	c.Set(ctx, "alice", key, gen, testSummary(10))
	if _, _, ok := c.Get(ctx, "alice", key); ok {
		t.Fatal("summary computed before the invalidation was stored")
	}

	_, gen, _ = c.Get(ctx, "alice", key)
	c.Set(ctx, "alice", key, gen, testSummary(20))
	got, _, ok := c.Get(ctx, "alice", key)
	if !ok || !got.Equal(testSummary(20)) {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
}

func TestLRUSummaryCacheDoesNotShareMaps(t *testing.T) {
	ctx := context.Background()
	c := NewLRUSummaryCache(NewLRUCache[core.Summary](16, time.Minute))
	key := testKey(time.March)

	s := testSummary(10)
	c.Set(ctx, "alice", key, 0, s)
	s.AccountBalances.Add(string(core.Bank), decimal.NewFromInt(1))

	got, _, _ := c.Get(ctx, "alice", key)
	got.CategoryBreakdown.Add("food", decimal.NewFromInt(5))
	got.AccountBalances.Add(string(core.Cash), decimal.NewFromInt(5))

	again, _, ok := c.Get(ctx, "alice", key)
	if !ok || !again.Equal(testSummary(10)) {
		t.Fatalf("cached summary was mutated through a caller: %+v", again)
	}
}

func TestNopSummaryCache(t *testing.T) {
	var c SummaryCache = NopSummaryCache{}
	c.Set(context.Background(), "u", testKey(time.May), 0, testSummary(1))
	if _, _, ok := c.Get(context.Background(), "u", testKey(time.May)); ok {
		t.Fatal("nop cache returned a hit")
	}
}

func TestRedisKeysCarryGeneration(t *testing.T) {
	k := testKey(time.June)
	if summaryKey("u1", 0, k) == summaryKey("u1", 1, k) {
		t.Fatal("generation must change the key")
	}
	if generationKey("u1") != "moneymanager:summary:gen:u1" {
		t.Fatalf("generationKey = %q", generationKey("u1"))
	}
}

// TestRedisSummaryCache runs against a live server when REDIS_TEST_URL is set.
func TestRedisSummaryCache(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	c := NewRedisSummaryCache(client, time.Minute, nil)
	user := "it-" + uuid.NewString()
	key := testKey(time.July)

	_, gen, _ := c.Get(ctx, user, key)
	c.Set(ctx, user, key, gen, testSummary(42))
	got, _, ok := c.Get(ctx, user, key)
	if !ok || !got.Equal(testSummary(42)) {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	c.Invalidate(ctx, user)
	if _, _, ok := c.Get(ctx, user, key); ok {
		t.Fatal("entry survived invalidation")
	}

	// A summary folded before the invalidation must not become visible.
	c.Set(ctx, user, key, gen, testSummary(7))
	if _, _, ok := c.Get(ctx, user, key); ok {
		t.Fatal("entry from an older generation became visible")
	}
}
