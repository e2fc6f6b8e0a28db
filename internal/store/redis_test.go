package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"loyalty-analytics-go/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, pageSize int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	s := NewRedisStoreFromClient(client, "test", pageSize, nil)
	t.Cleanup(s.Close)
	return s, srv
}

func TestRedisStore_ScanAllWalksPages(t *testing.T) {
	s, _ := newTestRedisStore(t, 7)
	seedUsers(t, s, 50)
	ctx := context.Background()

	items, err := s.ScanAll(ctx, models.TableUsers, 0)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if len(items) != 50 {
		t.Fatalf("Expected 50 items, got %d", len(items))
	}
	ids := make(map[string]bool)
	for _, item := range items {
		ids[item.String("userId")] = true
	}
	if len(ids) != 50 {
		t.Errorf("Expected 50 distinct users, got %d", len(ids))
	}

	limited, err := s.ScanAll(ctx, models.TableUsers, 20)
	if err != nil {
		t.Fatalf("ScanAll with limit failed: %v", err)
	}
	if len(limited) != 20 {
		t.Errorf("Expected 20 items with limit, got %d", len(limited))
	}
}

func TestRedisStore_ScanAllIgnoresIndexKeys(t *testing.T) {
	s, _ := newTestRedisStore(t, 3)
	seedUsers(t, s, 6)

	items, err := s.ScanAll(context.Background(), models.TableUsers, 0)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	for _, item := range items {
		if item.String("userId") == "" {
			t.Errorf("Index set leaked into scan: %v", item)
		}
	}
	if len(items) != 6 {
		t.Errorf("Expected 6 items, got %d", len(items))
	}
}

func TestRedisStore_ScanPageCursor(t *testing.T) {
	s, _ := newTestRedisStore(t, 10)
	seedUsers(t, s, 25)
	ctx := context.Background()

	seen := 0
	cursor := ""
	for i := 0; ; i++ {
		if i > 100 {
			t.Fatalf("Cursor never returned to zero")
		}
		page, err := s.ScanPage(ctx, models.TableUsers, cursor, 4)
		if err != nil {
			t.Fatalf("ScanPage failed: %v", err)
		}
		seen += len(page.Items)
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	if seen != 25 {
		t.Errorf("Expected to page through 25 items, saw %d", seen)
	}

	if _, err := s.ScanPage(ctx, models.TableUsers, "not-a-number", 4); err == nil {
		t.Errorf("Expected an error for a malformed cursor")
	}
}

func TestRedisStore_QueryByIndexFollowsValueChange(t *testing.T) {
	s, _ := newTestRedisStore(t, 100)
	ctx := context.Background()
	if err := s.PutItem(ctx, models.TableUsers, models.Item{"userId": "u1", "phoneNumber": "111"}); err != nil {
		t.Fatalf("PutItem failed: %v", err)
	}

	items, err := s.QueryByIndex(ctx, models.TableUsers, models.IndexUserPhone, "111")
	if err != nil {
		t.Fatalf("QueryByIndex failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 match before the change, got %d", len(items))
	}

	if err := s.PutItem(ctx, models.TableUsers, models.Item{"userId": "u1", "phoneNumber": "222"}); err != nil {
		t.Fatalf("PutItem failed: %v", err)
	}

	old, err := s.QueryByIndex(ctx, models.TableUsers, models.IndexUserPhone, "111")
	if err != nil {
		t.Fatalf("QueryByIndex failed: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("Old phone number still indexed: %v", old)
	}

	current, err := s.QueryByIndex(ctx, models.TableUsers, models.IndexUserPhone, "222")
	if err != nil {
		t.Fatalf("QueryByIndex failed: %v", err)
	}
	if len(current) != 1 || current[0].String("userId") != "u1" {
		t.Errorf("Expected u1 under the new phone number, got %v", current)
	}

	_, err = s.QueryByIndex(ctx, models.TableUsers, "noSuchIndex", "x")
	if !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("Expected ErrUnknownIndex, got %v", err)
	}
}

func TestRedisStore_UpdateCreatesThenAdds(t *testing.T) {
	s, _ := newTestRedisStore(t, 100)
	ctx := context.Background()
	key := Key{"aggregateType": "GLOBAL", "aggregateId": "STATS"}

	item, err := s.UpdateItem(ctx, models.TableAggregates, key, Update{
		Add: map[string]float64{"data.totalCoins": 150, "data.activeUsersCount": 1},
		Set: map[string]any{"lastUpdated": int64(1700000000)},
	})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if item.Map("data").Int("totalCoins") != 150 {
		t.Errorf("First delta should initialize to 150, got %v", item.Map("data")["totalCoins"])
	}
	if item.String("aggregateId") != "STATS" {
		t.Errorf("Created item should carry its key attributes")
	}

	if _, err := s.UpdateItem(ctx, models.TableAggregates, key, Update{
		Add: map[string]float64{"data.totalCoins": -50.5},
	}); err != nil {
		t.Fatalf("Second UpdateItem failed: %v", err)
	}

	stored, err := s.GetItem(ctx, models.TableAggregates, key)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if stored.Map("data").Float("totalCoins") != 99.5 {
		t.Errorf("Expected 99.5 after reload, got %v", stored.Map("data")["totalCoins"])
	}
	if stored.Map("data").Int("activeUsersCount") != 1 {
		t.Errorf("Untouched counter changed: %v", stored.Map("data")["activeUsersCount"])
	}
	if stored.Int("lastUpdated") != 1700000000 {
		t.Errorf("Expected lastUpdated to survive the round trip, got %v", stored["lastUpdated"])
	}
}

func TestRedisStore_ConcurrentDeltasAllLand(t *testing.T) {
	s, _ := newTestRedisStore(t, 100)
	ctx := context.Background()
	key := Key{"aggregateType": "GLOBAL", "aggregateId": "STATS"}

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := s.UpdateItem(ctx, models.TableAggregates, key, Update{
				Add: map[string]float64{"data.totalCoins": 1},
			})
			errs <- err
		}()
	}
	failed := 0
	for i := 0; i < 20; i++ {
		if err := <-errs; err != nil {
			if !errors.Is(err, ErrConcurrentModification) {
				t.Fatalf("UpdateItem failed: %v", err)
			}
			failed++
		}
	}

	stored, err := s.GetItem(ctx, models.TableAggregates, key)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := stored.Map("data").Int("totalCoins"); got != int64(20-failed) {
		t.Errorf("Expected %d applied deltas, got %d", 20-failed, got)
	}
}

func TestRedisStore_DeleteClearsIndex(t *testing.T) {
	s, srv := newTestRedisStore(t, 100)
	ctx := context.Background()
	seedUsers(t, s, 3)

	if err := s.DeleteItem(ctx, models.TableUsers, Key{"userId": "u001"}); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}

	_, err := s.GetItem(ctx, models.TableUsers, Key{"userId": "u001"})
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound after delete, got %v", err)
	}
	if srv.Exists(fmt.Sprintf("test:idx:%s:%s:%s", models.TableUsers, models.IndexUserPhone, "9876500001")) {
		t.Errorf("Index set for the deleted user should be gone")
	}

	if err := s.DeleteItem(ctx, models.TableUsers, Key{"userId": "u001"}); err != nil {
		t.Errorf("Deleting a missing item should be a no-op, got %v", err)
	}
}
