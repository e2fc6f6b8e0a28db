package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"loyalty-analytics-go/internal/models"
)

// Compile-time check: *MemoryStore must satisfy Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-local Store used for tests and local runs.
type MemoryStore struct {
	schemas map[string]TableSchema
	mutex   sync.RWMutex
	tables  map[string]map[string]models.Item
}

func NewMemoryStore(schemas map[string]TableSchema) *MemoryStore {
	if schemas == nil {
		schemas = DefaultSchemas()
	}
	return &MemoryStore{
		schemas: schemas,
		tables:  make(map[string]map[string]models.Item),
	}
}

func (m *MemoryStore) ScanAll(ctx context.Context, table string, limit int) ([]models.Item, error) {
	var items []models.Item
	cursor := ""
	for {
		page, err := m.ScanPage(ctx, table, cursor, 0)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
		if page.Cursor == "" {
			return items, nil
		}
		cursor = page.Cursor
	}
}

// ScanPage returns items in id order. The cursor is an offset into that order.
func (m *MemoryStore) ScanPage(ctx context.Context, table, cursor string, pageSize int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if _, err := lookupSchema(m.schemas, table); err != nil {
		return Page{}, err
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		offset = n
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rows := m.tables[table]
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return Page{}, nil
	}
	end := offset + pageSize
	if end > len(ids) {
		end = len(ids)
	}

	page := Page{Items: make([]models.Item, 0, end-offset)}
	for _, id := range ids[offset:end] {
		page.Items = append(page.Items, rows[id].Clone())
	}
	if end < len(ids) {
		page.Cursor = strconv.Itoa(end)
	}
	return page, nil
}

func (m *MemoryStore) QueryByIndex(ctx context.Context, table, index, value string) ([]models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema, err := lookupSchema(m.schemas, table)
	if err != nil {
		return nil, err
	}
	attr, err := lookupIndex(schema, index)
	if err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.Item
	for _, item := range m.tables[table] {
		if item.String(attr) == value {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) GetItem(ctx context.Context, table string, key Key) (models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema, err := lookupSchema(m.schemas, table)
	if err != nil {
		return nil, err
	}
	id, err := schema.itemId(key)
	if err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	item, ok := m.tables[table][id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item.Clone(), nil
}

func (m *MemoryStore) PutItem(ctx context.Context, table string, item models.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	schema, err := lookupSchema(m.schemas, table)
	if err != nil {
		return err
	}
	id, err := schema.itemId(schema.keyOf(item))
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.tables[table] == nil {
		m.tables[table] = make(map[string]models.Item)
	}
	m.tables[table][id] = NormalizeItem(item.Clone())
	return nil
}

func (m *MemoryStore) UpdateItem(ctx context.Context, table string, key Key, update Update) (models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema, err := lookupSchema(m.schemas, table)
	if err != nil {
		return nil, err
	}
	id, err := schema.itemId(key)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	current, exists := m.tables[table][id]
	if !exists {
		current = models.Item{}
		for attr, v := range key {
			current[attr] = v
		}
	}

	updated, err := applyUpdate(schema, current, update)
	if err != nil {
		return nil, err
	}

	if m.tables[table] == nil {
		m.tables[table] = make(map[string]models.Item)
	}
	m.tables[table][id] = updated
	return updated.Clone(), nil
}

func (m *MemoryStore) DeleteItem(ctx context.Context, table string, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	schema, err := lookupSchema(m.schemas, table)
	if err != nil {
		return err
	}
	id, err := schema.itemId(key)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.tables[table], id)
	return nil
}

func (m *MemoryStore) Close() {}
