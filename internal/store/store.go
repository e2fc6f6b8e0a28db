package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loyalty-analytics-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrItemNotFound           = errors.New("item not found")
	ErrUnknownTable           = errors.New("unknown table")
	ErrUnknownIndex           = errors.New("unknown index")
	ErrInvalidKey             = errors.New("invalid item key")
	ErrInvalidUpdate          = errors.New("invalid update")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// Key identifies one item by its key attributes.
type Key map[string]string

// Page is one slice of a table scan. An empty Cursor means the scan is exhausted.
type Page struct {
	Items  []models.Item
	Cursor string
}

// Update describes a single-item mutation. Paths are dotted ("data.totalCoins").
// Add treats a missing field as zero before adding.
type Update struct {
	Set map[string]any
	Add map[string]float64
}

func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Add) == 0
}

// Store defines the contract that every item store backend (Redis, in-memory) must satisfy.
type Store interface {
	// --- Reads ---
	ScanAll(ctx context.Context, table string, limit int) ([]models.Item, error)
	ScanPage(ctx context.Context, table, cursor string, pageSize int) (Page, error)
	QueryByIndex(ctx context.Context, table, index, value string) ([]models.Item, error)
	GetItem(ctx context.Context, table string, key Key) (models.Item, error)

	// --- Writes ---
	PutItem(ctx context.Context, table string, item models.Item) error
	UpdateItem(ctx context.Context, table string, key Key, update Update) (models.Item, error)
	DeleteItem(ctx context.Context, table string, key Key) error

	// --- Lifecycle ---
	Close()
}

// TableSchema declares a table's key attributes and secondary indexes.
type TableSchema struct {
	Name     string
	KeyAttrs []string
	Indexes  map[string]string // index name -> attribute
}

// DefaultSchemas returns the schemas of every table this system reads or writes.
func DefaultSchemas() map[string]TableSchema {
	schemas := []TableSchema{
		{
			Name:     models.TableUsers,
			KeyAttrs: []string{"userId"},
			Indexes: map[string]string{
				models.IndexUserPhone: "phoneNumber",
				models.IndexUserEmail: "emailId",
			},
		},
		{Name: models.TableWallets, KeyAttrs: []string{"walletId"}, Indexes: map[string]string{models.IndexUser: "userId"}},
		{Name: models.TableWalletTransactions, KeyAttrs: []string{"transactionId"}, Indexes: map[string]string{models.IndexUser: "userId"}},
		{Name: models.TableReferrals, KeyAttrs: []string{"tierReferralId"}, Indexes: map[string]string{models.IndexUserId: "userId"}},
		{Name: models.TableTiers, KeyAttrs: []string{"tierId"}},
		{Name: models.TableLeads, KeyAttrs: []string{"leadId"}, Indexes: map[string]string{models.IndexUser: "userId"}},
		{Name: models.TableWithdrawals, KeyAttrs: []string{"requestedId"}, Indexes: map[string]string{models.IndexUser: "userId"}},
		{Name: models.TableOrders, KeyAttrs: []string{"orderId"}, Indexes: map[string]string{models.IndexUser: "userId"}},
		{Name: models.TableAggregates, KeyAttrs: []string{"aggregateType", "aggregateId"}},
	}

	out := make(map[string]TableSchema, len(schemas))
	for _, s := range schemas {
		out[s.Name] = s
	}
	return out
}

// itemId joins the key attribute values in schema order.
func (s TableSchema) itemId(key Key) (string, error) {
	parts := make([]string, 0, len(s.KeyAttrs))
	for _, attr := range s.KeyAttrs {
		v, ok := key[attr]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %s missing %s", ErrInvalidKey, s.Name, attr)
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "#"), nil
}

// keyOf extracts the key attributes from a full item.
func (s TableSchema) keyOf(item models.Item) Key {
	key := make(Key, len(s.KeyAttrs))
	for _, attr := range s.KeyAttrs {
		key[attr] = item.String(attr)
	}
	return key
}

func (s TableSchema) isKeyAttr(path string) bool {
	for _, attr := range s.KeyAttrs {
		if attr == path {
			return true
		}
	}
	return false
}

func lookupSchema(schemas map[string]TableSchema, table string) (TableSchema, error) {
	schema, ok := schemas[table]
	if !ok {
		return TableSchema{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return schema, nil
}

func lookupIndex(schema TableSchema, index string) (string, error) {
	attr, ok := schema.Indexes[index]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", ErrUnknownIndex, index, schema.Name)
	}
	return attr, nil
}
