// Package migration holds the state threaded between migration phases:
// identity maps, per-phase results and the run history.
package migration

import (
	"errors"
	"fmt"
)

// EntityType names the kind of record an identity map tracks.
type EntityType string

const (
	EntityCategory EntityType = "category"
	EntityProduct  EntityType = "product"
	EntityCustomer EntityType = "customer"
)

var (
	// ErrIdentityExists is returned when a legacy key is mapped twice.
	ErrIdentityExists = errors.New("migration: legacy id already mapped")

	// ErrIdentityMapSealed is returned when writing to a completed phase's map.
	ErrIdentityMapSealed = errors.New("migration: identity map is sealed")
)

// IdentityMap maps legacy keys to the identifiers created in the target.
// Entries are never overwritten; once sealed the map is read-only.
// It is not safe for concurrent writers.
type IdentityMap[K comparable, V any] struct {
	entity EntityType
	values map[K]V
	keys   []K
	sealed bool
}

// NewIdentityMap creates an empty map for the given entity type.
func NewIdentityMap[K comparable, V any](entity EntityType) *IdentityMap[K, V] {
	return &IdentityMap[K, V]{
		entity: entity,
		values: make(map[K]V),
	}
}

// Put records a mapping. It fails if the key is already present or the map is sealed.
func (m *IdentityMap[K, V]) Put(key K, value V) error {
	if m.sealed {
		return fmt.Errorf("%w: %s", ErrIdentityMapSealed, m.entity)
	}
	if _, ok := m.values[key]; ok {
		return fmt.Errorf("%w: %s %v", ErrIdentityExists, m.entity, key)
	}
	m.values[key] = value
	m.keys = append(m.keys, key)
	return nil
}

// Get returns the mapped value. A nil map behaves as empty.
func (m *IdentityMap[K, V]) Get(key K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is mapped.
func (m *IdentityMap[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *IdentityMap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Entity returns the tracked entity type.
func (m *IdentityMap[K, V]) Entity() EntityType {
	return m.entity
}

// Seal freezes the map and returns it for handing to later phases.
func (m *IdentityMap[K, V]) Seal() *IdentityMap[K, V] {
	m.sealed = true
	return m
}

// Sealed reports whether the owning phase has completed.
func (m *IdentityMap[K, V]) Sealed() bool {
	return m.sealed
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *IdentityMap[K, V]) Range(fn func(key K, value V) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// CategoryMap maps legacy term IDs to target category IDs.
type CategoryMap = IdentityMap[int64, string]

// ProductMap maps legacy post IDs to target product IDs.
type ProductMap = IdentityMap[int64, string]

// CustomerMap maps legacy user IDs to target customer IDs.
type CustomerMap = IdentityMap[int64, string]

// NewCategoryMap creates an empty category map.
func NewCategoryMap() *CategoryMap { return NewIdentityMap[int64, string](EntityCategory) }

// NewProductMap creates an empty product map.
func NewProductMap() *ProductMap { return NewIdentityMap[int64, string](EntityProduct) }

// NewCustomerMap creates an empty customer map.
func NewCustomerMap() *CustomerMap { return NewIdentityMap[int64, string](EntityCustomer) }

// Mapping is one persisted identity map entry.
type Mapping struct {
	Entity   EntityType `json:"entity"`
	LegacyID int64      `json:"legacy_id"`
	TargetID string     `json:"target_id"`
}

// Mappings flattens an identity map, in insertion order.
func Mappings(m *IdentityMap[int64, string]) []Mapping {
	out := make([]Mapping, 0, m.Len())
	m.Range(func(legacyID int64, targetID string) bool {
		out = append(out, Mapping{Entity: m.Entity(), LegacyID: legacyID, TargetID: targetID})
		return true
	})
	return out
}
