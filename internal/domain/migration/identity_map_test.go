package migration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityMap_PutAndGet(t *testing.T) {
	m := NewCategoryMap()

	require.NoError(t, m.Put(1, "pcat_drinks"))
	require.NoError(t, m.Put(2, "pcat_juice"))

	id, ok := m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "pcat_drinks", id)
	assert.True(t, m.Has(2))
	assert.False(t, m.Has(3))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, EntityCategory, m.Entity())
}

func TestIdentityMap_NeverOverwrites(t *testing.T) {
	m := NewProductMap()
	require.NoError(t, m.Put(10, "prod_a"))

	err := m.Put(10, "prod_b")
	assert.True(t, errors.Is(err, ErrIdentityExists))

	id, _ := m.Get(10)
	assert.Equal(t, "prod_a", id)
}

func TestIdentityMap_SealedIsReadOnly(t *testing.T) {
	m := NewCustomerMap()
	require.NoError(t, m.Put(7, "cus_7"))

	sealed := m.Seal()
	assert.True(t, sealed.Sealed())

	err := sealed.Put(8, "cus_8")
	assert.True(t, errors.Is(err, ErrIdentityMapSealed))
	assert.Equal(t, 1, sealed.Len())
}

func TestIdentityMap_NilBehavesEmpty(t *testing.T) {
	var m *CustomerMap

	_, ok := m.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
	m.Range(func(int64, string) bool {
		t.Fatal("range over nil map must not call fn")
		return true
	})
}

func TestMappings_InsertionOrder(t *testing.T) {
	m := NewCategoryMap()
	require.NoError(t, m.Put(5, "b"))
	require.NoError(t, m.Put(1, "a"))

	assert.Equal(t, []Mapping{
		{Entity: EntityCategory, LegacyID: 5, TargetID: "b"},
		{Entity: EntityCategory, LegacyID: 1, TargetID: "a"},
	}, Mappings(m))
}
