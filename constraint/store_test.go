package constraint

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(id, label string) Item {
	return Item{
		ID:          id,
		Label:       label,
		Description: "desc " + label,
		Enabled:     true,
		ImpactLevel: ImpactMedium,
		Source:      SourceManual,
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	a := NewStore(SeedCategories()...)
	b := NewStore(SeedCategories()...)

	item := testItem("c1", "rule one")
	a.Upsert(item)
	b.Upsert(item)
	b.Upsert(item)

	assert.Equal(t, a.Categories(), b.Categories())
}

func TestUpsert_ReplacesByIDInPlace(t *testing.T) {
	s := NewStore(Category{
		ID:   "capacity",
		Name: "产能约束",
		Items: []Item{
			testItem("c1", "original"),
			testItem("c2", "other"),
		},
	})

	updated := testItem("c1", "updated")
	updated.ImpactLevel = ImpactHigh
	s.Upsert(updated)

	cats := s.Categories()
	require.Len(t, cats, 1, "no new category should appear")
	require.Len(t, cats[0].Items, 2)

	// Replaced in its original position, not appended
	assert.Equal(t, "c1", cats[0].Items[0].ID)
	assert.Equal(t, "updated", cats[0].Items[0].Label)
	assert.Equal(t, ImpactHigh, cats[0].Items[0].ImpactLevel)

	// Exactly one item with that id across the whole store
	count := 0
	for _, cat := range cats {
		for _, it := range cat.Items {
			if it.ID == "c1" {
				count++
			}
		}
	}
	assert.Equal(t, 1, count)
}

func TestUpsert_CreatesCustomCategoryLazily(t *testing.T) {
	s := NewStore()

	s.Upsert(testItem("n1", "first"))

	cats := s.Categories()
	require.Len(t, cats, 1)
	assert.Equal(t, CustomCategoryID, cats[0].ID)
	assert.Equal(t, CustomCategoryName, cats[0].Name)
	require.Len(t, cats[0].Items, 1)

	// A second new item appends to the same category
	s.Upsert(testItem("n2", "second"))

	cats = s.Categories()
	require.Len(t, cats, 1)
	require.Len(t, cats[0].Items, 2)
	assert.Equal(t, "n1", cats[0].Items[0].ID)
	assert.Equal(t, "n2", cats[0].Items[1].ID)
}

func TestToggle(t *testing.T) {
	s := NewStore()
	s.Upsert(testItem("t1", "toggle me"))

	enabled, ok := s.Toggle(CustomCategoryID, "t1")
	require.True(t, ok)
	assert.False(t, enabled)

	enabled, ok = s.Toggle(CustomCategoryID, "t1")
	require.True(t, ok)
	assert.True(t, enabled)

	// Unknown ids are a no-op
	_, ok = s.Toggle(CustomCategoryID, "missing")
	assert.False(t, ok)
	_, ok = s.Toggle("missing", "t1")
	assert.False(t, ok)
}

func TestCategories_PreservesOrderAndIsACopy(t *testing.T) {
	s := NewStore(SeedCategories()...)
	s.Upsert(testItem("n1", "extra"))

	cats := s.Categories()
	ids := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	if !reflect.DeepEqual(ids, []string{"capacity", "logistics", CustomCategoryID}) {
		t.Fatalf("unexpected category order: %v", ids)
	}

	// Mutating the returned view must not touch the store
	cats[0].Items[0].Label = "mutated"
	fresh := s.Categories()
	assert.NotEqual(t, "mutated", fresh[0].Items[0].Label)
}

func TestFindAndCount(t *testing.T) {
	s := NewStore(SeedCategories()...)
	require.Equal(t, 2, s.Count())

	item, ok := s.Find("cap-1")
	require.True(t, ok)
	assert.Equal(t, "基地产能上限", item.Label)

	_, ok = s.Find("nope")
	assert.False(t, ok)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := t.TempDir() + "/rules.json"

	s := NewStore(SeedCategories()...)
	s.Upsert(testItem("n1", "persisted"))
	require.NoError(t, s.Save(path))

	loaded, err := LoadStore(path)
	require.NoError(t, err)
	assert.Equal(t, s.Categories(), loaded.Categories())
}
