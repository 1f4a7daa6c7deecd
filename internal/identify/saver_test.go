package identify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/robeeeeeet/bottle-keep/internal/ai"
	"github.com/robeeeeeet/bottle-keep/internal/collection"
	"github.com/robeeeeeet/bottle-keep/internal/logger"
	"github.com/robeeeeeet/bottle-keep/internal/models"
)

type memStore struct {
	nextID   int
	alcohols map[string]*models.Alcohol
	entries  []*models.CollectionEntry
}

func newMemStore() *memStore {
	return &memStore{alcohols: map[string]*models.Alcohol{}}
}

func (m *memStore) CreateAlcohol(_ context.Context, a *models.Alcohol) error {
	m.nextID++
	a.ID = fmt.Sprintf("alc-%d", m.nextID)
	cp := *a
	m.alcohols[a.ID] = &cp
	return nil
}

func (m *memStore) GetAlcohol(_ context.Context, id string) (*models.Alcohol, error) {
	a, ok := m.alcohols[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CreateEntry(_ context.Context, e *models.CollectionEntry) error {
	m.nextID++
	e.ID = fmt.Sprintf("entry-%d", m.nextID)
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memStore) GetEntry(context.Context, string) (*models.CollectionEntry, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) UpdateEntry(context.Context, *models.CollectionEntry, string) (bool, error) {
	return false, nil
}

func (m *memStore) DeleteEntry(context.Context, string, string) (bool, error) {
	return false, nil
}

func (m *memStore) AcceptedBetween(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestCollectionSaverPersistsIdentifiedBottle(t *testing.T) {
	st := newMemStore()
	reviews := collection.NewService(st, nil, logger.Nop())

	an := &scriptedAnalyzer{results: []*ai.Result{unique("獺祭")}}
	c := New(an, CollectionSaver{Reviews: reviews, UserID: "u1"})

	require.NoError(t, c.StartManual())
	require.NoError(t, c.SubmitText(context.Background(), "獺祭", "日本酒"))
	require.NoError(t, c.Confirm())
	require.NoError(t, c.Save(context.Background(), Review{Rating: 5}))
	assert.Equal(t, StateSaved, c.State())

	require.Len(t, st.entries, 1)
	assert.Equal(t, "u1", st.entries[0].UserID)

	a, err := st.GetAlcohol(context.Background(), st.entries[0].AlcoholID)
	require.NoError(t, err)
	assert.Equal(t, "獺祭", a.Name)
}

func TestCollectionSaverReusesExistingBottle(t *testing.T) {
	st := newMemStore()
	st.alcohols["alc-9"] = &models.Alcohol{ID: "alc-9", Name: "友達の酒", Type: "日本酒"}
	reviews := collection.NewService(st, nil, logger.Nop())

	c := New(&scriptedAnalyzer{}, CollectionSaver{Reviews: reviews, UserID: "u1"})
	c.StartReviewExisting("alc-9", info("友達の酒"))
	require.NoError(t, c.Save(context.Background(), Review{Rating: 3}))

	require.Len(t, st.entries, 1)
	assert.Equal(t, "alc-9", st.entries[0].AlcoholID)
	assert.Len(t, st.alcohols, 1, "no duplicate catalog row")
}
