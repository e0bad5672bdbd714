package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/ports"
)

type MockHAPort struct {
	mock.Mock
}

func (m *MockHAPort) CallService(ctx context.Context, domain, service string, data map[string]any) ([]model.EntitySnapshot, error) {
	args := m.Called(ctx, domain, service, data)
	states, _ := args.Get(0).([]model.EntitySnapshot)
	return states, args.Error(1)
}

func (m *MockHAPort) HasEntity(ctx context.Context, entityID string) bool {
	return m.Called(ctx, entityID).Bool(0)
}

func (m *MockHAPort) GetStates(ctx context.Context) ([]model.EntitySnapshot, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]model.EntitySnapshot)
	return states, args.Error(1)
}

func (m *MockHAPort) GetAllEntities(ctx context.Context) ([]ports.HomeAssistantEntity, error) {
	args := m.Called(ctx)
	entities, _ := args.Get(0).([]ports.HomeAssistantEntity)
	return entities, args.Error(1)
}

func (m *MockHAPort) Configure(url, token string) {
	m.Called(url, token)
}

func (m *MockHAPort) IsConfigured() bool {
	return m.Called().Bool(0)
}

// memStore is an in-memory StoreRepository.
type memStore struct {
	mu    sync.Mutex
	store model.Store
	saves int
}

func (r *memStore) Get(ctx context.Context) (*model.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := r.store
	copied.Cards = append([]*model.CardConfig(nil), r.store.Cards...)
	return &copied, nil
}

func (r *memStore) Save(ctx context.Context, store *model.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = *store
	r.saves++
	return nil
}

func tvState(state string) model.EntitySnapshot {
	return model.EntitySnapshot{
		EntityID: "media_player.tv",
		State:    state,
		Attributes: map[string]any{
			"friendly_name":      "TV",
			"device_class":       "tv",
			"supported_features": float64(model.FeatureVolumeSet | model.FeatureVolumeMute | model.FeatureTurnOn | model.FeatureTurnOff),
			"volume_level":       0.3,
			"source":             "TV",
		},
	}
}

func newService(t *testing.T, ha *MockHAPort, store *memStore) *CardService {
	t.Helper()
	return NewCardService(ha, store, CardOptions{})
}

func TestCardService_Load(t *testing.T) {
	ha := new(MockHAPort)
	ha.On("Configure", "http://ha:8123", "token").Return()
	store := &memStore{store: model.Store{
		HassURL:   "http://ha:8123",
		HassToken: "token",
		Cards: []*model.CardConfig{
			{ID: "a", Entity: "media_player.tv"},
			{ID: "bad", Entity: "light.kitchen"},
		},
	}}

	s := newService(t, ha, store)
	err := s.Load(context.Background(), []*model.CardConfig{
		{ID: "a", Entity: "media_player.other"},
		{Entity: "media_player.receiver"},
	})
	require.NoError(t, err)

	cards := s.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, "a", cards[0].ID())
	assert.Equal(t, "media_player.tv", cards[0].Entity())
	assert.Equal(t, "media_player.receiver", cards[1].Entity())
	assert.NotEmpty(t, cards[1].ID())

	// The seeded card was persisted, the invalid stored one dropped.
	assert.Equal(t, 1, store.saves)
	require.Len(t, store.store.Cards, 2)
	assert.Equal(t, cards[1].ID(), store.store.Cards[1].ID)
	ha.AssertExpectations(t)
}

func TestCardService_Load_SeedIsStableAcrossRestarts(t *testing.T) {
	store := &memStore{}
	seed := []*model.CardConfig{
		{Entity: "media_player.tv"},
		{Entity: "media_player.tv"},
		{Entity: "media_player.receiver", Title: "Receiver"},
	}

	var ids []string
	for restart := 0; restart < 3; restart++ {
		s := newService(t, new(MockHAPort), store)
		require.NoError(t, s.Load(context.Background(), seed))
		require.Len(t, s.Cards(), 3)
		require.Len(t, store.store.Cards, 3)

		got := make([]string, 0, 3)
		for _, c := range s.Cards() {
			got = append(got, c.ID())
		}
		if ids == nil {
			ids = got
		}
		assert.Equal(t, ids, got)
	}
	assert.NotEqual(t, ids[0], ids[1], "identical seed cards keep separate ids")
	assert.Equal(t, 1, store.saves, "only the first start stores the seed")
	assert.Empty(t, seed[0].ID, "the caller's seed is left untouched")
}

func TestCardService_AddUpdateDelete(t *testing.T) {
	ha := new(MockHAPort)
	ha.On("IsConfigured").Return(true)
	ha.On("GetStates", mock.Anything).Return([]model.EntitySnapshot{tvState("on")}, nil)
	store := &memStore{}
	s := newService(t, ha, store)

	card, err := s.AddCard(context.Background(), &model.CardConfig{Entity: "media_player.tv"})
	require.NoError(t, err)
	_, ok := card.Snapshot()
	assert.True(t, ok, "new card is seeded with the current state")

	_, err = s.AddCard(context.Background(), &model.CardConfig{Entity: "switch.tv"})
	var cfgErr *model.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	err = s.UpdateCard(context.Background(), card.ID(), &model.CardConfig{Entity: "media_player.tv", Title: "Lounge"})
	require.NoError(t, err)
	assert.Equal(t, "Lounge", store.store.Cards[0].Title)

	stub, err := s.AddCard(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "media_player.samsung_tv", stub.Entity())

	require.NoError(t, s.DeleteCard(context.Background(), card.ID()))
	assert.ErrorIs(t, s.DeleteCard(context.Background(), card.ID()), ErrCardNotFound)
	_, err = s.Card(card.ID())
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.Len(t, store.store.Cards, 1)
}

func TestCardService_OnStateChanged(t *testing.T) {
	ha := new(MockHAPort)
	s := newService(t, ha, &memStore{store: model.Store{Cards: []*model.CardConfig{
		{ID: "tv", Entity: "media_player.tv"},
		{ID: "rx", Entity: "media_player.receiver"},
	}}})
	require.NoError(t, s.Load(context.Background(), nil))

	s.OnStateChanged(tvState("on"))

	tv, _ := s.Card("tv")
	rx, _ := s.Card("rx")
	_, ok := tv.Snapshot()
	assert.True(t, ok)
	_, ok = rx.Snapshot()
	assert.False(t, ok)
}

func TestCardService_RefreshStates_NotConfigured(t *testing.T) {
	ha := new(MockHAPort)
	ha.On("IsConfigured").Return(false)
	s := newService(t, ha, &memStore{})
	assert.ErrorIs(t, s.RefreshStates(context.Background()), ErrNotConfigured)
}

func TestCardService_UpdateConfig(t *testing.T) {
	ha := new(MockHAPort)
	ha.On("Configure", "http://ha", "secret").Return()
	ha.On("IsConfigured").Return(true)
	ha.On("GetStates", mock.Anything).Return([]model.EntitySnapshot{}, nil)
	store := &memStore{}
	s := newService(t, ha, store)

	require.NoError(t, s.UpdateConfig(context.Background(), "http://ha", "secret"))
	assert.Equal(t, "secret", store.store.HassToken)
	ha.AssertExpectations(t)
}

func TestCardService_GetAllEntities(t *testing.T) {
	ha := new(MockHAPort)
	ha.On("IsConfigured").Return(true)
	ha.On("GetAllEntities", mock.Anything).Return([]ports.HomeAssistantEntity{
		{EntityID: "media_player.tv"},
		{EntityID: "light.kitchen"},
		{EntityID: "remote.tv"},
	}, nil)
	s := newService(t, ha, &memStore{})

	entities, err := s.GetAllEntities(context.Background())
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "media_player.tv", entities[0].EntityID)
}

func TestCardService_DebugCall(t *testing.T) {
	ha := new(MockHAPort)
	ha.On("CallService", mock.Anything, "remote", "send_command", map[string]any{
		"entity_id": "remote.tv",
		"command":   "KEY_HOME",
	}).Return([]model.EntitySnapshot{}, nil)
	s := newService(t, ha, &memStore{store: model.Store{Cards: []*model.CardConfig{{ID: "tv", Entity: "media_player.tv"}}}})
	require.NoError(t, s.Load(context.Background(), nil))

	_, err := s.DebugCall(context.Background(), "tv", "remote.send_command", map[string]any{"command": "KEY_HOME"})
	require.NoError(t, err)
	ha.AssertExpectations(t)

	_, err = s.DebugCall(context.Background(), "tv", "nodot", nil)
	assert.Error(t, err)
}

func TestCardService_GetDevices(t *testing.T) {
	ha := new(MockHAPort)
	s := newService(t, ha, &memStore{store: model.Store{Cards: []*model.CardConfig{
		{ID: "tv", Entity: "media_player.tv", Title: "Living Room"},
		{ID: "rx", Entity: "media_player.receiver"},
	}}})
	require.NoError(t, s.Load(context.Background(), nil))
	s.OnStateChanged(tvState("on"))

	devices, err := s.GetDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "1", devices[0].ID)
	assert.Equal(t, "Living Room", devices[0].Name)
	assert.True(t, devices[0].State.On)
	assert.Equal(t, uint8(76), devices[0].State.Bri)
	assert.Equal(t, "Dimmable light", devices[0].Metadata.Type)
	assert.False(t, devices[1].State.Reachable)

	d, err := s.GetDevice(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "rx", d.CardID)

	_, err = s.GetDevice(context.Background(), "3")
	assert.ErrorIs(t, err, ErrCardNotFound)
	_, err = s.GetDevice(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestCardService_UpdateDeviceState(t *testing.T) {
	ha := new(MockHAPort)
	ha.On("CallService", mock.Anything, "media_player", "volume_set", map[string]any{
		"entity_id":    "media_player.tv",
		"volume_level": 1.0,
	}).Return([]model.EntitySnapshot{}, nil)
	s := newService(t, ha, &memStore{store: model.Store{Cards: []*model.CardConfig{{ID: "tv", Entity: "media_player.tv"}}}})
	require.NoError(t, s.Load(context.Background(), nil))

	_, err := s.UpdateDeviceState(context.Background(), "1", model.HueStateUpdate{})
	assert.ErrorIs(t, err, ErrNotRendered)

	s.OnStateChanged(tvState("on"))
	on, bri := true, uint8(254)
	pending, err := s.UpdateDeviceState(context.Background(), "1", model.HueStateUpdate{On: &on, Bri: &bri})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, pending[0].Wait(context.Background()))
	ha.AssertExpectations(t)
}
