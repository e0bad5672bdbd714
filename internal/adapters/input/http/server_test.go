package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"media-player-card/internal/adapters/output/persistence"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/domain/service"
	"media-player-card/internal/ports"
)

// fakeHA records service calls. While gate is open, calls block on it.
type fakeHA struct {
	mu     sync.Mutex
	calls  []string
	gate   chan struct{}
	states []model.EntitySnapshot
}

func (f *fakeHA) CallService(ctx context.Context, domain, svc string, data map[string]any) ([]model.EntitySnapshot, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, domain+"."+svc)
	return nil, nil
}

func (f *fakeHA) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeHA) HasEntity(context.Context, string) bool { return false }

func (f *fakeHA) GetStates(context.Context) ([]model.EntitySnapshot, error) { return f.states, nil }

func (f *fakeHA) GetAllEntities(context.Context) ([]ports.HomeAssistantEntity, error) {
	return []ports.HomeAssistantEntity{{EntityID: "media_player.tv", FriendlyName: "TV"}, {EntityID: "sun.sun"}}, nil
}

func (f *fakeHA) Configure(string, string) {}

func (f *fakeHA) IsConfigured() bool { return true }

var tvOn = model.EntitySnapshot{
	EntityID: "media_player.tv",
	State:    "on",
	Attributes: map[string]any{
		"friendly_name":      "TV",
		"device_class":       "tv",
		"supported_features": float64(model.FeatureVolumeSet | model.FeatureVolumeMute | model.FeatureTurnOn | model.FeatureTurnOff),
		"volume_level":       0.25,
	},
}

type fixture struct {
	ha    *fakeHA
	cards *service.CardService
	ts    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ha := &fakeHA{}
	repo := persistence.NewJSONStoreRepository(filepath.Join(t.TempDir(), "config.json"))
	cards := service.NewCardService(ha, repo, service.CardOptions{})
	require.NoError(t, cards.Load(context.Background(), nil))
	api := service.NewAPI(cards, service.NewEditor(cards, nil))
	srv := NewServer(api, ServerOptions{Hue: api, IP: "10.0.0.2"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{ha: ha, cards: cards, ts: ts}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf strings.Builder
	_, _ = io.Copy(&buf, resp.Body)
	return resp, []byte(buf.String())
}

func (f *fixture) addCard(t *testing.T) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/admin/cards", "entity: media_player.tv\ntitle: Lounge\nbars:\n  - items:\n      - icon: mdi:home\n        actionType: key\n        value: KEY_HOME\n")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var cfg model.CardConfig
	require.NoError(t, json.Unmarshal(body, &cfg))
	require.NotEmpty(t, cfg.ID)
	return cfg.ID
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCardLifecycle(t *testing.T) {
	f := newFixture(t)
	id := f.addCard(t)

	resp, body := f.do(t, http.MethodGet, "/cards", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []model.CardSummary
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Lounge", list[0].Title)

	// The fake returns no states, so nothing can be rendered yet.
	resp, _ = f.do(t, http.MethodGet, "/cards/"+id, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	f.cards.OnStateChanged(tvOn)
	resp, body = f.do(t, http.MethodGet, "/cards/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rm model.RenderModel
	require.NoError(t, json.Unmarshal(body, &rm))
	assert.Equal(t, "Lounge", rm.Name)
	assert.Equal(t, 25, rm.VolumePercent)
	require.Len(t, rm.Bars, 1)

	resp, body = f.do(t, http.MethodPatch, "/admin/cards/"+id, `{"key":"title","value":"Den"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"changed":true`)

	resp, _ = f.do(t, http.MethodPut, "/admin/cards/"+id, `{"entity":"light.kitchen"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/admin/cards/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/cards/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddCard_Invalid(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/admin/cards", `{"entity":"light.kitchen"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "The domain light is not supported!")
}

func TestPressControl_Wait(t *testing.T) {
	f := newFixture(t)
	id := f.addCard(t)
	f.cards.OnStateChanged(tvOn)

	resp, body := f.do(t, http.MethodPost, "/cards/"+id+"/controls/power/press?wait=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, []string{"media_player.turn_off"}, f.ha.Calls())

	resp, _ = f.do(t, http.MethodPost, "/cards/"+id+"/bars/0/buttons/0/press?wait=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "media_player.play_media", f.ha.Calls()[1])

	resp, _ = f.do(t, http.MethodPost, "/cards/"+id+"/bars/x/buttons/0/press", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvokeAction(t *testing.T) {
	f := newFixture(t)
	id := f.addCard(t)
	f.cards.OnStateChanged(tvOn)

	resp, _ := f.do(t, http.MethodPost, "/cards/"+id+"/actions/teleport", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/cards/"+id+"/actions/volume_set?wait=true", `{"args":["40"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"media_player.volume_set"}, f.ha.Calls())

	off := tvOn
	off.State = model.StateOff
	f.cards.OnStateChanged(off)
	resp, body := f.do(t, http.MethodPost, "/cards/"+id+"/actions/mute", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "control is disabled")
	assert.Len(t, f.ha.Calls(), 1)
}

func TestDuplicatePress(t *testing.T) {
	f := newFixture(t)
	id := f.addCard(t)
	f.cards.OnStateChanged(tvOn)
	gate := make(chan struct{})
	f.ha.mu.Lock()
	f.ha.gate = gate
	f.ha.mu.Unlock()

	resp, _ := f.do(t, http.MethodPost, "/cards/"+id+"/controls/mute/press", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp, body := f.do(t, http.MethodPost, "/cards/"+id+"/controls/mute/press", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "action is performing")

	close(gate)
	card, err := f.cards.Card(id)
	require.NoError(t, err)
	card.Wait()
	assert.Len(t, f.ha.Calls(), 1)
}

func TestAdminEntities(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/admin/ha-entities", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entities []ports.HomeAssistantEntity
	require.NoError(t, json.Unmarshal(body, &entities))
	require.Len(t, entities, 1)
	assert.Equal(t, "media_player.tv", entities[0].EntityID)
}

func TestHueAPI(t *testing.T) {
	f := newFixture(t)
	f.addCard(t)
	f.cards.OnStateChanged(tvOn)

	resp, body := f.do(t, http.MethodGet, "/description.xml", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "10.0.0.2")

	resp, body = f.do(t, http.MethodPost, "/api", `{"devicetype":"echo"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "admin")

	resp, body = f.do(t, http.MethodGet, "/api/admin/lights", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lights map[string]map[string]any
	require.NoError(t, json.Unmarshal(body, &lights))
	require.Contains(t, lights, "1")
	assert.Equal(t, "Lounge", lights["1"]["name"])

	resp, _ = f.do(t, http.MethodGet, "/api/admin/lights/9", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = f.do(t, http.MethodPut, "/api/admin/lights/1/state", `{"bri":254}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/lights/1/state/bri")
	assert.Eventually(t, func() bool {
		calls := f.ha.Calls()
		return len(calls) == 1 && calls[0] == "media_player.volume_set"
	}, 2*time.Second, 10*time.Millisecond)
}
