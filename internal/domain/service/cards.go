package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/amimof/huego"
	"github.com/google/uuid"
	"media-player-card/internal/domain/dispatch"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/domain/translator"
	"media-player-card/internal/ports"
)

var (
	ErrCardNotFound  = errors.New("card not found")
	ErrNotConfigured = errors.New("Home Assistant is not configured")
)

// CardService hosts the configured cards and routes Home Assistant state
// changes to them.
type CardService struct {
	haPort            ports.HomeAssistantPort
	repo              ports.StoreRepository
	translatorFactory *translator.Factory
	opts              CardOptions
	logger            *slog.Logger

	mu    sync.RWMutex
	cards map[string]*Card
	order []string
}

func NewCardService(haPort ports.HomeAssistantPort, repo ports.StoreRepository, opts CardOptions) *CardService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Host == nil {
		opts.Host = haPort
	}
	if opts.Registry == nil {
		opts.Registry = haPort
	}
	return &CardService{
		haPort:            haPort,
		repo:              repo,
		translatorFactory: translator.NewFactory(),
		opts:              opts,
		logger:            opts.Logger,
		cards:             make(map[string]*Card),
	}
}

// Load builds the cards of the persisted store, then adds the seed cards whose
// id is not stored yet. A seed card without an id gets one derived from its
// content. Stored cards that fail validation are logged and skipped.
func (s *CardService) Load(ctx context.Context, seed []*model.CardConfig) error {
	store, err := s.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading store: %w", err)
	}
	if store.HassURL != "" && store.HassToken != "" {
		s.haPort.Configure(store.HassURL, store.HassToken)
	}

	s.mu.Lock()
	clear(s.cards)
	s.order = s.order[:0]
	for _, cfg := range store.Cards {
		if _, err := s.addLocked(cfg); err != nil {
			s.logger.Error("rejecting stored card", "entity", cfg.Entity, "error", err)
		}
	}
	seeded := 0
	seen := map[string]int{}
	for _, cfg := range seed {
		if cfg.ID == "" {
			cfg = cfg.Clone()
			cfg.ID = seedID(cfg, seen)
		}
		if _, exists := s.cards[cfg.ID]; exists {
			continue
		}
		if _, err := s.addLocked(cfg); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("seeding card %s: %w", cfg.Entity, err)
		}
		seeded++
	}
	s.mu.Unlock()

	s.logger.Info("cards loaded", "stored", len(store.Cards), "seeded", seeded)
	if seeded > 0 {
		return s.persist(ctx)
	}
	return nil
}

var seedNamespace = uuid.MustParse("6f1c2a4e-3b7d-4c59-9a0e-8d2f5b1e7c34")

// seedID derives the id of a seed card from its content, so a cards file maps
// to the same cards on every start. Identical cards are told apart by their
// occurrence count.
func seedID(cfg *model.CardConfig, seen map[string]int) string {
	data, _ := json.Marshal(cfg)
	key := string(data)
	n := seen[key]
	seen[key]++
	return uuid.NewSHA1(seedNamespace, fmt.Appendf(data, "#%d", n)).String()
}

func (s *CardService) addLocked(cfg *model.CardConfig) (*Card, error) {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	card, err := NewCard(id, cfg, s.opts)
	if err != nil {
		return nil, err
	}
	if _, exists := s.cards[id]; !exists {
		s.order = append(s.order, id)
	}
	s.cards[id] = card
	return card, nil
}

// Cards returns the cards in configuration order.
func (s *CardService) Cards() []*Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cards := make([]*Card, 0, len(s.order))
	for _, id := range s.order {
		cards = append(cards, s.cards[id])
	}
	return cards
}

func (s *CardService) Card(id string) (*Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return card, nil
}

// AddCard validates and stores a new card. A nil config adds the stub card.
func (s *CardService) AddCard(ctx context.Context, cfg *model.CardConfig) (*Card, error) {
	if cfg == nil {
		cfg = model.StubCardConfig()
	}
	cfg = cfg.Clone()
	cfg.ID = ""

	s.mu.Lock()
	card, err := s.addLocked(cfg)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	s.seedSnapshot(ctx, card)
	return card, nil
}

func (s *CardService) UpdateCard(ctx context.Context, id string, cfg *model.CardConfig) error {
	card, err := s.Card(id)
	if err != nil {
		return err
	}
	previous := card.Entity()
	if err := card.SetConfig(cfg); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}
	if card.Entity() != previous {
		s.seedSnapshot(ctx, card)
	}
	return nil
}

func (s *CardService) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.cards[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	delete(s.cards, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	s.mu.Unlock()
	return s.persist(ctx)
}

func (s *CardService) persist(ctx context.Context) error {
	store, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}
	cards := s.Cards()
	store.Cards = make([]*model.CardConfig, 0, len(cards))
	for _, card := range cards {
		store.Cards = append(store.Cards, card.Config())
	}
	return s.repo.Save(ctx, store)
}

// OnStateChanged hands a new entity state to every card bound to it.
func (s *CardService) OnStateChanged(snapshot model.EntitySnapshot) {
	for _, card := range s.Cards() {
		if card.SetSnapshot(snapshot) {
			s.logger.Debug("state changed", "card", card.ID(), "entity", snapshot.EntityID, "state", snapshot.State)
		}
	}
}

// RefreshStates reloads every entity state from Home Assistant.
func (s *CardService) RefreshStates(ctx context.Context) error {
	if !s.haPort.IsConfigured() {
		return ErrNotConfigured
	}
	states, err := s.haPort.GetStates(ctx)
	if err != nil {
		return err
	}
	for _, st := range states {
		s.OnStateChanged(st)
	}
	return nil
}

func (s *CardService) seedSnapshot(ctx context.Context, card *Card) {
	if !s.haPort.IsConfigured() {
		return
	}
	states, err := s.haPort.GetStates(ctx)
	if err != nil {
		s.logger.Warn("could not load states", "card", card.ID(), "error", err)
		return
	}
	for _, st := range states {
		if card.SetSnapshot(st) {
			return
		}
	}
}

func (s *CardService) GetConfig(ctx context.Context) (*model.Store, error) {
	return s.repo.Get(ctx)
}

// UpdateConfig stores new Home Assistant credentials and reconnects.
func (s *CardService) UpdateConfig(ctx context.Context, hassURL, hassToken string) error {
	store, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}
	store.HassURL = hassURL
	store.HassToken = hassToken
	if err := s.repo.Save(ctx, store); err != nil {
		return err
	}
	s.haPort.Configure(hassURL, hassToken)
	return s.RefreshStates(ctx)
}

// GetAllEntities lists the entities a card can be bound to.
func (s *CardService) GetAllEntities(ctx context.Context) ([]ports.HomeAssistantEntity, error) {
	if !s.haPort.IsConfigured() {
		return []ports.HomeAssistantEntity{}, nil
	}
	all, err := s.haPort.GetAllEntities(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]ports.HomeAssistantEntity, 0, len(all))
	for _, e := range all {
		if slices.Contains(model.SupportedDomains, model.ComputeDomain(e.EntityID)) {
			entities = append(entities, e)
		}
	}
	return entities, nil
}

// DebugCall calls "domain.service" at the card's entity moved to domain.
func (s *CardService) DebugCall(ctx context.Context, id, call string, data map[string]any) ([]model.EntitySnapshot, error) {
	card, err := s.Card(id)
	if err != nil {
		return nil, err
	}
	domain, service, ok := strings.Cut(call, ".")
	if !ok || domain == "" || service == "" {
		return nil, fmt.Errorf("%w: %q is not domain.service", dispatch.ErrInvalidCommand, call)
	}
	payload := map[string]any{"entity_id": domain + "." + model.ComputeObjectID(card.Entity())}
	for k, v := range data {
		payload[k] = v
	}
	result, err := s.haPort.CallService(ctx, domain, service, payload)
	if err != nil {
		s.logger.Warn("debug call failed", "card", id, "call", call, "error", err)
		return nil, err
	}
	s.logger.Info("debug call", "card", id, "call", call, "changed", len(result))
	return result, nil
}

// GetDevices exposes every card as a Hue light, numbered from 1 in card
// order.
func (s *CardService) GetDevices(ctx context.Context) ([]*model.Device, error) {
	cards := s.Cards()
	devices := make([]*model.Device, 0, len(cards))
	for i, card := range cards {
		devices = append(devices, s.device(strconv.Itoa(i+1), card))
	}
	return devices, nil
}

func (s *CardService) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	card, err := s.cardAt(id)
	if err != nil {
		return nil, err
	}
	return s.device(id, card), nil
}

func (s *CardService) device(id string, card *Card) *model.Device {
	d := &model.Device{ID: id, CardID: card.ID(), EntityID: card.Entity()}
	f, ok := card.Facts()
	d.Name = card.Config().Title
	if d.Name == "" {
		d.Name = f.Name
	}
	if d.Name == "" {
		d.Name = card.Entity()
	}
	t := s.translatorFactory.GetTranslator(f)
	d.Metadata = t.GetMetadata()
	if !ok {
		d.State = &huego.State{Reachable: false}
		return d
	}
	d.State = t.ToHue(f)
	return d
}

func (s *CardService) cardAt(id string) (*Card, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	cards := s.Cards()
	if n < 1 || n > len(cards) {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return cards[n-1], nil
}

// UpdateDeviceState turns a Hue state update into card actions. The actions
// go through the card's engine, so a Hue request and a dashboard click cannot
// run the same single-execution action at once.
func (s *CardService) UpdateDeviceState(ctx context.Context, id string, update model.HueStateUpdate) ([]*dispatch.Pending, error) {
	card, err := s.cardAt(id)
	if err != nil {
		return nil, err
	}
	f, ok := card.Facts()
	if !ok {
		return nil, ErrNotRendered
	}
	intents := s.translatorFactory.GetTranslator(f).ToIntents(f, update)
	pending := make([]*dispatch.Pending, 0, len(intents))
	for _, in := range intents {
		pending = append(pending, card.Invoke(ctx, in.Action, in.Args...))
	}
	return pending, nil
}
