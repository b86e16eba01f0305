package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// SubscriptionCache loads subscription seed files (one YAML document per
// file) from a directory and keeps them in memory. Seeds are upserted into
// the store at startup; the cache itself is read-only afterwards.
type SubscriptionCache struct {
	dir   string
	cache map[string]*Subscription
	mu    sync.RWMutex
}

func NewSubscriptionCache(dir string) *SubscriptionCache {
	return &SubscriptionCache{
		dir:   dir,
		cache: make(map[string]*Subscription),
	}
}

func (sc *SubscriptionCache) Run() error {
	if _, err := os.Stat(sc.dir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(sc.dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		sub, err := sc.LoadFile(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Subscription seed loaded", "id", sub.ID, "type", sub.Type, "active", sub.Active)
	}

	return nil
}

func (sc *SubscriptionCache) LoadFile(name string) (*Subscription, error) {
	path := filepath.Join(sc.dir, name+".yml")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription file: %w", err)
	}

	var sub Subscription
	if err := yaml.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sub.ID == "" {
		sub.ID = name
	}

	if err := validateSubscription(&sub); err != nil {
		return nil, fmt.Errorf("invalid subscription %s: %w", path, err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache[sub.ID] = &sub

	return &sub, nil
}

func (sc *SubscriptionCache) Get(id string) (*Subscription, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sub, ok := sc.cache[id]
	if !ok {
		return nil, fmt.Errorf("subscription with id '%s' not found", id)
	}
	return sub, nil
}

func (sc *SubscriptionCache) All() []*Subscription {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	subs := make([]*Subscription, 0, len(sc.cache))
	for _, sub := range sc.cache {
		subs = append(subs, sub)
	}
	return subs
}

func (sc *SubscriptionCache) Count() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.cache)
}

func validateSubscription(sub *Subscription) error {
	switch sub.Type {
	case SubscriptionRSS, SubscriptionYouTube:
		if sub.URL == "" {
			return fmt.Errorf("url is required for %s subscriptions", sub.Type)
		}
	case SubscriptionInterval:
		if sub.IntervalSeconds < 60 {
			return fmt.Errorf("interval_seconds must be at least 60, got %d", sub.IntervalSeconds)
		}
	default:
		return fmt.Errorf("unknown subscription type '%s'", sub.Type)
	}

	switch sub.Schedule.Type {
	case "", ScheduleImmediate, ScheduleNever, ScheduleEveryNHours, ScheduleDaysAndTimes:
	default:
		return fmt.Errorf("unknown schedule type '%s'", sub.Schedule.Type)
	}

	if sub.Schedule.Type == "" {
		sub.Schedule.Type = ScheduleImmediate
	}

	return nil
}
