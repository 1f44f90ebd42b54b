// Package filterkey hands out opaque, short-lived references to filter
// criteria so that PII (an IP, a hardware id, a username) never has to be
// placed in a URL when linking between dashboard pages.
//
// A key is only readable by the identity that created it. Lookups by any
// other identity look exactly like a missing key to the caller and are
// logged as a warning.
package filterkey

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/stats"
)

// DefaultIdleTimeout is how long a key stays readable without being accessed.
const DefaultIdleTimeout = 30 * time.Minute

const storagePrefix = "filterkey:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store maps filter keys to FilterCriteria with sliding expiration.
// It holds no state of its own beyond the injected backend and is safe for
// concurrent use.
type Store struct {
	backend ExpiringStore
	ttl     time.Duration
	log     *zap.SugaredLogger
	newKey  func() (string, error)
}

type Option func(*Store)

// WithIdleTimeout overrides DefaultIdleTimeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func NewStore(backend ExpiringStore, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ttl:     DefaultIdleTimeout,
		newKey:  NewKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.L()
	}
	return s
}

// IdleTimeout returns the sliding expiration window.
func (s *Store) IdleTimeout() time.Duration {
	return s.ttl
}

// Create stores criteria under a new key. Equal criteria still get distinct
// keys. Criteria are stored as given; callers validate input with
// FilterCriteria.Validate first. Besides an out-of-range TargetView, which
// cannot be encoded, only the random source and the backend make Create fail.
func (s *Store) Create(ctx context.Context, criteria FilterCriteria) (string, error) {
	if criteria.CreatedAt.IsZero() {
		criteria.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(criteria)
	if err != nil {
		count("create", "error")
		return "", fmt.Errorf("encode filter criteria: %w", err)
	}

	key, err := s.newKey()
	if err != nil {
		count("create", "error")
		return "", err
	}

	if err := s.backend.Set(ctx, storagePrefix+key, payload, s.ttl); err != nil {
		count("create", "error")
		return "", fmt.Errorf("store filter key: %w", err)
	}
	count("create", "ok")

	s.log.Infow("Created filter key",
		"filter_key", key,
		"user_id", criteria.OwnerID,
		"filter_type", criteria.TargetView.String())

	return key, nil
}

// Get returns the criteria stored under key when requestingOwnerID created
// it. A successful read restarts the idle window. Missing, expired and
// foreign keys all yield found == false; only backend failures return an error.
func (s *Store) Get(ctx context.Context, key, requestingOwnerID string) (FilterCriteria, bool, error) {
	if strings.TrimSpace(key) == "" {
		s.log.Warnw("Attempted to retrieve filter with empty key", "user_id", requestingOwnerID)
		count("get", "malformed")
		return FilterCriteria{}, false, nil
	}

	criteria, found, err := s.lookup(ctx, key, requestingOwnerID, "get")
	if err != nil || !found {
		return FilterCriteria{}, false, err
	}

	touched, err := s.backend.Touch(ctx, storagePrefix+key, s.ttl)
	if err != nil {
		count("get", "error")
		return FilterCriteria{}, false, fmt.Errorf("refresh filter key: %w", err)
	}
	if !touched {
		s.log.Warnw("Filter key expired during refresh", "filter_key", key, "user_id", requestingOwnerID)
		count("get", "not_found")
		return FilterCriteria{}, false, nil
	}
	count("get", "ok")

	s.log.Debugw("Retrieved filter key", "filter_key", key, "user_id", requestingOwnerID)

	return criteria, true, nil
}

// Remove deletes key. It is idempotent and performs no ownership check.
func (s *Store) Remove(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return nil
	}

	if err := s.backend.Remove(ctx, storagePrefix+key); err != nil {
		count("remove", "error")
		return fmt.Errorf("remove filter key: %w", err)
	}
	count("remove", "ok")

	s.log.Debugw("Removed filter key", "filter_key", key)
	return nil
}

// Extend restarts the idle window without returning the criteria. It applies
// the same ownership rule as Get.
func (s *Store) Extend(ctx context.Context, key, requestingOwnerID string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		count("extend", "malformed")
		return false, nil
	}

	_, found, err := s.lookup(ctx, key, requestingOwnerID, "extend")
	if err != nil || !found {
		return false, err
	}

	touched, err := s.backend.Touch(ctx, storagePrefix+key, s.ttl)
	if err != nil {
		count("extend", "error")
		return false, fmt.Errorf("extend filter key: %w", err)
	}
	if !touched {
		count("extend", "not_found")
		return false, nil
	}
	count("extend", "ok")

	s.log.Debugw("Extended filter key", "filter_key", key, "user_id", requestingOwnerID)
	return true, nil
}

// lookup loads and decodes key and enforces ownership. Log lines carry ids
// only, never the search term.
func (s *Store) lookup(ctx context.Context, key, requestingOwnerID, action string) (FilterCriteria, bool, error) {
	if !ValidKey(key) {
		s.log.Warnw("Malformed filter key", "user_id", requestingOwnerID, "action", action)
		count(action, "malformed")
		return FilterCriteria{}, false, nil
	}

	payload, found, err := s.backend.Get(ctx, storagePrefix+key)
	if err != nil {
		count(action, "error")
		return FilterCriteria{}, false, fmt.Errorf("load filter key: %w", err)
	}
	if !found {
		s.log.Warnw("Filter key not found or expired",
			"filter_key", key,
			"user_id", requestingOwnerID,
			"action", action)
		count(action, "not_found")
		return FilterCriteria{}, false, nil
	}

	var criteria FilterCriteria
	if err := json.Unmarshal(payload, &criteria); err != nil {
		count(action, "error")
		return FilterCriteria{}, false, fmt.Errorf("decode filter criteria: %w", err)
	}

	// a blank owner never matches, not even a blank requester
	if strings.TrimSpace(criteria.OwnerID) == "" ||
		subtle.ConstantTimeCompare([]byte(criteria.OwnerID), []byte(requestingOwnerID)) != 1 {
		s.log.Warnw("Filter key owner mismatch",
			"requesting_user_id", requestingOwnerID,
			"filter_key", key,
			"owner_user_id", criteria.OwnerID,
			"action", action)
		count(action, "owner_mismatch")
		return FilterCriteria{}, false, nil
	}

	return criteria, true, nil
}

func count(op, result string) {
	stats.FilterKeyOpsCounter.WithLabelValues(op, result).Inc()
}
