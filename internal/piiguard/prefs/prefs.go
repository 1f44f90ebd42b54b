// Package prefs persists per-user dashboard preferences in a local SQLite
// database.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
)

// UserPreference is one user's stored preferences.
type UserPreference struct {
	UserID string `gorm:"primaryKey;type:text" json:"user_id"`
	// CensorPii hides PII even from viewers allowed to see it.
	CensorPii bool `gorm:"not null" json:"censor_pii"`
	// DarkModeOverride is nil to follow the system theme.
	DarkModeOverride *bool `json:"dark_mode_override"`
	// AdditionalPreferences is a JSON document, or empty.
	AdditionalPreferences string    `gorm:"type:text" json:"additional_preferences,omitempty"`
	LastUpdated           time.Time `gorm:"not null" json:"last_updated"`
}

var ErrInvalidPreference = errors.New("invalid preference")

// Service reads and writes UserPreference rows.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

// Open creates or opens the SQLite database at path and migrates it.
func Open(ctx context.Context, path string) (*Service, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // single writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	svc, err := New(ctx, db)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	logger.L().Debugw("Opened preferences database", "path", path)
	return svc, nil
}

// New wraps an existing gorm handle and migrates the preferences table.
func New(ctx context.Context, db *gorm.DB) (*Service, error) {
	if err := db.WithContext(ctx).AutoMigrate(&UserPreference{}); err != nil {
		return nil, fmt.Errorf("failed to migrate preferences: %w", err)
	}
	return &Service{
		db:  db,
		log: logger.L(),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Get returns the user's preferences; ok is false if none are stored.
func (s *Service) Get(ctx context.Context, userID string) (UserPreference, bool, error) {
	var p UserPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UserPreference{}, false, nil
	}
	if err != nil {
		return UserPreference{}, false, fmt.Errorf("load preferences: %w", err)
	}
	return p, true, nil
}

// CensorPii reports the user's censor preference. Users without stored
// preferences are not censored beyond what their roles require.
func (s *Service) CensorPii(ctx context.Context, userID string) (bool, error) {
	p, ok, err := s.Get(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return p.CensorPii, nil
}

// Save inserts or replaces the user's preferences and stamps LastUpdated.
func (s *Service) Save(ctx context.Context, p UserPreference) (UserPreference, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return UserPreference{}, fmt.Errorf("%w: user id is required", ErrInvalidPreference)
	}
	if p.AdditionalPreferences != "" && !jsoniter.Valid([]byte(p.AdditionalPreferences)) {
		return UserPreference{}, fmt.Errorf("%w: additional preferences must be JSON", ErrInvalidPreference)
	}

	p.LastUpdated = s.now()
	err := s.upsert(ctx, &p, "censor_pii", "dark_mode_override", "additional_preferences", "last_updated")
	if err != nil {
		return UserPreference{}, err
	}
	s.log.Debugw("Saved user preferences", "user_id", p.UserID)
	return p, nil
}

// SetCensorPii updates only the censor preference, creating the row if
// needed.
func (s *Service) SetCensorPii(ctx context.Context, userID string, censor bool) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidPreference)
	}
	p := UserPreference{UserID: userID, CensorPii: censor, LastUpdated: s.now()}
	if err := s.upsert(ctx, &p, "censor_pii", "last_updated"); err != nil {
		return err
	}
	s.log.Debugw("Updated censor preference", "user_id", userID, "censor_pii", censor)
	return nil
}

// SetDarkMode updates only the dark mode override; nil clears it.
func (s *Service) SetDarkMode(ctx context.Context, userID string, override *bool) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidPreference)
	}
	p := UserPreference{UserID: userID, DarkModeOverride: override, LastUpdated: s.now()}
	if err := s.upsert(ctx, &p, "dark_mode_override", "last_updated"); err != nil {
		return err
	}
	s.log.Debugw("Updated dark mode preference", "user_id", userID)
	return nil
}

func (s *Service) upsert(ctx context.Context, p *UserPreference, columns ...string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
