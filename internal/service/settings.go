package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/menucraft/api/internal/database"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// SettingsStore defines the DB methods needed for tenant settings.
// Satisfied by *database.Queries; narrow interface for testability.
type SettingsStore interface {
	GetSettings(ctx context.Context, tenantID string) (database.Setting, error)
	UpsertSettings(ctx context.Context, arg database.UpsertSettingsParams) (database.Setting, error)
}

type Theme struct {
	PrimaryColor string `json:"primary_color"`
	AccentColor  string `json:"accent_color"`
}

// Settings is the per-tenant restaurant profile, stored as one JSON document.
type Settings struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Logo        *string `json:"logo"`
	Theme       Theme   `json:"theme"`
	Currency    string  `json:"currency"`
	Timezone    string  `json:"timezone"`
	IsActive    bool    `json:"is_active"`
}

// DefaultSettings is what a tenant without a stored document sees.
func DefaultSettings(tenantID string) Settings {
	return Settings{
		Name:     tenantID,
		Theme:    Theme{PrimaryColor: "#f97316", AccentColor: "#ea580c"},
		Currency: "USD",
		Timezone: "UTC",
		IsActive: true,
	}
}

type ThemePatch struct {
	PrimaryColor *string
	AccentColor  *string
}

// SettingsPatch is merged onto the stored settings. Nil fields are kept;
// an empty Logo clears the logo.
type SettingsPatch struct {
	Name        *string
	Description *string
	Address     *string
	Phone       *string
	Email       *string
	Logo        *string
	Theme       *ThemePatch
	Currency    *string
	Timezone    *string
	IsActive    *bool
}

type SettingsService struct {
	store SettingsStore
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// GetSettings returns the stored settings, or the defaults when none exist.
func (s *SettingsService) GetSettings(ctx context.Context, tenantID string) (Settings, error) {
	row, err := s.store.GetSettings(ctx, tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultSettings(tenantID), nil
		}
		return Settings{}, backend("load settings", err)
	}

	// Start from defaults so documents written before a field existed still
	// come back complete.
	settings := DefaultSettings(tenantID)
	if err := json.Unmarshal(row.Data, &settings); err != nil {
		return Settings{}, backend("load settings", err)
	}
	return settings, nil
}

// UpdateSettings merges patch onto the current settings and stores the result.
func (s *SettingsService) UpdateSettings(ctx context.Context, tenantID string, patch SettingsPatch) (Settings, error) {
	current, err := s.GetSettings(ctx, tenantID)
	if err != nil {
		return Settings{}, err
	}

	merged, err := mergeSettings(current, patch)
	if err != nil {
		return Settings{}, err
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return Settings{}, backend("save settings", err)
	}
	if _, err := s.store.UpsertSettings(ctx, database.UpsertSettingsParams{TenantID: tenantID, Data: data}); err != nil {
		return Settings{}, backend("save settings", err)
	}
	return merged, nil
}

// IsOpen reports whether the restaurant is taking orders.
func (s *SettingsService) IsOpen(ctx context.Context, tenantID string) (bool, error) {
	settings, err := s.GetSettings(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return settings.IsActive, nil
}

// Location resolves the tenant's configured timezone, falling back to UTC.
func (s *SettingsService) Location(ctx context.Context, tenantID string) *time.Location {
	settings, err := s.GetSettings(ctx, tenantID)
	if err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func mergeSettings(cur Settings, p SettingsPatch) (Settings, error) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}

	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return Settings{}, invalid("name", "restaurant name cannot be empty")
	}
	setString(&cur.Name, p.Name)
	setString(&cur.Description, p.Description)
	setString(&cur.Address, p.Address)
	setString(&cur.Phone, p.Phone)
	setString(&cur.Email, p.Email)

	if p.Logo != nil {
		if logo := strings.TrimSpace(*p.Logo); logo == "" {
			cur.Logo = nil
		} else {
			cur.Logo = &logo
		}
	}

	if p.Theme != nil {
		if c := p.Theme.PrimaryColor; c != nil {
			if !hexColor.MatchString(*c) {
				return Settings{}, invalid("theme.primary_color", "color must be a hex value like #f97316")
			}
			cur.Theme.PrimaryColor = *c
		}
		if c := p.Theme.AccentColor; c != nil {
			if !hexColor.MatchString(*c) {
				return Settings{}, invalid("theme.accent_color", "color must be a hex value like #ea580c")
			}
			cur.Theme.AccentColor = *c
		}
	}

	if p.Currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*p.Currency))
		if !currencyCode.MatchString(code) {
			return Settings{}, invalid("currency", "currency must be a three letter code")
		}
		cur.Currency = code
	}

	if p.Timezone != nil {
		tz := strings.TrimSpace(*p.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return Settings{}, invalid("timezone", "unknown timezone")
		}
		cur.Timezone = tz
	}

	if p.IsActive != nil {
		cur.IsActive = *p.IsActive
	}
	return cur, nil
}
