package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/menucraft/api/internal/database"
	"github.com/shopspring/decimal"
)

const (
	DefaultCategoryIcon  = "🍽️"
	DefaultCategoryColor = "#f97316"
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// CatalogStore defines the DB methods needed for categories and menu items.
// Satisfied by *database.Queries; narrow interface for testability.
type CatalogStore interface {
	ListCategories(ctx context.Context, tenantID string) ([]database.Category, error)
	GetCategory(ctx context.Context, arg database.GetCategoryParams) (database.Category, error)
	NextCategoryOrder(ctx context.Context, tenantID string) (int32, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	DeleteCategory(ctx context.Context, arg database.DeleteCategoryParams) (uuid.UUID, error)
	CountMenuItemsByCategory(ctx context.Context, arg database.CountMenuItemsByCategoryParams) (int64, error)

	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, arg database.DeleteMenuItemParams) (uuid.UUID, error)
}

// CatalogService validates and persists categories and menu items.
type CatalogService struct {
	store CatalogStore
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// --- Inputs ---

// MenuItemInput is a new menu item. A nil Price means the price is missing.
type MenuItemInput struct {
	CategoryID   uuid.UUID
	Name         string
	Description  string
	Price        *decimal.Decimal
	IsVegetarian bool
	IsSpicy      bool
	InStock      *bool
	ImageURL     string
	Allergens    []string
}

// MenuItemPatch is a partial update. Nil fields are left untouched.
// An empty ImageURL clears the image.
type MenuItemPatch struct {
	CategoryID   *uuid.UUID
	Name         *string
	Description  *string
	Price        *decimal.Decimal
	IsVegetarian *bool
	IsSpicy      *bool
	InStock      *bool
	ImageURL     *string
	Allergens    []string
}

type CategoryInput struct {
	Name         string
	Icon         string
	Color        string
	DisplayOrder *int32
	IsActive     *bool
}

type CategoryPatch struct {
	Name         *string
	Icon         *string
	Color        *string
	DisplayOrder *int32
	IsActive     *bool
}

// --- Menu items ---

func (s *CatalogService) ListMenuItems(ctx context.Context, tenantID string, categoryID *uuid.UUID) ([]database.MenuItem, error) {
	params := database.ListMenuItemsParams{TenantID: tenantID}
	if categoryID != nil {
		params.CategoryID = pgtype.UUID{Bytes: *categoryID, Valid: true}
	}
	items, err := s.store.ListMenuItems(ctx, params)
	if err != nil {
		return nil, backend("load menu items", err)
	}
	return items, nil
}

// AddMenuItem validates and stores a new menu item. Strings are trimmed and
// stock defaults to available.
func (s *CatalogService) AddMenuItem(ctx context.Context, tenantID string, in MenuItemInput) (database.MenuItem, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)

	switch {
	case name == "":
		return database.MenuItem{}, invalid("name", "name is required")
	case description == "":
		return database.MenuItem{}, invalid("description", "description is required")
	case in.Price == nil:
		return database.MenuItem{}, invalid("price", "price is required")
	case in.Price.IsNegative():
		return database.MenuItem{}, invalid("price", "price must be >= 0")
	case in.Price.Round(2).GreaterThan(MaxAmount):
		return database.MenuItem{}, invalid("price", "price must be <= "+MaxAmount.StringFixed(2))
	case in.CategoryID == uuid.Nil:
		return database.MenuItem{}, invalid("category_id", "category is required")
	}

	if err := s.requireCategory(ctx, tenantID, in.CategoryID); err != nil {
		return database.MenuItem{}, err
	}

	inStock := true
	if in.InStock != nil {
		inStock = *in.InStock
	}

	item, err := s.store.CreateMenuItem(ctx, database.CreateMenuItemParams{
		TenantID:     tenantID,
		CategoryID:   in.CategoryID,
		Name:         name,
		Description:  description,
		Price:        database.DecimalToNumeric(*in.Price),
		IsVegetarian: in.IsVegetarian,
		IsSpicy:      in.IsSpicy,
		InStock:      inStock,
		ImageUrl:     optionalText(in.ImageURL),
		Allergens:    cleanAllergens(in.Allergens),
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return database.MenuItem{}, invalid("category_id", "category does not exist")
		}
		return database.MenuItem{}, backend("add menu item", err)
	}
	return item, nil
}

// UpdateMenuItem applies a partial update. Present fields are validated the
// same way AddMenuItem validates them.
func (s *CatalogService) UpdateMenuItem(ctx context.Context, tenantID string, id uuid.UUID, p MenuItemPatch) (database.MenuItem, error) {
	params := database.UpdateMenuItemParams{ID: id, TenantID: tenantID}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return database.MenuItem{}, invalid("name", "name cannot be empty")
		}
		params.Name = pgtype.Text{String: name, Valid: true}
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc == "" {
			return database.MenuItem{}, invalid("description", "description cannot be empty")
		}
		params.Description = pgtype.Text{String: desc, Valid: true}
	}
	if p.Price != nil {
		if p.Price.IsNegative() {
			return database.MenuItem{}, invalid("price", "price must be >= 0")
		}
		if p.Price.Round(2).GreaterThan(MaxAmount) {
			return database.MenuItem{}, invalid("price", "price must be <= "+MaxAmount.StringFixed(2))
		}
		params.Price = database.DecimalToNumeric(*p.Price)
	}
	if p.CategoryID != nil {
		if *p.CategoryID == uuid.Nil {
			return database.MenuItem{}, invalid("category_id", "category cannot be empty")
		}
		if err := s.requireCategory(ctx, tenantID, *p.CategoryID); err != nil {
			return database.MenuItem{}, err
		}
		params.CategoryID = pgtype.UUID{Bytes: *p.CategoryID, Valid: true}
	}
	if p.IsVegetarian != nil {
		params.IsVegetarian = pgtype.Bool{Bool: *p.IsVegetarian, Valid: true}
	}
	if p.IsSpicy != nil {
		params.IsSpicy = pgtype.Bool{Bool: *p.IsSpicy, Valid: true}
	}
	if p.InStock != nil {
		params.InStock = pgtype.Bool{Bool: *p.InStock, Valid: true}
	}
	if p.ImageURL != nil {
		params.SetImageUrl = true
		params.ImageUrl = optionalText(*p.ImageURL)
	}
	if p.Allergens != nil {
		params.SetAllergens = true
		params.Allergens = cleanAllergens(p.Allergens)
	}

	item, err := s.store.UpdateMenuItem(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.MenuItem{}, notFound("menu item")
		}
		if isForeignKeyViolation(err) {
			return database.MenuItem{}, invalid("category_id", "category does not exist")
		}
		return database.MenuItem{}, backend("update menu item", err)
	}
	return item, nil
}

// SetMenuItemStock flips availability without touching other fields.
func (s *CatalogService) SetMenuItemStock(ctx context.Context, tenantID string, id uuid.UUID, inStock bool) (database.MenuItem, error) {
	return s.UpdateMenuItem(ctx, tenantID, id, MenuItemPatch{InStock: &inStock})
}

func (s *CatalogService) DeleteMenuItem(ctx context.Context, tenantID string, id uuid.UUID) error {
	_, err := s.store.DeleteMenuItem(ctx, database.DeleteMenuItemParams{ID: id, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("menu item")
		}
		return backend("delete menu item", err)
	}
	return nil
}

// --- Categories ---

// ListCategories returns all categories, active or not, by display order then name.
func (s *CatalogService) ListCategories(ctx context.Context, tenantID string) ([]database.Category, error) {
	cats, err := s.store.ListCategories(ctx, tenantID)
	if err != nil {
		return nil, backend("load categories", err)
	}
	return cats, nil
}

// AddCategory stores a new category, defaulting icon, color, active flag and
// display order (one past the current maximum).
func (s *CatalogService) AddCategory(ctx context.Context, tenantID string, in CategoryInput) (database.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return database.Category{}, invalid("name", "category name is required")
	}

	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		icon = DefaultCategoryIcon
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = DefaultCategoryColor
	}
	if !hexColor.MatchString(color) {
		return database.Category{}, invalid("color", "color must be a hex value like #f97316")
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	var order int32
	if in.DisplayOrder != nil {
		order = *in.DisplayOrder
	} else {
		next, err := s.store.NextCategoryOrder(ctx, tenantID)
		if err != nil {
			return database.Category{}, backend("add category", err)
		}
		order = next
	}

	cat, err := s.store.CreateCategory(ctx, database.CreateCategoryParams{
		TenantID:     tenantID,
		Name:         name,
		Icon:         icon,
		Color:        color,
		DisplayOrder: order,
		IsActive:     isActive,
	})
	if err != nil {
		return database.Category{}, backend("add category", err)
	}
	return cat, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, tenantID string, id uuid.UUID, p CategoryPatch) (database.Category, error) {
	params := database.UpdateCategoryParams{ID: id, TenantID: tenantID}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return database.Category{}, invalid("name", "category name cannot be empty")
		}
		params.Name = pgtype.Text{String: name, Valid: true}
	}
	if p.Icon != nil {
		icon := strings.TrimSpace(*p.Icon)
		if icon == "" {
			icon = DefaultCategoryIcon
		}
		params.Icon = pgtype.Text{String: icon, Valid: true}
	}
	if p.Color != nil {
		color := strings.TrimSpace(*p.Color)
		if !hexColor.MatchString(color) {
			return database.Category{}, invalid("color", "color must be a hex value like #f97316")
		}
		params.Color = pgtype.Text{String: color, Valid: true}
	}
	if p.DisplayOrder != nil {
		params.DisplayOrder = pgtype.Int4{Int32: *p.DisplayOrder, Valid: true}
	}
	if p.IsActive != nil {
		params.IsActive = pgtype.Bool{Bool: *p.IsActive, Valid: true}
	}

	cat, err := s.store.UpdateCategory(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Category{}, notFound("category")
		}
		return database.Category{}, backend("update category", err)
	}
	return cat, nil
}

// SetCategoryActive shows or hides a category on the customer menu.
func (s *CatalogService) SetCategoryActive(ctx context.Context, tenantID string, id uuid.UUID, active bool) (database.Category, error) {
	return s.UpdateCategory(ctx, tenantID, id, CategoryPatch{IsActive: &active})
}

// DeleteCategory refuses to delete a category that menu items still
// reference. The FK constraint covers items added between the count and the delete.
func (s *CatalogService) DeleteCategory(ctx context.Context, tenantID string, id uuid.UUID) error {
	count, err := s.store.CountMenuItemsByCategory(ctx, database.CountMenuItemsByCategoryParams{
		TenantID:   tenantID,
		CategoryID: id,
	})
	if err != nil {
		return backend("delete category", err)
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	_, err = s.store.DeleteCategory(ctx, database.DeleteCategoryParams{ID: id, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("category")
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryInUse
		}
		return backend("delete category", err)
	}
	return nil
}

// --- Helpers ---

// requireCategory checks the category exists within the tenant; the FK alone
// would accept another tenant's category.
func (s *CatalogService) requireCategory(ctx context.Context, tenantID string, id uuid.UUID) error {
	_, err := s.store.GetCategory(ctx, database.GetCategoryParams{ID: id, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invalid("category_id", "category does not exist")
		}
		return backend("load category", err)
	}
	return nil
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func cleanAllergens(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
