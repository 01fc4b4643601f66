package handler

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"menu-service/internal/model"
	"menu-service/pkg/database"
	"menu-service/pkg/logger"
	"menu-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// publicCompany is the anonymous-facing company card. Owner identity and
// other internal fields never appear here.
type publicCompany struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url"`
}

// publicMenuItem is the anonymous-facing item projection.
type publicMenuItem struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
}

func toPublicItem(item model.MenuItem) publicMenuItem {
	category := item.Category
	if category == "" {
		category = "General"
	}
	return publicMenuItem{
		ID:          item.ID,
		Name:        item.Name,
		Price:       item.Price,
		Description: item.Description,
		Category:    category,
		ImageURL:    item.ImageURL,
	}
}

// availableItems loads a company's published items ordered by category then
// name. Only is_available rows ever reach the public projection.
func availableItems(db *gorm.DB, companyID uint) ([]model.MenuItem, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var items []model.MenuItem
	result := db.Where("company_id = ? AND is_available = ?", companyID, true).
		Order("category, name").
		Find(&items)
	return items, result.Error
}

// publicMenuPayload groups available items by category. JSON object keys
// marshal in sorted order, so category ordering is alphabetical; item
// ordering within a category comes from the query (by name).
func publicMenuPayload(company *model.Company, items []model.MenuItem) echo.Map {
	menu := map[string][]publicMenuItem{}
	for _, item := range items {
		projected := toPublicItem(item)
		menu[projected.Category] = append(menu[projected.Category], projected)
	}

	categories := make([]string, 0, len(menu))
	for category := range menu {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	return echo.Map{
		"company": publicCompany{
			ID:          company.ID,
			Name:        company.Name,
			Description: company.Description,
			LogoURL:     company.LogoURL,
		},
		"menu":        menu,
		"categories":  categories,
		"total_items": len(items),
	}
}

// GetPublicMenu serves a company's published menu by company ID without
// authentication.
func GetPublicMenu(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordPublicMenuView("company_id")

	companyID := c.Param("companyId")

	var company model.Company
	if result := database.GetDB().First(&company, "id = ?", companyID); result.Error != nil {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "menu not found")
	}

	items, err := availableItems(database.GetDB(), company.ID)
	if err != nil {
		log.Error("Failed to load menu items", zap.Uint("company_id", company.ID), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "failed to retrieve menu")
	}

	return c.JSON(http.StatusOK, publicMenuPayload(&company, items))
}

// GetPublicMenuByLink serves a published menu looked up by the opaque token
// at the end of the shareable menu link. Matching on the suffix keeps old
// links working when the configured base URL changes.
func GetPublicMenuByLink(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordPublicMenuView("link_token")

	token := c.Param("token")

	var company model.Company
	result := database.GetDB().Where("menu_link LIKE ?", "%"+token).First(&company)
	if result.Error != nil {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "menu not found")
	}

	items, err := availableItems(database.GetDB(), company.ID)
	if err != nil {
		log.Error("Failed to load menu items", zap.Uint("company_id", company.ID), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "failed to retrieve menu")
	}

	return c.JSON(http.StatusOK, publicMenuPayload(&company, items))
}

// ListPublicCategories returns the sorted category names of a company's
// available items.
func ListPublicCategories(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordPublicMenuView("category")

	companyID := c.Param("companyId")

	var company model.Company
	if result := database.GetDB().Select("id").First(&company, "id = ?", companyID); result.Error != nil {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "menu not found")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var raw []string
	result := database.GetDB().Model(&model.MenuItem{}).
		Distinct("category").
		Where("company_id = ? AND is_available = ?", company.ID, true).
		Order("category").
		Pluck("category", &raw)
	if result.Error != nil {
		log.Error("Failed to list categories", zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "failed to retrieve categories")
	}

	seen := map[string]bool{}
	categories := make([]string, 0, len(raw))
	for _, category := range raw {
		if category == "" {
			category = "General"
		}
		if !seen[category] {
			seen[category] = true
			categories = append(categories, category)
		}
	}
	sort.Strings(categories)

	return c.JSON(http.StatusOK, echo.Map{
		"categories": categories,
		"count":      len(categories),
	})
}

// GetPublicItemsByCategory returns a company's available items for a single
// category, ordered by name.
func GetPublicItemsByCategory(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordPublicMenuView("category")

	companyID := c.Param("companyId")
	category := c.Param("category")

	var company model.Company
	if result := database.GetDB().Select("id").First(&company, "id = ?", companyID); result.Error != nil {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "menu not found")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var items []model.MenuItem
	result := database.GetDB().
		Where("company_id = ? AND category = ? AND is_available = ?", company.ID, category, true).
		Order("name").
		Find(&items)
	if result.Error != nil {
		log.Error("Failed to list items by category", zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "failed to retrieve menu items")
	}

	projected := make([]publicMenuItem, 0, len(items))
	for _, item := range items {
		projected = append(projected, toPublicItem(item))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"category":   category,
		"menu_items": projected,
		"count":      len(projected),
	})
}

// SearchPublicMenu searches a company's available items by name, description
// or category.
func SearchPublicMenu(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordPublicMenuView("search")

	companyID := c.Param("companyId")
	searchQuery := strings.TrimSpace(c.QueryParam("q"))
	if searchQuery == "" {
		return validationJSON(c, map[string]string{"q": "search query is required"})
	}

	var company model.Company
	if result := database.GetDB().Select("id").First(&company, "id = ?", companyID); result.Error != nil {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "menu not found")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	pattern := "%" + searchQuery + "%"
	var items []model.MenuItem
	result := database.GetDB().
		Where("company_id = ? AND is_available = ?", company.ID, true).
		Where("name LIKE ? OR description LIKE ? OR category LIKE ?", pattern, pattern, pattern).
		Order("category, name").
		Find(&items)
	if result.Error != nil {
		log.Error("Failed to search menu items", zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "failed to search menu items")
	}

	projected := make([]publicMenuItem, 0, len(items))
	for _, item := range items {
		projected = append(projected, toPublicItem(item))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"search_query": searchQuery,
		"menu_items":   projected,
		"count":        len(projected),
	})
}

// GetCompanyInfo returns the company card a QR landing page needs, including
// the menu link and the rendered QR reference but never the owner.
func GetCompanyInfo(c echo.Context) error {
	prometheus.RecordPublicMenuView("info")

	companyID := c.Param("companyId")

	var company model.Company
	if result := database.GetDB().First(&company, "id = ?", companyID); result.Error != nil {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "company not found")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"company": echo.Map{
			"id":          company.ID,
			"name":        company.Name,
			"description": company.Description,
			"logo_url":    company.LogoURL,
			"qr_code_url": company.QRCodeURL,
			"menu_link":   company.MenuLink,
		},
	})
}
