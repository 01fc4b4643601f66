package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	appmw "menu-service/internal/middleware"
	"menu-service/internal/model"
	"menu-service/pkg/database"
	"menu-service/pkg/logger"
	"menu-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MenuItemRequest carries the mutable menu item fields. Pointer fields
// distinguish "absent" from zero values so partial updates only touch what
// the caller supplied. The company reference is create-only.
type MenuItemRequest struct {
	CompanyID   *uint    `json:"company_id"`
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	ImageURL    *string  `json:"image_url"`
	IsAvailable *bool    `json:"is_available"`
}

// CreateMenuItem creates a menu item under a company owned by the caller.
// Validation and the ownership check both complete before anything is
// written.
func CreateMenuItem(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMenuItemOperation("create")

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		prometheus.RecordAuthError("missing_user_context")
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}

	var req MenuItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse menu item creation request", zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, codeValidationFailed, "invalid request")
	}

	details := map[string]string{}
	if req.CompanyID == nil || *req.CompanyID == 0 {
		details["company_id"] = "is required"
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		details["name"] = "is required"
	} else if len(*req.Name) > 100 {
		details["name"] = "must be at most 100 characters"
	}
	if req.Price == nil {
		details["price"] = "is required"
	} else if *req.Price < 0 {
		details["price"] = "must be a non-negative number"
	}
	if req.Category != nil && len(*req.Category) > 50 {
		details["category"] = "must be at most 50 characters"
	}
	if req.Description != nil && len(*req.Description) > 500 {
		details["description"] = "must be at most 500 characters"
	}
	if len(details) > 0 {
		return validationJSON(c, details)
	}

	ownerID, err := appmw.ResolveCompanyOwner(database.GetDB(), *req.CompanyID)
	if err != nil {
		if errors.Is(err, appmw.ErrOwnerNotFound) {
			log.Warn("Menu item creation for missing company", zap.Uint("company_id", *req.CompanyID))
			return errorJSON(c, http.StatusNotFound, codeNotFound, "company not found")
		}
		log.Error("Failed to resolve company owner", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "database error")
	}
	if ownerID != userID {
		log.Warn("Cross-tenant menu item creation attempt",
			zap.Uint("requesting_user_id", userID),
			zap.Uint("company_id", *req.CompanyID))
		prometheus.RecordAuthError("ownership_denied")
		return errorJSON(c, http.StatusForbidden, codeForbidden, "you can only add items to your own company")
	}

	item := model.MenuItem{
		CompanyID:   *req.CompanyID,
		Name:        strings.TrimSpace(*req.Name),
		Price:       *req.Price,
		Category:    "General",
		IsAvailable: true,
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		item.Category = strings.TrimSpace(*req.Category)
	}
	if req.ImageURL != nil {
		item.ImageURL = *req.ImageURL
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&item); result.Error != nil {
		log.Error("Failed to create menu item", zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "menu item creation failed")
	}

	log.Info("Menu item created",
		zap.Uint("menu_item_id", item.ID),
		zap.Uint("company_id", item.CompanyID),
		zap.String("name", item.Name))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "Menu item created successfully",
		"menu_item": item,
	})
}

// ListCompanyMenuItems lists a company's menu items with optional category
// and availability filters, ordered by category then name.
func ListCompanyMenuItems(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMenuItemOperation("list")

	companyID := c.Param("companyId")

	query := database.GetDB().Where("company_id = ?", companyID)

	if category := c.QueryParam("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if available := c.QueryParam("available"); available != "" {
		parsed, err := strconv.ParseBool(available)
		if err != nil {
			return validationJSON(c, map[string]string{"available": "must be true or false"})
		}
		query = query.Where("is_available = ?", parsed)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var items []model.MenuItem
	if result := query.Order("category, name").Find(&items); result.Error != nil {
		log.Error("Failed to list menu items", zap.String("company_id", companyID), zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "failed to retrieve menu items")
	}

	return c.JSON(http.StatusOK, echo.Map{"menu_items": items})
}

// GetMenuItem retrieves a single menu item. The ownership guard has already
// resolved the item's owner before this runs.
func GetMenuItem(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMenuItemOperation("get")

	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var item model.MenuItem
	if result := database.GetDB().First(&item, "id = ?", id); result.Error != nil {
		log.Warn("Menu item not found", zap.String("menu_item_id", id))
		return errorJSON(c, http.StatusNotFound, codeNotFound, "menu item not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"menu_item": item})
}

// UpdateMenuItem applies a partial update to a menu item. company_id is
// immutable and silently ignored when supplied.
func UpdateMenuItem(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMenuItemOperation("update")

	id := c.Param("id")

	var req MenuItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse menu item update request", zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, codeValidationFailed, "invalid request")
	}

	details := map[string]string{}
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 100 {
			details["name"] = "must be between 1 and 100 characters"
		}
		updates["name"] = name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			details["price"] = "must be a non-negative number"
		}
		updates["price"] = *req.Price
	}
	if req.Description != nil {
		if len(*req.Description) > 500 {
			details["description"] = "must be at most 500 characters"
		}
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if len(category) > 50 {
			details["category"] = "must be at most 50 characters"
		}
		if category == "" {
			category = "General"
		}
		updates["category"] = category
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}
	if len(details) > 0 {
		return validationJSON(c, details)
	}
	if len(updates) == 0 {
		return validationJSON(c, map[string]string{"body": "no fields to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Model(&model.MenuItem{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		log.Error("Failed to update menu item", zap.String("menu_item_id", id), zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "menu item update failed")
	}
	if result.RowsAffected == 0 {
		log.Warn("Menu item vanished before update", zap.String("menu_item_id", id))
		return errorJSON(c, http.StatusNotFound, codeNotFound, "menu item not found")
	}

	var item model.MenuItem
	if result := database.GetDB().First(&item, "id = ?", id); result.Error != nil {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "menu item not found")
	}

	log.Info("Menu item updated", zap.String("menu_item_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Menu item updated successfully",
		"menu_item": item,
	})
}

// DeleteMenuItem hard-deletes a menu item. A concurrent double delete sees
// zero affected rows and reports not_found.
func DeleteMenuItem(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMenuItemOperation("delete")

	id := c.Param("id")

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().Delete(&model.MenuItem{}, "id = ?", id)
	if result.Error != nil {
		log.Error("Failed to delete menu item", zap.String("menu_item_id", id), zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "menu item deletion failed")
	}
	if result.RowsAffected == 0 {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "menu item not found")
	}

	log.Info("Menu item deleted", zap.String("menu_item_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Menu item deleted successfully"})
}
