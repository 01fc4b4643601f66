package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"menu-service/internal/model"
	"menu-service/pkg/database"
	"menu-service/pkg/logger"
	"menu-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The ownership chain is the sole authorization predicate for tenant-scoped
// resources: a menu item is owned by the owner of its company, a company by
// its owner_id. Both resolvers are pure reads with no side effects; they run
// to completion before any handler mutation is attempted.

// ErrOwnerNotFound reports that the resource whose owner was being resolved
// does not exist.
var ErrOwnerNotFound = errors.New("resource not found")

// ResolveCompanyOwner returns the owner user ID of the given company, or
// ErrOwnerNotFound when the company does not exist.
func ResolveCompanyOwner(db *gorm.DB, companyID uint) (uint, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var company model.Company
	if result := db.Select("owner_id").First(&company, companyID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, ErrOwnerNotFound
		}
		return 0, result.Error
	}
	return company.OwnerID, nil
}

// ResolveMenuItemOwner resolves a menu item's owner through its parent
// company in a single join.
func ResolveMenuItemOwner(db *gorm.DB, menuItemID uint) (uint, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var ownerID uint
	result := db.Model(&model.MenuItem{}).
		Select("companies.owner_id").
		Joins("JOIN companies ON companies.id = menu_items.company_id").
		Where("menu_items.id = ?", menuItemID).
		Scan(&ownerID)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrOwnerNotFound
	}
	return ownerID, nil
}

// RequireCompanyOwnership allows the request through only when the
// authenticated user owns the company referenced by the route.
func RequireCompanyOwnership(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		userID, ok := c.Get("user_id").(uint)
		if !ok {
			log.Error("Failed to get user ID from context")
			prometheus.RecordAuthError("missing_user_context")
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"code":    "unauthorized",
				"message": "authentication required",
			})
		}

		companyID, err := pathID(c, "id", "companyId")
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"code":    "validation_failed",
				"message": "invalid company ID",
			})
		}

		ownerID, err := ResolveCompanyOwner(database.GetDB(), companyID)
		if err != nil {
			if errors.Is(err, ErrOwnerNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{
					"code":    "not_found",
					"message": "company not found",
				})
			}
			log.Error("Failed to resolve company owner", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"code":    "internal",
				"message": "database error",
			})
		}

		if ownerID != userID {
			log.Warn("Cross-tenant company access attempt",
				zap.Uint("requesting_user_id", userID),
				zap.Uint("company_id", companyID))
			prometheus.RecordAuthError("ownership_denied")
			return c.JSON(http.StatusForbidden, echo.Map{
				"code":    "forbidden",
				"message": "you can only modify your own company",
			})
		}

		return next(c)
	}
}

// RequireMenuItemOwnership allows the request through only when the
// authenticated user owns the company the menu item belongs to. Ownership is
// re-resolved on every call; prior decisions are never cached.
func RequireMenuItemOwnership(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		userID, ok := c.Get("user_id").(uint)
		if !ok {
			log.Error("Failed to get user ID from context")
			prometheus.RecordAuthError("missing_user_context")
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"code":    "unauthorized",
				"message": "authentication required",
			})
		}

		menuItemID, err := pathID(c, "id")
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"code":    "validation_failed",
				"message": "invalid menu item ID",
			})
		}

		ownerID, err := ResolveMenuItemOwner(database.GetDB(), menuItemID)
		if err != nil {
			if errors.Is(err, ErrOwnerNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{
					"code":    "not_found",
					"message": "menu item not found",
				})
			}
			log.Error("Failed to resolve menu item owner", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"code":    "internal",
				"message": "database error",
			})
		}

		if ownerID != userID {
			log.Warn("Cross-tenant menu item access attempt",
				zap.Uint("requesting_user_id", userID),
				zap.Uint("menu_item_id", menuItemID))
			prometheus.RecordAuthError("ownership_denied")
			return c.JSON(http.StatusForbidden, echo.Map{
				"code":    "forbidden",
				"message": "you can only modify menu items from your own company",
			})
		}

		return next(c)
	}
}

// pathID parses the first present path parameter among names as a uint.
func pathID(c echo.Context, names ...string) (uint, error) {
	for _, name := range names {
		raw := c.Param(name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return 0, err
		}
		return uint(id), nil
	}
	return 0, errors.New("missing id parameter")
}
