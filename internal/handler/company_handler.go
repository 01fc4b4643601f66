package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"menu-service/internal/model"
	"menu-service/pkg/config"
	"menu-service/pkg/database"
	"menu-service/pkg/logger"
	"menu-service/pkg/qrutil"
	"menu-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	menuBaseURL = "http://localhost:3000"
	qrSize      = 300

	// renderQR is swapped out in tests to exercise render failures.
	renderQR = qrutil.DataURL
)

// Initialize stores the menu link and QR rendering settings.
func Initialize(cfg *config.Config) {
	menuBaseURL = strings.TrimRight(cfg.App.MenuBaseURL, "/")
	qrSize = cfg.QR.Size
}

// CreateCompany creates the caller's company. Each user owns at most one
// company: a second creation attempt is rejected with a conflict rather than
// silently updating the existing row. The company insert and the user linkage
// (company_id set, first-login flag cleared) commit as one transaction.
func CreateCompany(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordCompanyOperation("create")

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		prometheus.RecordAuthError("missing_user_context")
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		LogoURL     string `json:"logo_url"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse company creation request", zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, codeValidationFailed, "invalid request")
	}

	req.Name = strings.TrimSpace(req.Name)
	details := map[string]string{}
	if req.Name == "" {
		details["name"] = "is required"
	}
	if len(req.Name) > 100 {
		details["name"] = "must be at most 100 characters"
	}
	if len(req.Description) > 500 {
		details["description"] = "must be at most 500 characters"
	}
	if len(details) > 0 {
		return validationJSON(c, details)
	}

	// One company per owner
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.Company
	if result := database.GetDB().Where("owner_id = ?", userID).First(&existing); result.Error == nil {
		log.Warn("User already owns a company",
			zap.Uint("user_id", userID),
			zap.Uint("company_id", existing.ID))
		return errorJSON(c, http.StatusConflict, codeConflict, "user already has a company")
	}

	// Opaque public identifier embedded in the shareable menu link
	menuToken := uuid.New().String()
	menuLink := menuBaseURL + "/menu/" + menuToken

	// QR rendering is best effort: a failed render must not abort creation.
	qrCodeURL := ""
	if rendered, err := renderQR(menuLink, qrSize); err != nil {
		log.Warn("QR code generation failed, continuing without", zap.Error(err))
		prometheus.RecordQRRender("failure")
	} else {
		qrCodeURL = rendered
		prometheus.RecordQRRender("success")
	}

	company := model.Company{
		Name:        req.Name,
		Description: req.Description,
		LogoURL:     req.LogoURL,
		OwnerID:     userID,
		MenuLink:    menuLink,
		QRCodeURL:   qrCodeURL,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "database error")
	}

	if result := tx.Create(&company); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create company", zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "company creation failed")
	}

	updates := map[string]interface{}{
		"company_id":     company.ID,
		"is_first_login": false,
	}
	if result := tx.Model(&model.User{}).Where("id = ?", userID).Updates(updates); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to link company to user", zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "company creation failed")
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "company creation failed")
	}

	log.Info("Company created",
		zap.String("name", company.Name),
		zap.Uint("id", company.ID),
		zap.Uint("owner_id", company.OwnerID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Company created successfully",
		"company": company,
	})
}

// GetCompany retrieves company details by ID.
func GetCompany(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordCompanyOperation("get")

	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var company model.Company
	if result := database.GetDB().First(&company, "id = ?", id); result.Error != nil {
		log.Warn("Company not found", zap.String("company_id", id))
		return errorJSON(c, http.StatusNotFound, codeNotFound, "company not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"company": company})
}

// GetMyCompany returns the company owned by the authenticated user, if any.
func GetMyCompany(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordCompanyOperation("get")

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		prometheus.RecordAuthError("missing_user_context")
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var company model.Company
	if result := database.GetDB().Where("owner_id = ?", userID).First(&company); result.Error != nil {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "no company found for this user")
	}

	return c.JSON(http.StatusOK, echo.Map{"company": company})
}

// UpdateCompany applies a partial update to an owned company. Only supplied
// fields change. The ownership guard runs before this handler; the row can
// still vanish in between, which surfaces as not_found.
func UpdateCompany(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordCompanyOperation("update")

	id := c.Param("id")

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		LogoURL     *string `json:"logo_url"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse company update request", zap.Error(err))
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
	if req.Description != nil {
		if len(*req.Description) > 500 {
			details["description"] = "must be at most 500 characters"
		}
		updates["description"] = *req.Description
	}
	if req.LogoURL != nil {
		updates["logo_url"] = *req.LogoURL
	}
	if len(details) > 0 {
		return validationJSON(c, details)
	}
	if len(updates) == 0 {
		return validationJSON(c, map[string]string{"body": "no fields to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Model(&model.Company{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		log.Error("Failed to update company", zap.String("company_id", id), zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "company update failed")
	}
	if result.RowsAffected == 0 {
		log.Warn("Company vanished before update", zap.String("company_id", id))
		return errorJSON(c, http.StatusNotFound, codeNotFound, "company not found")
	}

	var company model.Company
	if result := database.GetDB().First(&company, "id = ?", id); result.Error != nil {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "company not found")
	}

	log.Info("Company updated", zap.String("company_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Company updated successfully",
		"company": company,
	})
}

// RegenerateQRCode re-renders the QR image for the company's existing menu
// link. A failed render is recoverable and retriable; the previously stored
// QR reference is left untouched.
func RegenerateQRCode(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordCompanyOperation("regenerate_qr")

	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var company model.Company
	if result := database.GetDB().First(&company, "id = ?", id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, codeNotFound, "company not found")
		}
		log.Error("Failed to load company", zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "database error")
	}

	qrCodeURL, err := renderQR(company.MenuLink, qrSize)
	if err != nil {
		log.Error("QR code generation failed", zap.String("company_id", id), zap.Error(err))
		prometheus.RecordQRRender("failure")
		return errorJSON(c, http.StatusServiceUnavailable, codeServiceUnavailable, "QR code rendering is temporarily unavailable, try again")
	}
	prometheus.RecordQRRender("success")

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Model(&model.Company{}).Where("id = ?", id).Update("qr_code_url", qrCodeURL)
	if result.Error != nil {
		log.Error("Failed to store QR code", zap.Error(result.Error))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "failed to update QR code")
	}
	if result.RowsAffected == 0 {
		return errorJSON(c, http.StatusNotFound, codeNotFound, "company not found")
	}

	log.Info("QR code regenerated", zap.String("company_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "QR code regenerated successfully",
		"qr_code_url": qrCodeURL,
	})
}
