package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	appmw "menu-service/internal/middleware"
	"menu-service/internal/model"
	"menu-service/pkg/config"
	"menu-service/pkg/database"
	"menu-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestServer wires the same routes as cmd/main against an in-memory
// database so tests exercise the full middleware chain.
func newTestServer(t *testing.T) (*echo.Echo, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.Company{}, &model.MenuItem{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	database.DB = db

	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	e := echo.New()

	e.GET("/health", HealthCheck)

	auth := e.Group("/auth")
	auth.POST("/register", Register)
	auth.POST("/login", Login)
	auth.POST("/logout", Logout)

	public := e.Group("/public/menu")
	public.GET("/link/:token", GetPublicMenuByLink)
	public.GET("/:companyId", GetPublicMenu)
	public.GET("/:companyId/categories", ListPublicCategories)
	public.GET("/:companyId/category/:category", GetPublicItemsByCategory)
	public.GET("/:companyId/search", SearchPublicMenu)
	public.GET("/:companyId/info", GetCompanyInfo)

	api := e.Group("/api")
	api.Use(appmw.AuthMiddleware)

	users := api.Group("/users")
	users.GET("/profile", GetProfile)
	users.POST("/change-password", ChangePassword)

	companies := api.Group("/companies")
	companies.POST("", CreateCompany)
	companies.GET("/my/company", GetMyCompany)
	companies.GET("/:id", GetCompany)
	companies.PUT("/:id", UpdateCompany, appmw.RequireCompanyOwnership)
	companies.POST("/:id/regenerate-qr", RegenerateQRCode, appmw.RequireCompanyOwnership)

	menuItems := api.Group("/menu-items")
	menuItems.POST("", CreateMenuItem)
	menuItems.GET("/company/:companyId", ListCompanyMenuItems, appmw.RequireCompanyOwnership)
	menuItems.GET("/:id", GetMenuItem, appmw.RequireMenuItemOwnership)
	menuItems.PUT("/:id", UpdateMenuItem, appmw.RequireMenuItemOwnership)
	menuItems.DELETE("/:id", DeleteMenuItem, appmw.RequireMenuItemOwnership)

	return e, db
}

// doJSON performs a request against the test server and returns the recorder.
func doJSON(t *testing.T, e *echo.Echo, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body
}

// seedUser creates a user with the given password and returns it with a
// fresh session token.
func seedUser(t *testing.T, db *gorm.DB, email, password string) (model.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := model.User{
		Email:            email,
		Password:         string(hashed),
		FirstName:        "Test",
		IsFirstLogin:     true,
		SubscriptionTier: "Free",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, user.FirstName, user.CompanyID, user.SubscriptionTier)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return user, token
}

// seedCompany creates a company owned by the given user and links it.
func seedCompany(t *testing.T, db *gorm.DB, owner *model.User, name string) model.Company {
	t.Helper()

	company := model.Company{
		Name:     name,
		OwnerID:  owner.ID,
		MenuLink: "http://localhost:3000/menu/link-" + name,
	}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("failed to seed company: %v", err)
	}
	if err := db.Model(owner).Updates(map[string]interface{}{
		"company_id":     company.ID,
		"is_first_login": false,
	}).Error; err != nil {
		t.Fatalf("failed to link company: %v", err)
	}
	owner.CompanyID = &company.ID
	return company
}

func seedMenuItem(t *testing.T, db *gorm.DB, companyID uint, name, category string, price float64, available bool) model.MenuItem {
	t.Helper()

	if category == "" {
		category = "General"
	}
	item := model.MenuItem{
		CompanyID:   companyID,
		Name:        name,
		Price:       price,
		Category:    category,
		IsAvailable: available,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to seed menu item: %v", err)
	}
	return item
}
