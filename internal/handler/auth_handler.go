package handler

import (
	"net/http"
	"strings"
	"time"

	"menu-service/internal/model"
	"menu-service/pkg/database"
	"menu-service/pkg/jwtutil"
	"menu-service/pkg/logger"
	"menu-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a new user account and issues a session token.
func Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return errorJSON(c, http.StatusBadRequest, codeValidationFailed, "invalid request")
	}

	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)

	details := map[string]string{}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		details["email"] = "a valid email is required"
	}
	if len(req.Password) < 6 {
		details["password"] = "must be at least 6 characters"
	}
	if req.FirstName == "" {
		details["first_name"] = "is required"
	}
	if len(details) > 0 {
		prometheus.RecordAuthError("incomplete_registration")
		return validationJSON(c, details)
	}

	// Check if user already exists
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existingUser model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&existingUser)
	if result.Error == nil {
		log.Warn("User already exists", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return errorJSON(c, http.StatusConflict, codeConflict, "email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "registration failed")
	}

	user := model.User{
		Email:            req.Email,
		Password:         string(hashedPassword),
		FirstName:        req.FirstName,
		IsFirstLogin:     true,
		SubscriptionTier: "Free",
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		prometheus.RecordAuthError("user_creation_failed")
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "registration failed")
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, user.FirstName, nil, user.SubscriptionTier)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "token error")
	}

	prometheus.IncreaseActiveTokens()
	log.Info("User registered", zap.String("email", user.Email), zap.Uint("user_id", user.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user":    userPayload(&user, ""),
		"token":   token,
	})
}

// Login verifies a user's credentials and issues a session token. Unknown
// email and wrong password produce the identical response so callers cannot
// enumerate accounts.
func Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return errorJSON(c, http.StatusBadRequest, codeValidationFailed, "invalid request")
	}

	req.Email = normalizeEmail(req.Email)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Warn("Login with unknown email", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "invalid email or password")
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, user.FirstName, user.CompanyID, user.SubscriptionTier)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "token error")
	}

	prometheus.IncreaseActiveTokens()

	companyName := ""
	if user.CompanyID != nil {
		var company model.Company
		if result := database.GetDB().Select("name").First(&company, *user.CompanyID); result.Error == nil {
			companyName = company.Name
		}
	}

	log.Info("User logged in", zap.String("email", user.Email), zap.Uint("user_id", user.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"user":    userPayload(&user, companyName),
		"token":   token,
	})
}

// GetProfile returns the authenticated user's profile.
func GetProfile(c echo.Context) error {
	log := logger.FromEcho(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		prometheus.RecordAuthError("missing_user_context")
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		log.Error("User not found", zap.Uint("user_id", userID))
		prometheus.RecordAuthError("user_not_found")
		return errorJSON(c, http.StatusNotFound, codeNotFound, "user not found")
	}

	companyName := ""
	if user.CompanyID != nil {
		var company model.Company
		if result := database.GetDB().Select("name").First(&company, *user.CompanyID); result.Error == nil {
			companyName = company.Name
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user": userPayload(&user, companyName),
	})
}

// ChangePassword rotates the authenticated user's password after verifying
// the current one.
func ChangePassword(c echo.Context) error {
	log := logger.FromEcho(c)

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		log.Error("Failed to get user ID from context")
		prometheus.RecordAuthError("missing_user_context")
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse change password request", zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, codeValidationFailed, "invalid request")
	}

	if len(req.NewPassword) < 6 {
		return validationJSON(c, map[string]string{"new_password": "must be at least 6 characters"})
	}

	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		log.Error("User not found", zap.Uint("user_id", userID))
		return errorJSON(c, http.StatusNotFound, codeNotFound, "user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		log.Warn("Wrong current password on change attempt", zap.Uint("user_id", userID))
		prometheus.RecordAuthError("invalid_password")
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "password change failed")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		log.Error("Failed to update password", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, codeInternal, "password change failed")
	}

	log.Info("Password changed", zap.Uint("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}

// Logout is advisory only: tokens are stateless and stay valid until expiry,
// the client simply discards its copy.
func Logout(c echo.Context) error {
	prometheus.DecreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userPayload(user *model.User, companyName string) map[string]interface{} {
	payload := map[string]interface{}{
		"id":                user.ID,
		"email":             user.Email,
		"first_name":        user.FirstName,
		"company_id":        user.CompanyID,
		"is_first_login":    user.IsFirstLogin,
		"subscription_tier": user.SubscriptionTier,
	}
	if companyName != "" {
		payload["company_name"] = companyName
	}
	return payload
}
