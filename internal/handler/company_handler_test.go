package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"menu-service/internal/model"
)

func TestCreateCompany(t *testing.T) {
	e, db := newTestServer(t)
	user, token := seedUser(t, db, "owner@example.com", "secret123")

	t.Run("creates the company and links the owner", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/companies", token, map[string]interface{}{
			"name":        "Ada's Diner",
			"description": "Fine soups",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
		}

		company := decodeBody(t, rec)["company"].(map[string]interface{})
		menuLink, _ := company["menu_link"].(string)
		if !strings.Contains(menuLink, "/menu/") {
			t.Errorf("menu_link = %q, want an opaque /menu/ link", menuLink)
		}
		if qr, _ := company["qr_code_url"].(string); !strings.HasPrefix(qr, "data:image/png;base64,") {
			t.Errorf("qr_code_url should be a PNG data URL, got %.40q", qr)
		}

		var stored model.User
		if err := db.First(&stored, user.ID).Error; err != nil {
			t.Fatalf("failed to reload user: %v", err)
		}
		if stored.CompanyID == nil {
			t.Fatal("user not linked to the new company")
		}
		if stored.IsFirstLogin {
			t.Error("first-login flag not cleared")
		}
	})

	t.Run("second company is a conflict", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/companies", token, map[string]interface{}{
			"name": "Second Diner",
		})
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409, body %s", rec.Code, rec.Body.String())
		}
		if code := decodeBody(t, rec)["code"]; code != "conflict" {
			t.Errorf("code = %v, want conflict", code)
		}

		var count int64
		db.Model(&model.Company{}).Where("owner_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("company count = %d, want 1", count)
		}
	})

	t.Run("missing name fails validation", func(t *testing.T) {
		_, otherToken := seedUser(t, db, "other@example.com", "secret123")
		rec := doJSON(t, e, http.MethodPost, "/api/companies", otherToken, map[string]interface{}{
			"description": "No name",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestCreateCompany_QRFailureIsNonFatal(t *testing.T) {
	e, db := newTestServer(t)
	_, token := seedUser(t, db, "owner@example.com", "secret123")

	original := renderQR
	renderQR = func(url string, size int) (string, error) {
		return "", errors.New("render blew up")
	}
	t.Cleanup(func() { renderQR = original })

	rec := doJSON(t, e, http.MethodPost, "/api/companies", token, map[string]interface{}{
		"name": "Ada's Diner",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var company model.Company
	if err := db.First(&company, "name = ?", "Ada's Diner").Error; err != nil {
		t.Fatalf("company not persisted: %v", err)
	}
	if company.QRCodeURL != "" {
		t.Errorf("qr_code_url = %q, want empty after render failure", company.QRCodeURL)
	}
}

func TestGetMyCompany(t *testing.T) {
	e, db := newTestServer(t)
	user, token := seedUser(t, db, "owner@example.com", "secret123")

	t.Run("no company yet", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/companies/my/company", token, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("returns exactly the owned company", func(t *testing.T) {
		company := seedCompany(t, db, &user, "Diner")
		otherUser, _ := seedUser(t, db, "other@example.com", "secret123")
		seedCompany(t, db, &otherUser, "Other Diner")

		rec := doJSON(t, e, http.MethodGet, "/api/companies/my/company", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}
		payload := decodeBody(t, rec)["company"].(map[string]interface{})
		if uint(payload["id"].(float64)) != company.ID {
			t.Errorf("company id = %v, want %d", payload["id"], company.ID)
		}
	})
}

func TestUpdateCompany(t *testing.T) {
	e, db := newTestServer(t)
	user, token := seedUser(t, db, "owner@example.com", "secret123")
	company := seedCompany(t, db, &user, "Diner")
	_, intruderToken := seedUser(t, db, "intruder@example.com", "secret123")

	path := fmt.Sprintf("/api/companies/%d", company.ID)

	t.Run("partial update touches only supplied fields", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPut, path, token, map[string]interface{}{
			"description": "Now with pie",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}

		var stored model.Company
		if err := db.First(&stored, company.ID).Error; err != nil {
			t.Fatalf("failed to reload company: %v", err)
		}
		if stored.Description != "Now with pie" {
			t.Errorf("description = %q, want updated", stored.Description)
		}
		if stored.Name != "Diner" {
			t.Errorf("name = %q, want untouched", stored.Name)
		}
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPut, path, intruderToken, map[string]interface{}{
			"name": "Stolen Diner",
		})
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("missing company is not found", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPut, "/api/companies/9999", token, map[string]interface{}{
			"name": "Ghost",
		})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("empty body fails validation", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPut, path, token, map[string]interface{}{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestRegenerateQRCode(t *testing.T) {
	e, db := newTestServer(t)
	user, token := seedUser(t, db, "owner@example.com", "secret123")
	company := seedCompany(t, db, &user, "Diner")
	db.Model(&company).Update("qr_code_url", "data:image/png;base64,previous")

	path := fmt.Sprintf("/api/companies/%d/regenerate-qr", company.ID)

	t.Run("render failure is recoverable and preserves the stored QR", func(t *testing.T) {
		original := renderQR
		renderQR = func(url string, size int) (string, error) {
			return "", errors.New("render blew up")
		}
		t.Cleanup(func() { renderQR = original })

		rec := doJSON(t, e, http.MethodPost, path, token, nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body %s", rec.Code, rec.Body.String())
		}
		if code := decodeBody(t, rec)["code"]; code != "service_unavailable" {
			t.Errorf("code = %v, want service_unavailable", code)
		}

		var stored model.Company
		if err := db.First(&stored, company.ID).Error; err != nil {
			t.Fatalf("failed to reload company: %v", err)
		}
		if stored.QRCodeURL != "data:image/png;base64,previous" {
			t.Errorf("qr_code_url = %q, want the previous value preserved", stored.QRCodeURL)
		}
	})

	t.Run("successful render replaces the stored QR", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, path, token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}

		var stored model.Company
		if err := db.First(&stored, company.ID).Error; err != nil {
			t.Fatalf("failed to reload company: %v", err)
		}
		if !strings.HasPrefix(stored.QRCodeURL, "data:image/png;base64,") || stored.QRCodeURL == "data:image/png;base64,previous" {
			t.Errorf("qr_code_url = %.40q, want a freshly rendered data URL", stored.QRCodeURL)
		}
	})
}
