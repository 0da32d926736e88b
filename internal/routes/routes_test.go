package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/blacktie/internal/config"
	"github.com/example/blacktie/internal/database/dbtest"
	"github.com/example/blacktie/internal/handlers"
	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
)

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.Open(t)
	cfg := &config.Config{
		SessionSecret:   "test-secret",
		SessionTTL:      time.Hour,
		PinMaxAttempts:  3,
		PinLockDuration: 15 * time.Minute,
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	Register(app, Deps{DB: db, Config: cfg})
	return &testServer{app: app, db: db}
}

func (s *testServer) staff(t *testing.T, pin string, role models.StaffRole) {
	t.Helper()
	auth := services.NewAuthService(s.db, services.NewActivityLogger(s.db, nil), 3, 15*time.Minute)
	_, err := auth.CreateStaffUser(context.Background(), services.StaffInput{
		Email:     string(role) + "@blacktie.test",
		FirstName: "Sam",
		LastName:  "Tailor",
		Role:      role,
		Pin:       pin,
	})
	require.NoError(t, err)
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && resp.Header.Get(fiber.HeaderContentType) == fiber.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (s *testServer) login(t *testing.T, pin string) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"pin": pin})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, ok := body["token"].(string)
	require.True(t, ok)
	return token
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	s.staff(t, "2468", models.StaffRoleStaff)

	token := s.login(t, "2468")

	resp, body := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := data(t, body)
	assert.Equal(t, "staff@blacktie.test", me["email"])
	assert.Equal(t, "Sam", me["firstName"])

	resp, _ = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginFailuresAndLockout(t *testing.T) {
	s := newTestServer(t)
	s.staff(t, "2468", models.StaffRoleStaff)

	resp, body := s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"pin": "12"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	for i := 0; i < 2; i++ {
		resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"pin": "9999"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"pin": "9999"})
	assert.Equal(t, http.StatusLocked, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))

	// The lock is per PIN, so the right PIN still works.
	s.login(t, "2468")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/api/customers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing authorization header", body["error"])

	resp, _ = s.do(t, http.MethodGet, "/api/customers", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSettingsRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	s.staff(t, "1357", models.StaffRoleStaff)
	s.staff(t, "2468", models.StaffRoleAdmin)

	resp, _ := s.do(t, http.MethodGet, "/api/settings/pin-attempts", s.login(t, "1357"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/api/settings/staff", s.login(t, "2468"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, users, 2)
	for _, u := range users {
		_, leaked := u.(map[string]any)["pin_hash"]
		assert.False(t, leaked)
	}
}

func TestCustomerCRUD(t *testing.T) {
	s := newTestServer(t)
	s.staff(t, "2468", models.StaffRoleStaff)
	token := s.login(t, "2468")

	resp, body := s.do(t, http.MethodPost, "/api/customers", token, fiber.Map{
		"first_name": "Oliver",
		"last_name":  "Twist",
		"email":      "not-an-email",
		"postcode":   "nowhere",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "postcode")

	resp, body = s.do(t, http.MethodPost, "/api/customers", token, fiber.Map{
		"first_name": "Oliver",
		"last_name":  "<b>Twist</b>",
		"email":      "oliver@example.com",
		"postcode":   "SW1A 1AA",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := data(t, body)
	assert.Equal(t, "bTwist/b", created["last_name"])
	id := created["id"].(string)

	resp, body = s.do(t, http.MethodGet, "/api/customers?search=oliver", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["total_items"])

	resp, body = s.do(t, http.MethodPut, "/api/customers/"+id, token, fiber.Map{"city": "London"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "London", data(t, body)["city"])

	resp, _ = s.do(t, http.MethodDelete, "/api/customers/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/customers/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, _ = s.do(t, http.MethodGet, "/api/customers/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWizardCreatesOrderWithParty(t *testing.T) {
	s := newTestServer(t)
	s.staff(t, "2468", models.StaffRoleStaff)
	token := s.login(t, "2468")

	resp, body := s.do(t, http.MethodPost, "/api/customers", token, fiber.Map{"first_name": "Tom", "last_name": "Groom"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	customerID := data(t, body)["id"].(string)

	resp, body = s.do(t, http.MethodPost, "/api/orders/wizard", token, fiber.Map{
		"order": fiber.Map{
			"customer_id":   customerID,
			"wedding_date":  "2030-09-20",
			"total_members": 2,
		},
		"members": []fiber.Map{
			{
				"member": fiber.Map{"first_name": "Tom", "last_name": "Groom", "role": "groom"},
				"sizes":  []fiber.Map{{"size_type": "chest", "measurement": "40"}},
			},
			{
				"member": fiber.Map{"first_name": "Ben", "last_name": "Best", "role": "best_man"},
			},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := data(t, body)
	assert.Regexp(t, `^BT-\d{4}-\d{4}$`, order["order_number"])
	assert.Contains(t, order["wedding_date"], "2030-09-20")
	orderID := order["id"].(string)

	resp, body = s.do(t, http.MethodGet, "/api/orders/"+orderID+"?include=members", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	members, ok := data(t, body)["members"].([]any)
	require.True(t, ok)
	require.Len(t, members, 2)

	groom := members[0].(map[string]any)
	assert.Equal(t, "Tom", groom["first_name"])
	memberID := groom["id"].(string)

	resp, body = s.do(t, http.MethodGet, "/api/members/"+memberID+"/sizes/latest", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	latest := data(t, body)
	require.Contains(t, latest, "chest")
	assert.Equal(t, "40", latest["chest"].(map[string]any)["measurement"])

	resp, body = s.do(t, http.MethodGet, "/api/orders?customer_id="+customerID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)

	resp, _ = s.do(t, http.MethodGet, "/api/orders?wedding_date_from=20-09-2030", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func (s *testServer) garment(t *testing.T, token, category string) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/categories", token, fiber.Map{"name": category})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	categoryID := data(t, body)["id"].(string)

	resp, body = s.do(t, http.MethodPost, "/api/garments", token, fiber.Map{"category_id": categoryID, "name": "Black " + category})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return data(t, body)["id"].(string)
}

func TestWizardRejectsIncompleteParty(t *testing.T) {
	s := newTestServer(t)
	s.staff(t, "2468", models.StaffRoleStaff)
	token := s.login(t, "2468")

	jacket := s.garment(t, token, "Jacket")
	trousers := s.garment(t, token, "Trousers")
	shirt := s.garment(t, token, "Shirt")

	resp, body := s.do(t, http.MethodPost, "/api/customers", token, fiber.Map{"first_name": "Tom", "last_name": "Groom"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	customerID := data(t, body)["id"].(string)

	outfit := func(ids ...string) []fiber.Map {
		out := make([]fiber.Map, len(ids))
		for i, id := range ids {
			out[i] = fiber.Map{"garment_id": id, "quantity": 1, "is_rental": true}
		}
		return out
	}

	resp, body = s.do(t, http.MethodPost, "/api/orders/wizard", token, fiber.Map{
		"order": fiber.Map{"customer_id": customerID},
		"members": []fiber.Map{
			{"member": fiber.Map{"first_name": "Tom", "last_name": "Groom", "email": "tom@"}, "garments": outfit(jacket)},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok, "%v", body)
	assert.Equal(t, "Invalid email format", fields["members[0].member.email"])
	assert.Equal(t, "No garment for: trousers, shirt", fields["members[0].garments"])
	assert.Equal(t, "Wedding date is required", fields["order.wedding_date"])

	resp, body = s.do(t, http.MethodPost, "/api/orders/wizard", token, fiber.Map{
		"order":   fiber.Map{"customer_id": customerID, "wedding_date": "2030-09-20"},
		"members": []fiber.Map{},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["fields"], "members")

	resp, body = s.do(t, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"], "rejected parties store nothing")

	resp, _ = s.do(t, http.MethodPost, "/api/orders/wizard", token, fiber.Map{
		"order": fiber.Map{"customer_id": customerID, "wedding_date": "2030-09-20"},
		"members": []fiber.Map{
			{"member": fiber.Map{"first_name": "Tom", "last_name": "Groom"}, "garments": outfit(jacket, trousers, shirt)},
		},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestOrderUpdateAcceptsDateOnly(t *testing.T) {
	s := newTestServer(t)
	s.staff(t, "2468", models.StaffRoleStaff)
	token := s.login(t, "2468")

	resp, body := s.do(t, http.MethodPost, "/api/customers", token, fiber.Map{"first_name": "Tom", "last_name": "Groom"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	customerID := data(t, body)["id"].(string)

	resp, body = s.do(t, http.MethodPost, "/api/orders", token, fiber.Map{"customer_id": customerID, "wedding_date": "2030-09-20"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := data(t, body)["id"].(string)

	resp, body = s.do(t, http.MethodPut, "/api/orders/"+orderID, token, fiber.Map{"wedding_date": "2031-05-01"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, data(t, body)["wedding_date"], "2031-05-01")

	resp, _ = s.do(t, http.MethodPut, "/api/orders/"+orderID, token, fiber.Map{"wedding_date": "01/05/2031"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDashboardSnapshot(t *testing.T) {
	s := newTestServer(t)
	s.staff(t, "2468", models.StaffRoleStaff)
	token := s.login(t, "2468")

	resp, body := s.do(t, http.MethodPost, "/api/customers", token, fiber.Map{"first_name": "Tom", "last_name": "Groom"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	customerID := data(t, body)["id"].(string)
	resp, _ = s.do(t, http.MethodPost, "/api/orders", token, fiber.Map{"customer_id": customerID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snapshot := data(t, body)
	require.Contains(t, snapshot, "kpis")
	kpis := snapshot["kpis"].(map[string]any)
	assert.EqualValues(t, 1, kpis["totalOrders"])
	assert.EqualValues(t, 1, kpis["activeCustomers"])
	assert.Empty(t, snapshot["todaysFunctions"])
	assert.NotEmpty(t, snapshot["recentActivity"])
}

func TestUnknownPathsRedirect(t *testing.T) {
	s := newTestServer(t)
	s.staff(t, "2468", models.StaffRoleStaff)

	resp, _ := s.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))

	resp, _ = s.do(t, http.MethodGet, "/nowhere", s.login(t, "2468"), nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
}
