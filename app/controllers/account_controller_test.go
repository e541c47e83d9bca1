package controllers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hasib1010/Happylife-sub003/app/models"
)

type fakeUserRepo struct {
	usersByID    map[uint]*models.User
	usersByEmail map[string]*models.User
	nextID       uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		usersByID:    make(map[uint]*models.User),
		usersByEmail: make(map[string]*models.User),
		nextID:       1,
	}
}

func (r *fakeUserRepo) Create(user *models.User) error {
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.usersByID[user.ID] = &copied
	r.usersByEmail[user.Email] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	if u, ok := r.usersByID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	if u, ok := r.usersByEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(user *models.User) error {
	copied := *user
	r.usersByID[user.ID] = &copied
	r.usersByEmail[user.Email] = &copied
	return nil
}

func newAccountTestApp(users *fakeUserRepo) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	ctrl := NewAccountController(users)
	app.Post("/internal/accounts", ctrl.HandleUpsertAccount)
	app.Get("/internal/accounts/:id", ctrl.HandleGetAccount)
	return app
}

func TestHandleUpsertAccount_CreatesMirrorRow(t *testing.T) {
	users := newFakeUserRepo()
	app := newAccountTestApp(users)

	req := httptest.NewRequest(fiber.MethodPost, "/internal/accounts",
		strings.NewReader(`{"name":"Mara Velt","email":"Mara@Example.com","role":"provider"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 for a new account, got %d", resp.StatusCode)
	}

	stored, ok := users.usersByEmail["mara@example.com"]
	if !ok {
		t.Fatalf("email must be stored lowercased")
	}
	if stored.Role != models.ROLE_PROVIDER {
		t.Fatalf("unexpected role %q", stored.Role)
	}
	if stored.Status != models.STATUS_ACTIVE {
		t.Fatalf("new accounts default to active, got %q", stored.Status)
	}
	if stored.Password == "" {
		t.Fatalf("mirror rows still need a password slot filled")
	}
}

func TestHandleUpsertAccount_UpdatesRoleOnResync(t *testing.T) {
	users := newFakeUserRepo()
	seeded, err := models.CreateUser("Mara Velt", "mara@example.com", "irrelevant-secret", models.ROLE_USER)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := users.Create(seeded); err != nil {
		t.Fatalf("seed create: %v", err)
	}
	app := newAccountTestApp(users)

	req := httptest.NewRequest(fiber.MethodPost, "/internal/accounts",
		strings.NewReader(`{"email":"mara@example.com","role":"seller","status":"inactive"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for a resync, got %d", resp.StatusCode)
	}

	stored := users.usersByEmail["mara@example.com"]
	if stored.Role != models.ROLE_SELLER {
		t.Fatalf("role must follow the upstream, got %q", stored.Role)
	}
	if stored.Status != models.STATUS_INACTIVE {
		t.Fatalf("status must follow the upstream, got %q", stored.Status)
	}
	if stored.ID != seeded.ID {
		t.Fatalf("resync must not allocate a new row")
	}
}

func TestHandleUpsertAccount_RejectsUnknownRole(t *testing.T) {
	users := newFakeUserRepo()
	app := newAccountTestApp(users)

	req := httptest.NewRequest(fiber.MethodPost, "/internal/accounts",
		strings.NewReader(`{"name":"Mara Velt","email":"mara@example.com","role":"superuser"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("unknown role must 400, got %d", resp.StatusCode)
	}
	if len(users.usersByEmail) != 0 {
		t.Fatalf("rejected sync must not create a row")
	}
}

func TestHandleGetAccount(t *testing.T) {
	users := newFakeUserRepo()
	seeded, err := models.CreateUser("Mara Velt", "mara@example.com", "irrelevant-secret", models.ROLE_PROVIDER)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := users.Create(seeded); err != nil {
		t.Fatalf("seed create: %v", err)
	}
	app := newAccountTestApp(users)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/internal/accounts/999", nil))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("unknown id must 404, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/internal/accounts/1", nil))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Email != "mara@example.com" || body.Role != models.ROLE_PROVIDER {
		t.Fatalf("unexpected account payload: %+v", body)
	}
}
