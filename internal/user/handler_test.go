package user

import (
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// helper to build an app with a simple "bootstrap" middleware that injects a
// jwt.Token into locals when the X-User-ID header is provided. This avoids
// pulling in the full jwtware middleware and keeps tests lightweight.
func makeAppWithUserHandler(uHandler *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	uHandler.RegisterPublicRoutes(app)
	uHandler.RegisterProtectedRoutes(app)
	return app
}

func TestProfileRoute_RegistrationAndAuth(t *testing.T) {
	seed := []User{{ID: 7, Email: "j@example.com", FirstName: "Jenny", LastName: "Test", Phone: "123", Gender: "F", MainAddressID: func() *int { i := 99; return &i }()}}
	repo := NewInMemoryRepository(seed)
	service := NewService(repo)
	handler := NewHandler(service, "test-secret")
	app := makeAppWithUserHandler(handler)

	// route registration check
	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Path] = true
		}
	}
	if !routes["/api/v1/profile"] {
		t.Fatalf("expected route '/api/v1/profile' to be registered")
	}

	// unauthorized request should yield 401
	req := httptest.NewRequest("GET", "/api/v1/profile", nil)
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("profile request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected unauthorized status, got %d", res.StatusCode)
	}

	// authorized request using X-User-ID header
	req2 := httptest.NewRequest("GET", "/api/v1/profile", nil)
	req2.Header.Set("X-User-ID", "7")
	res2, err := app.Test(req2)
	if err != nil {
		t.Fatalf("authorized profile request failed: %v", err)
	}
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 OK for authorized profile, got %d", res2.StatusCode)
	}

	// read body and ensure returned user matches and password is blank
	b, _ := io.ReadAll(res2.Body)
	body := string(b)
	if !strings.Contains(body, "j@example.com") {
		t.Fatalf("response body does not contain expected email, got %s", body)
	}
	if !strings.Contains(body, "mainAddressId") {
		t.Fatalf("response body does not include mainAddressId, got %s", body)
	}
	if strings.Contains(body, "password") {
		t.Fatalf("response body should not expose password field")
	}
}

func TestProfileUpdate(t *testing.T) {
	seed := []User{{ID: 15, Email: "u15@example.com", FirstName: "Old", LastName: "Name", Phone: "000", Gender: "male"}}
	repo := NewInMemoryRepository(seed)
	service := NewService(repo)
	handler := NewHandler(service, "test-secret")
	app := makeAppWithUserHandler(handler)

	// update profile fields using both PUT and PATCH to ensure both
	// methods are accepted by the handler.
	updateJSON := `{"firstName":"New","lastName":"User","phone":"999","gender":"female"}`

	for _, method := range []string{"PUT", "PATCH"} {
		req := httptest.NewRequest(method, "/api/v1/profile", strings.NewReader(updateJSON))
		req.Header.Set("X-User-ID", "15")
		req.Header.Set("Content-Type", "application/json")
		res, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s update request failed: %v", method, err)
		}
		if res.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200 OK on %s update, got %d", method, res.StatusCode)
		}
		b, _ := io.ReadAll(res.Body)
		if !strings.Contains(string(b), "New") {
			t.Fatalf("updated response missing new name for %s: %s", method, string(b))
		}
	}

	// setting mainAddressId should be supported
	mainJSON := `{"mainAddressId":42}`
	reqMain := httptest.NewRequest("PATCH", "/api/v1/profile", strings.NewReader(mainJSON))
	reqMain.Header.Set("X-User-ID", "15")
	reqMain.Header.Set("Content-Type", "application/json")
	resMain, err := app.Test(reqMain)
	if err != nil {
		t.Fatalf("main address update failed: %v", err)
	}
	if resMain.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 OK on main address update, got %d", resMain.StatusCode)
	}
	bMain, _ := io.ReadAll(resMain.Body)
	if !strings.Contains(string(bMain), "mainAddressId") {
		t.Fatalf("response missing mainAddressId: %s", string(bMain))
	}
	uFinal, _ := repo.GetByID(15)
	if uFinal.MainAddressID == nil || *uFinal.MainAddressID != 42 {
		t.Fatalf("mainAddressId not persisted: %+v", uFinal)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	service := NewService(repo)
	handler := NewHandler(service, "test-secret")
	app := makeAppWithUserHandler(handler)

	signup := `{"email":"a@example.com","password":"hunter2","firstName":"A","lastName":"B","phone":"555","gender":"F"}`
	req := httptest.NewRequest("POST", "/api/v1/sign-up", strings.NewReader(signup))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 on sign-up, got %d", res.StatusCode)
	}

	// duplicate registration is rejected
	req2 := httptest.NewRequest("POST", "/api/v1/sign-up", strings.NewReader(signup))
	req2.Header.Set("Content-Type", "application/json")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 on duplicate sign-up, got %d", res2.StatusCode)
	}

	login := `{"email":"a@example.com","password":"hunter2"}`
	req3 := httptest.NewRequest("POST", "/api/v1/sign-in", strings.NewReader(login))
	req3.Header.Set("Content-Type", "application/json")
	res3, err := app.Test(req3)
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if res3.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on sign-in, got %d", res3.StatusCode)
	}
	b, _ := io.ReadAll(res3.Body)
	if !strings.Contains(string(b), "token") {
		t.Fatalf("sign-in response missing token: %s", string(b))
	}

	// wrong password
	badLogin := `{"email":"a@example.com","password":"wrong"}`
	req4 := httptest.NewRequest("POST", "/api/v1/sign-in", strings.NewReader(badLogin))
	req4.Header.Set("Content-Type", "application/json")
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", res4.StatusCode)
	}
}
