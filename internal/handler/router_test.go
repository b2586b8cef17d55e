package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/library-catalog-api/internal/models"
	"github.com/noah-isme/library-catalog-api/internal/repository"
	"github.com/noah-isme/library-catalog-api/internal/service"
)

type memUsers struct {
	mu    sync.Mutex
	users []*models.User
}

func (m *memUsers) byID(id int64) *models.User {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.byID(id); u != nil {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) ExistsByStudentID(ctx context.Context, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.StudentID != nil && *u.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = int64(len(m.users) + 1)
	user.CreatedAt = time.Now().UTC()
	copied := *user
	m.users = append(m.users, &copied)
	return nil
}

func (m *memUsers) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.byID(id); u != nil {
		u.LastLogin = &ts
	}
	return nil
}

func (m *memUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		if filter.UserType == nil || u.UserType == *filter.UserType {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

type memSessions struct {
	mu       sync.Mutex
	users    *memUsers
	sessions map[string]models.Session
}

func (m *memSessions) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.ID = int64(len(m.sessions) + 1)
	m.sessions[session.TokenDigest] = *session
	return nil
}

func (m *memSessions) FindByDigest(ctx context.Context, digest string) (*models.Session, *models.User, error) {
	m.mu.Lock()
	session, ok := m.sessions[digest]
	m.mu.Unlock()
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	user, err := m.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	return &session, user, nil
}

func (m *memSessions) DeleteByDigest(ctx context.Context, digest string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[digest]; !ok {
		return 0, nil
	}
	delete(m.sessions, digest)
	return 1, nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for digest, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, digest)
			n++
		}
	}
	return n, nil
}

type memBooks struct {
	mu        sync.Mutex
	users     *memUsers
	books     []*models.Book
	checkouts []models.Checkout
}

func (m *memBooks) active(bookID int64) int {
	for i, c := range m.checkouts {
		if c.BookID == bookID && c.Status == models.CheckoutActive {
			return i
		}
	}
	return -1
}

func (m *memBooks) item(book *models.Book) models.BookListItem {
	item := models.BookListItem{Book: *book}
	if i := m.active(book.ID); i >= 0 {
		c := m.checkouts[i]
		loan := &models.ActiveLoan{CheckoutID: c.ID, BorrowerID: c.UserID, DueDate: c.DueDate}
		if u, err := m.users.FindByID(context.Background(), c.UserID); err == nil {
			loan.BorrowerName = u.Name
		}
		item.Checkout = loan
	}
	return item
}

func (m *memBooks) List(ctx context.Context) ([]models.BookListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.BookListItem, 0, len(m.books))
	for _, b := range m.books {
		items = append(items, m.item(b))
	}
	return items, nil
}

func (m *memBooks) FindByID(ctx context.Context, id int64) (*models.BookListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.ID == id {
			item := m.item(b)
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memBooks) Create(ctx context.Context, book *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	book.ID = int64(len(m.books) + 1)
	book.AvailabilityStatus = models.BookAvailable
	copied := *book
	m.books = append(m.books, &copied)
	return nil
}

func (m *memBooks) Checkout(ctx context.Context, params repository.CheckoutParams) (*models.Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if params.BookID < 1 || int(params.BookID) > len(m.books) {
		return nil, repository.ErrBookNotFound
	}
	if i := m.active(params.BookID); i >= 0 {
		if m.checkouts[i].UserID == params.UserID {
			return nil, repository.ErrAlreadyBorrowing
		}
		return nil, repository.ErrBookCheckedOut
	}
	c := models.Checkout{
		ID:           int64(len(m.checkouts) + 1),
		UserID:       params.UserID,
		BookID:       params.BookID,
		CheckoutDate: params.CheckoutDate,
		DueDate:      params.DueDate,
		Status:       models.CheckoutActive,
	}
	m.checkouts = append(m.checkouts, c)
	m.books[params.BookID-1].AvailabilityStatus = models.BookCheckedOut
	return &c, nil
}

func (m *memBooks) Return(ctx context.Context, bookID int64, returnedAt time.Time, guard repository.ReturnGuard) (*models.Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.active(bookID)
	if i < 0 {
		return nil, repository.ErrNoActiveCheckout
	}
	if guard != nil {
		if err := guard(m.checkouts[i]); err != nil {
			return nil, err
		}
	}
	m.checkouts[i].Status = models.CheckoutReturned
	m.checkouts[i].ReturnDate = &returnedAt
	m.books[bookID-1].AvailabilityStatus = models.BookAvailable
	c := m.checkouts[i]
	return &c, nil
}

func (m *memBooks) ListDetailed(ctx context.Context) ([]models.RentalDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RentalDetail, 0, len(m.checkouts))
	for _, c := range m.checkouts {
		detail := models.RentalDetail{Checkout: c}
		book := m.books[c.BookID-1]
		detail.BookTitle, detail.BookAuthor = book.Title, book.Author
		if u, err := m.users.FindByID(ctx, c.UserID); err == nil {
			detail.BorrowerName, detail.BorrowerEmail, detail.StudentID = u.Name, u.Email, u.StudentID
		}
		out = append(out, detail)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckoutDate.After(out[j].CheckoutDate) })
	return out, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &memUsers{}
	sessionsRepo := &memSessions{users: users, sessions: map[string]models.Session{}}
	books := &memBooks{users: users}
	metrics := service.NewMetricsService()
	credentials := service.NewCredentialService()

	sessions := service.NewSessionService(sessionsRepo, nil, metrics, service.SessionConfig{Secret: "router-secret", TTL: time.Hour, Issuer: "library-catalog-api"})
	auth := service.NewAuthService(users, sessions, credentials, nil, nil, nil, metrics, service.AuthConfig{StaffKeyword: "let-me-in"})
	catalog := service.NewCatalogService(books, nil, nil, nil)
	ledger := service.NewCheckoutService(books, catalog, nil, metrics)

	h := Handlers{
		Auth:    NewAuthHandler(auth),
		Books:   NewBookHandler(catalog, ledger, nil),
		Rentals: NewRentalHandler(ledger),
		Users:   NewUserHandler(service.NewUserService(users, credentials, nil, nil)),
		Metrics: NewMetricsHandler(metrics, nil),
	}
	return NewRouter(h, sessions, metrics, nil, RouterConfig{StoreTimeout: 5 * time.Second})
}

func call(t *testing.T, r http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		env = parseEnvelope(t, w.Body.Bytes())
	}
	return w, env
}

func login(t *testing.T, r http.Handler, email, password string) string {
	t.Helper()
	w, env := call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Message      string          `json:"message"`
		User         json.RawMessage `json:"user"`
		SessionToken string          `json:"sessionToken"`
		ExpiresAt    time.Time       `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(env.Raw, &body))
	require.Equal(t, "Login successful", body.Message)
	require.Contains(t, string(body.User), `"email":"`+email+`"`)
	require.False(t, body.ExpiresAt.IsZero())
	require.NotEmpty(t, body.SessionToken)
	return body.SessionToken
}

func TestRouterLendingFlow(t *testing.T) {
	r := newTestRouter(t)

	w, _ := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"userType": "student", "name": "Ana", "email": "ana@example.com", "password": "secret1", "studentId": "S-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"userType": "student", "name": "Caio", "email": "caio@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"userType": "staff", "name": "Bo", "email": "bo@example.com", "password": "secret1", "adminKeyword": "wrong",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	w, _ = call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"userType": "staff", "name": "Bo", "email": "bo@example.com", "password": "secret1", "adminKeyword": "let-me-in",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	ana := login(t, r, "ana@example.com", "secret1")
	caio := login(t, r, "caio@example.com", "secret1")
	bo := login(t, r, "bo@example.com", "secret1")

	w, _ = call(t, r, http.MethodPost, "/api/books", "", gin.H{"title": "Dune", "author": "Frank Herbert"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, env := call(t, r, http.MethodPost, "/api/books", bo, gin.H{"title": "Dune", "author": "Frank Herbert"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Book added successfully", env.Message)
	assert.Contains(t, string(env.field(t, "book")), `"title":"Dune"`)

	w, _ = call(t, r, http.MethodGet, "/api/books", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	var books []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books), w.Body.String())
	require.Len(t, books, 1)
	assert.Equal(t, "available", books[0]["availabilityStatus"])

	w, _ = call(t, r, http.MethodPost, "/api/books/1/checkout", bo, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env = call(t, r, http.MethodPost, "/api/books/1/checkout", ana, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Book checked out successfully", env.Message)
	assert.Contains(t, string(env.field(t, "checkout")), `"bookId":1`)

	w, env = call(t, r, http.MethodPost, "/api/books/1/checkout", caio, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CHECKOUT_CONFLICT", env.Error.Code)

	w, env = call(t, r, http.MethodGet, "/api/books/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Raw), `"borrowerName":"Ana"`)

	w, _ = call(t, r, http.MethodPost, "/api/books/1/return", caio, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = call(t, r, http.MethodGet, "/api/rentals", ana, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = call(t, r, http.MethodGet, "/api/rentals", bo, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rentals []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rentals), w.Body.String())
	require.Len(t, rentals, 1)
	assert.Equal(t, "Dune", rentals[0]["bookTitle"])

	w, _ = call(t, r, http.MethodPost, "/api/books/1/return", ana, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = call(t, r, http.MethodPost, "/api/books/1/return", ana, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = call(t, r, http.MethodGet, "/api/rentals/export?format=csv", bo, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;"))
	assert.Contains(t, w.Body.String(), "Checkout ID")

	w, _ = call(t, r, http.MethodGet, "/api/users", bo, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = call(t, r, http.MethodPost, "/api/auth/validate", ana, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodPost, "/api/auth/logout", "", gin.H{"sessionToken": ana})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodPost, "/api/auth/validate", ana, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = call(t, r, http.MethodPost, "/api/books/1/checkout", ana, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterLoginFailuresAreUniform(t *testing.T) {
	r := newTestRouter(t)
	w, _ := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"userType": "student", "name": "Ana", "email": "ana@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	wrongPassword, envA := call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@example.com", "password": "nope"})
	unknownUser, envB := call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "who@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownUser.Code)
	assert.Equal(t, envA.Message, envB.Message)
}

func TestRouterOperationalEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w, _ := call(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w, _ = call(t, r, http.MethodGet, "/docs/index.html", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
