package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vmarkelov/marketplace/internal/lifecycle"
	"github.com/vmarkelov/marketplace/internal/logging"
	"github.com/vmarkelov/marketplace/internal/models"
	"github.com/vmarkelov/marketplace/internal/mykafka"
	"github.com/vmarkelov/marketplace/internal/repo"
)

type testEnv struct {
	T    *testing.T
	E    *echo.Echo
	DB   *gorm.DB
	Repo *repo.GormRepo
	A    *AuthHandler
	P    *ProductHandler
	C    *CommentHandler
}

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Comment{}, &models.RefreshToken{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := initTestDB(t)
	store := repo.NewGormRepo(db)

	activation := &lifecycle.ActivationService{
		Repo:   store,
		Logger: logging.New("error"),
	}

	return &testEnv{
		T:    t,
		E:    echo.New(),
		DB:   db,
		Repo: store,
		A:    &AuthHandler{Repo: store, JWTSecret: []byte("test-jwt-secret"), RefreshSecret: []byte("test-refresh-secret")},
		P:    &ProductHandler{Repo: store, Activation: activation},
		C:    &CommentHandler{Repo: store},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

type publishedEvent struct {
	Topic string
	Key   string
	Event interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []publishedEvent
	for _, ev := range p.events {
		fields, ok := ev.Event.(map[string]interface{})
		if ok && fields["type"] == eventType {
			matched = append(matched, ev)
		}
	}
	return matched
}

// asUser mimics what the auth middleware puts into the request context.
func asUser(c echo.Context, id uint, email string) {
	c.Set("userID", id)
	c.Set("email", email)
	c.Set("role", "user")
}

func (env *testEnv) createProduct(creatorID uint, age time.Duration, active bool) *models.Product {
	env.T.Helper()

	prod := models.Product{
		Name:         "test_product",
		Price:        10,
		CreatorID:    creatorID,
		CreatorEmail: "creator@example.com",
		IsActive:     active,
		CreatedAt:    time.Now().Add(-age),
	}
	require.NoError(env.T, env.DB.Create(&prod).Error)
	return &prod
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"name":     "Ivan",
		"surname":  "Petrov",
		"email":    "ivan@example.com",
		"password": "password",
	}

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", payload)
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "ivan@example.com", user.Email)
	require.Equal(t, "user", user.Role)
	require.NotEmpty(t, user.ID)

	// Duplicate registration is rejected.
	_, cDup := env.doJSONRequest(http.MethodPost, "/api/v1/register", payload)
	err := env.A.Register(cDup)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusConflict, he.Code)

	recLogin, cLogin := env.doJSONRequest(http.MethodPost, "/api/v1/login", payload)
	require.NoError(t, env.A.Login(cLogin))
	require.Equal(t, http.StatusOK, recLogin.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(recLogin.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"email":    "ivan@example.com",
		"password": "password",
	}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", payload)
	require.NoError(t, env.A.Register(c))

	payload["password"] = "wrong"
	_, cLogin := env.doJSONRequest(http.MethodPost, "/api/v1/login", payload)
	err := env.A.Login(cLogin)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestCreateProductSetsCreator(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]interface{}{"name": "chair", "price": 49.5}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/products", payload)
	asUser(c, 3, "maker@example.com")

	require.NoError(t, env.P.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var prod models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prod))
	require.Equal(t, "chair", prod.Name)
	require.Equal(t, uint(3), prod.CreatorID)
	require.Equal(t, "maker@example.com", prod.CreatorEmail)
	require.True(t, prod.IsActive)
}

func TestGetProductsListsOnlyActive(t *testing.T) {
	env := newTestEnv(t)

	env.createProduct(1, time.Hour, true)
	env.createProduct(1, time.Hour, false)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/products", nil)
	require.NoError(t, env.P.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.True(t, resp.Data[0].IsActive)
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)

	prod := env.createProduct(1, time.Hour, true)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/products/1/comments", map[string]string{"text": "nice"})
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 2, "commenter@example.com")

	require.NoError(t, env.C.AddComment(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var comment models.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comment))
	require.Equal(t, prod.ID, comment.ProductID)
	require.Equal(t, "commenter@example.com", comment.UserEmail)
	require.Equal(t, "nice", comment.Text)
}

func TestAddCommentPublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	publisher := &recordingPublisher{}
	env.C.Producer = publisher

	prod := env.createProduct(1, time.Hour, true)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/products/1/comments", map[string]string{"text": "nice"})
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 2, "commenter@example.com")

	require.NoError(t, env.C.AddComment(c))

	events := publisher.ofType("comment_added")
	require.Len(t, events, 1)
	require.Equal(t, mykafka.TopicCommentEvents, events[0].Topic)
	require.Equal(t, fmt.Sprint(prod.ID), events[0].Key)

	fields := events[0].Event.(map[string]interface{})
	require.Equal(t, "commenter@example.com", fields["user_email"])
	require.Equal(t, "nice", fields["text"])
}

func TestAddCommentUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/products/99/comments", map[string]string{"text": "nice"})
	c.SetParamNames("id")
	c.SetParamValues("99")
	asUser(c, 2, "commenter@example.com")

	require.NoError(t, env.C.AddComment(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
