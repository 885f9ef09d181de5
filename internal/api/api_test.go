package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"storefront_api/internal/bulk"
	"storefront_api/internal/config"
	"storefront_api/internal/db"
	"storefront_api/internal/domain"
	"storefront_api/internal/middleware"
	"storefront_api/internal/storage"
	"storefront_api/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type testEnv struct {
	db     *gorm.DB
	mr     *miniredis.Miniredis
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // every connection to :memory: is a new database
	require.NoError(t, db.Migrate(database))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := storage.NewLocalStore(t.TempDir(), "http://assets.test/uploads")
	require.NoError(t, err)

	generous := config.RateLimit{Limit: 1000, Window: time.Minute}
	cfg := &config.Config{
		JWTSecret:      testSecret,
		SessionTimeout: 5 * time.Minute,
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimits:     config.RateLimits{Global: generous, Auth: generous, Upload: generous, Search: generous, Order: generous},
	}
	router := NewRouter(Server{
		DB:      database,
		Redis:   rdb,
		Config:  cfg,
		Images:  store,
		Session: middleware.SessionOptions{Secret: testSecret, Timeout: cfg.SessionTimeout},
	})
	return &testEnv{db: database, mr: mr, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, path, field, filename string, content []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createUser(t *testing.T, email, password, role string) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := domain.User{Email: email, Password: string(hash), Role: role}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

// adminCookie signs a session for a freshly created admin
func (e *testEnv) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()
	admin := e.createUser(t, "admin@shop.test", "supersecret", domain.RoleAdmin)
	value, err := utils.SignAdminSession(admin.ID, admin.Email, admin.Role, time.Now(), testSecret)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.AdminSessionCookie, Value: value}
}

func (e *testEnv) seedCatalog(t *testing.T) {
	t.Helper()
	require.NoError(t, e.db.Create(&[]domain.Category{{ID: 1, Name: "Bazin Riche"}, {ID: 2, Name: "Laptops"}}).Error)
	require.NoError(t, e.db.Create(&[]domain.Product{
		{Title: "Alpha", Slug: "alpha", Price: 100, Rating: 5, InStock: 3, CategoryID: 1, Description: "Hand dyed fabric"},
		{Title: "Bravo", Slug: "bravo", Price: 50, Rating: 3, InStock: 0, CategoryID: 1},
		{Title: "Charlie", Slug: "charlie", Price: 900, Rating: 4, InStock: 8, CategoryID: 2},
		{Title: "Orphan", Slug: "orphan", Price: 10, Rating: 1, InStock: 1, CategoryID: 99},
	}).Error)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type listedProduct struct {
	Title    string `json:"title"`
	Category struct {
		Name string `json:"name"`
	} `json:"category"`
}

func listingTitles(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	out := []string{}
	for _, p := range decode[[]listedProduct](t, w) {
		out = append(out, p.Title)
	}
	return out
}

func listingPath(params url.Values) string {
	return "/api/products?" + params.Encode()
}

func TestListProductsFilters(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)

	all := e.do(t, http.MethodGet, "/api/products", nil)
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, listingTitles(t, all))
	assert.Equal(t, "Bazin Riche", decode[[]listedProduct](t, all)[0].Category.Name)

	upper := e.do(t, http.MethodGet, listingPath(url.Values{"filters[category][$equals]": {"Bazin Riche"}}), nil)
	lower := e.do(t, http.MethodGet, listingPath(url.Values{"filters[category][$equals]": {"bazin riche"}}), nil)
	assert.Equal(t, []string{"Alpha", "Bravo"}, listingTitles(t, upper))
	assert.Equal(t, listingTitles(t, upper), listingTitles(t, lower))

	cheap := e.do(t, http.MethodGet, listingPath(url.Values{"filters[price][$lte]": {"100"}, "sort": {"lowPrice"}}), nil)
	assert.Equal(t, []string{"Bravo", "Alpha"}, listingTitles(t, cheap))

	unknown := e.do(t, http.MethodGet, listingPath(url.Values{"filters[category][$equals]": {"phones"}}), nil)
	assert.Empty(t, listingTitles(t, unknown))

	outOfStock := e.do(t, http.MethodGet, listingPath(url.Values{"inStock": {"false"}, "outOfStock": {"true"}}), nil)
	assert.Equal(t, []string{"Bravo"}, listingTitles(t, outOfStock))
}

func TestListProductsAdminMode(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	for i := 0; i < 15; i++ {
		require.NoError(t, e.db.Create(&domain.Product{Title: "Extra", Slug: "extra-" + string(rune('a'+i)), CategoryID: 2}).Error)
	}

	assert.Len(t, listingTitles(t, e.do(t, http.MethodGet, "/api/products", nil)), 12)
	titles := listingTitles(t, e.do(t, http.MethodGet, "/api/products?mode=admin", nil))
	assert.Len(t, titles, 18)
	assert.NotContains(t, titles, "Orphan")
}

func TestListProductsHugePage(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)

	w := e.do(t, http.MethodGet, "/api/products?page=1537228672809129302", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestListProductsDegradesToEmpty(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	sqlDB, err := e.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := e.do(t, http.MethodGet, "/api/products?filters[price][$gte]=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestProductLookups(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)

	w := e.do(t, http.MethodGet, "/api/slugs/charlie", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Charlie", decode[domain.Product](t, w).Title)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/slugs/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/products/404", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/products/abc", nil).Code)

	search := e.do(t, http.MethodGet, "/api/search?query=FABRIC", nil)
	assert.Equal(t, []string{"Alpha"}, listingTitles(t, search))
	assert.Empty(t, listingTitles(t, e.do(t, http.MethodGet, "/api/search?query=", nil)))
}

func TestSearchMatchesWildcardsLiterally(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	require.NoError(t, e.db.Create(&domain.Product{Title: "100% Cotton_Wrap", Slug: "cotton", CategoryID: 1}).Error)

	assert.Empty(t, listingTitles(t, e.do(t, http.MethodGet, "/api/search?query=%25", nil)))
	assert.Equal(t, []string{"100% Cotton_Wrap"}, listingTitles(t, e.do(t, http.MethodGet, "/api/search?query=_", nil)))
	assert.Equal(t, []string{"100% Cotton_Wrap"}, listingTitles(t, e.do(t, http.MethodGet, "/api/search?query=100%25", nil)))
	assert.Empty(t, listingTitles(t, e.do(t, http.MethodGet, "/api/search?query=a_p", nil)))
}

func TestCreateProduct(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	admin := e.adminCookie(t)

	body := gin.H{"title": "Delta Phone", "price": 0, "categoryId": 2, "manufacturer": "Acme", "inStock": 4}
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, "/api/products", body).Code)

	w := e.do(t, http.MethodPost, "/api/products", body, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.Product](t, w)
	assert.Equal(t, "delta-phone", created.Slug)
	assert.Equal(t, 0, created.Price)

	w = e.do(t, http.MethodPost, "/api/products", body, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/products", gin.H{"title": "Echo", "price": 10, "categoryId": 42}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "categoryId", decode[map[string]string](t, w)["field"])

	w = e.do(t, http.MethodPost, "/api/products", gin.H{"title": "Echo", "categoryId": 1}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "price", decode[map[string]string](t, w)["field"])

	w = e.do(t, http.MethodPut, "/api/products/"+itoa(created.ID), gin.H{"title": "Delta Phone", "slug": "alpha", "price": 5, "categoryId": 2}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPut, "/api/products/"+itoa(created.ID), gin.H{"title": "Delta Phone 2", "price": 5, "categoryId": 2}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "delta-phone-2", decode[domain.Product](t, w).Slug)
}

func TestDeleteProductReferencedByOrder(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	admin := e.adminCookie(t)

	order := domain.CustomerOrder{Name: "Jane", Lastname: "Doe", Email: "jane@shop.test", Phone: "5551234567"}
	require.NoError(t, e.db.Create(&order).Error)
	require.NoError(t, e.db.Create(&domain.CustomerOrderProduct{CustomerOrderID: order.ID, ProductID: 1, Quantity: 1}).Error)
	require.NoError(t, e.db.Create(&domain.Image{ProductID: 2, Image: "http://img/2.png"}).Error)

	w := e.do(t, http.MethodDelete, "/api/products/1", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, "/api/products/2", nil, admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
	var images int64
	require.NoError(t, e.db.Model(&domain.Image{}).Where("product_id = ?", 2).Count(&images).Error)
	assert.Zero(t, images)

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/orders/"+itoa(order.ID), nil, admin).Code)
	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/products/1", nil, admin).Code)
}

func TestCategories(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	admin := e.adminCookie(t)

	w := e.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Category](t, w), 2)
	assert.True(t, e.mr.Exists(utils.CategoriesCacheKey))

	w = e.do(t, http.MethodPost, "/api/categories", gin.H{"name": "  bazin-riche "}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/categories", gin.H{"name": "  Smart   Watches "}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[domain.Category](t, w)
	assert.Equal(t, "Smart Watches", created.Name)
	assert.False(t, e.mr.Exists(utils.CategoriesCacheKey), "writes drop the cached category set")

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodDelete, "/api/categories/1", nil, admin).Code)
	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/categories/"+itoa(created.ID), nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/categories/"+itoa(created.ID), nil).Code)
}

func checkoutBody() gin.H {
	return gin.H{
		"name":       "Jane",
		"lastname":   "Doe",
		"phone":      "+49 555 123 4567",
		"email":      "Jane@Example.com",
		"address":    "1 Main St",
		"postalCode": "10115",
		"city":       "Berlin",
		"country":    "Germany",
		"total":      250,
		"status":     "delivered",
	}
}

func TestCreateOrder(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)

	body := checkoutBody()
	body["cardNumber"] = "4111 1111 1111 1111"
	body["products"] = []gin.H{{"productId": 1, "quantity": 2}, {"productId": 3, "quantity": 1}}
	w := e.do(t, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[domain.CustomerOrder](t, w)
	assert.Equal(t, domain.OrderPending, order.Status, "checkout always starts pending")
	assert.Equal(t, "jane@example.com", order.Email)
	assert.Len(t, order.Products, 2)

	body["products"] = []gin.H{{"productId": 1, "quantity": 1}, {"productId": 77, "quantity": 1}}
	w = e.do(t, http.MethodPost, "/api/orders", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var orders int64
	require.NoError(t, e.db.Model(&domain.CustomerOrder{}).Count(&orders).Error)
	assert.EqualValues(t, 1, orders, "a rejected line leaves no order behind")

	for field, value := range map[string]any{"email": "not-an-email", "phone": "12", "name": "J4ne", "total": -1, "cardNumber": "4111 1111 1111 1112"} {
		bad := checkoutBody()
		bad[field] = value
		w = e.do(t, http.MethodPost, "/api/orders", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, field)
		assert.Equal(t, field, decode[map[string]string](t, w)["field"])
	}
}

func TestOrderLinesAndAdminOrders(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	admin := e.adminCookie(t)

	w := e.do(t, http.MethodPost, "/api/orders", checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode[domain.CustomerOrder](t, w)

	w = e.do(t, http.MethodPost, "/api/order-product", gin.H{"customerOrderId": order.ID, "productId": 3, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(t, http.MethodPost, "/api/order-product", gin.H{"customerOrderId": order.ID, "productId": 3, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/order-product/"+itoa(order.ID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	lines := decode[[]domain.CustomerOrderProduct](t, w)
	require.Len(t, lines, 1)
	assert.Equal(t, "Charlie", lines[0].Product.Title)

	first := decode[map[string]any](t, e.do(t, http.MethodGet, "/api/orders", nil, admin))
	assert.Equal(t, false, first["cached"])
	assert.EqualValues(t, 1, first["total"])
	second := decode[map[string]any](t, e.do(t, http.MethodGet, "/api/orders", nil, admin))
	assert.Equal(t, true, second["cached"])

	update := checkoutBody()
	update["status"] = domain.OrderShipped
	w = e.do(t, http.MethodPut, "/api/orders/"+itoa(order.ID), update, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.OrderShipped, decode[domain.CustomerOrder](t, w).Status)

	update["status"] = "lost"
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPut, "/api/orders/"+itoa(order.ID), update, admin).Code)

	third := decode[map[string]any](t, e.do(t, http.MethodGet, "/api/orders", nil, admin))
	assert.Equal(t, false, third["cached"], "updates drop cached pages")

	w = e.do(t, http.MethodGet, "/api/orders/"+itoa(order.ID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[domain.CustomerOrder](t, w).Products, 1)
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "shopper@shop.test", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password", decode[map[string]string](t, w)["field"])

	w = e.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "Shopper@Shop.test", "password": "longenough", "role": "admin"})
	require.Equal(t, http.StatusCreated, w.Code)
	user := decode[domain.User](t, w)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotContains(t, w.Body.String(), "longenough")

	w = e.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "shopper@shop.test", "password": "longenough"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "shopper@shop.test", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "shopper@shop.test", "password": "longenough"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[AuthResponse](t, w).Token

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, decode[domain.User](t, rec).ID)
}

func TestAdminLogin(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "boss@shop.test", "supersecret", domain.RoleAdmin)
	e.createUser(t, "clerk@shop.test", "supersecret", domain.RoleUser)

	w := e.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": "clerk@shop.test", "password": "supersecret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": "boss@shop.test", "password": "supersecret"})
	require.Equal(t, http.StatusOK, w.Code)
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AdminSessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	w = e.do(t, http.MethodGet, "/api/admin/session", nil, session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "boss@shop.test")

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/admin/session", nil).Code)
}

func TestAdminUsers(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminCookie(t)

	w := e.do(t, http.MethodPost, "/api/users", gin.H{"email": "staff@shop.test", "password": "staffpass", "role": "admin"}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	staff := decode[domain.User](t, w)
	assert.Equal(t, domain.RoleAdmin, staff.Role)

	w = e.do(t, http.MethodPost, "/api/users", gin.H{"email": "x@shop.test", "password": "1234567"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/users/email/STAFF@shop.test", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, staff.ID, decode[domain.User](t, w).ID)

	w = e.do(t, http.MethodPut, "/api/users/"+itoa(staff.ID), gin.H{"email": "admin@shop.test"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPut, "/api/users/"+itoa(staff.ID), gin.H{"email": "staff@shop.test", "role": "user"}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RoleUser, decode[domain.User](t, w).Role)

	w = e.do(t, http.MethodGet, "/api/users", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.User](t, w), 2)

	var self domain.User
	require.NoError(t, e.db.Where("email = ?", "admin@shop.test").First(&self).Error)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodDelete, "/api/users/"+itoa(self.ID), nil, admin).Code)
	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/users/"+itoa(staff.ID), nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/users/"+itoa(staff.ID), nil, admin).Code)
}

func TestFieldRulesFromBindingTags(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	admin := e.adminCookie(t)

	fieldOf := func(w *httptest.ResponseRecorder) map[string]string {
		t.Helper()
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		return decode[map[string]string](t, w)
	}

	resp := fieldOf(e.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "shopper@", "password": "longenough"}))
	assert.Equal(t, "email", resp["field"])
	assert.Equal(t, "email must be a valid email address", resp["error"])

	resp = fieldOf(e.do(t, http.MethodPost, "/api/users", gin.H{"email": "long@shop.test", "password": strings.Repeat("p", 73)}, admin))
	assert.Equal(t, "password", resp["field"])
	assert.Equal(t, "password must be at most 72", resp["error"])

	staff := e.createUser(t, "staff@shop.test", "staffpass", domain.RoleUser)
	resp = fieldOf(e.do(t, http.MethodPut, "/api/users/"+itoa(staff.ID), gin.H{"email": "staff@shop.test", "password": "short"}, admin))
	assert.Equal(t, "password", resp["field"])
	w := e.do(t, http.MethodPut, "/api/users/"+itoa(staff.ID), gin.H{"email": "staff@shop.test", "password": "newpassword"}, admin)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "email", fieldOf(e.do(t, http.MethodPost, "/api/merchants", gin.H{"name": "Acme", "email": "sales@"}, admin))["field"])
	w = e.do(t, http.MethodPost, "/api/merchants", gin.H{"name": "No Mail"}, admin)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := checkoutBody()
	body["cardNumber"] = "4111 1111 111"
	resp = fieldOf(e.do(t, http.MethodPost, "/api/orders", body))
	assert.Equal(t, "cardNumber", resp["field"])
	assert.Equal(t, "cardNumber is not a valid card number", resp["error"])
	body["cardNumber"] = "4539 1488 0343 6467"
	w = e.do(t, http.MethodPost, "/api/orders", body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestMerchants(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	admin := e.adminCookie(t)

	w := e.do(t, http.MethodPost, "/api/merchants", gin.H{"name": "Acme", "email": "bad", "status": "active"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/merchants", gin.H{"name": "Acme", "email": "sales@acme.test", "status": "active"}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	merchant := decode[domain.Merchant](t, w)
	assert.Equal(t, domain.MerchantActive, merchant.Status)

	require.NoError(t, e.db.Model(&domain.Product{}).Where("id = ?", 1).Update("merchant_id", merchant.ID).Error)
	w = e.do(t, http.MethodGet, "/api/merchants/"+itoa(merchant.ID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[domain.Merchant](t, w).Products, 1)

	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodDelete, "/api/merchants/"+itoa(merchant.ID), nil, admin).Code)
	require.NoError(t, e.db.Model(&domain.Product{}).Where("id = ?", 1).Update("merchant_id", nil).Error)
	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/merchants/"+itoa(merchant.ID), nil, admin).Code)
}

func TestImages(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	admin := e.adminCookie(t)

	w := e.do(t, http.MethodPost, "/api/images", gin.H{"productId": 1, "image": "http://img/a.png"}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	image := decode[domain.Image](t, w)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/images", gin.H{"productId": 99, "image": "x"}, admin).Code)

	w = e.do(t, http.MethodPut, "/api/images/"+itoa(image.ID), gin.H{"image": "http://img/b.png"}, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/images/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	images := decode[[]domain.Image](t, w)
	require.Len(t, images, 1)
	assert.Equal(t, "http://img/b.png", images[0].Image)

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/images/1", nil, admin).Code)
	assert.Empty(t, decode[[]domain.Image](t, e.do(t, http.MethodGet, "/api/images/1", nil)))
}

func TestUploadMainImage(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminCookie(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	w := e.upload(t, "/api/main-image", "uploadedFile", "My Photo.png", png, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	location := decode[map[string]string](t, w)["secure_url"]
	assert.True(t, strings.HasPrefix(location, "http://assets.test/uploads/products/"), location)
	assert.True(t, strings.HasSuffix(location, "-my-photo.png"), location)

	w = e.upload(t, "/api/main-image", "uploadedFile", "notes.png", []byte("just some text"), admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.upload(t, "/api/main-image", "file", "photo.png", png, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettings(t *testing.T) {
	e := newTestEnv(t)
	admin := e.adminCookie(t)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/settings/heroBanner", nil).Code)

	w := e.do(t, http.MethodPut, "/api/settings/heroBanner", gin.H{"value": "http://img/banner.png"}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodPut, "/api/settings/heroBanner", gin.H{"value": "http://img/banner2.png"}, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	settings := decode[[]domain.Setting](t, w)
	require.Len(t, settings, 1)
	assert.Equal(t, "http://img/banner2.png", settings[0].Value)
}

const bulkCSV = `title,price,manufacturer,inStock,mainImage,description,slug,categoryId
Phone,100,Acme,5,,Nice phone,phone,1
Tablet,abc,Acme,1,,,tablet,1
Laptop,900,Acme,2,,,laptop,99
Phone Two,150,Acme,1,,,phone,1
Watch,50,Acme,0,,,watch,2
Copy,10,Acme,0,,,alpha,2
`

func TestBulkUpload(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	admin := e.adminCookie(t)

	w := e.upload(t, "/api/bulk-upload", "file", "products.txt", []byte(bulkCSV), admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.upload(t, "/api/bulk-upload", "file", "products.csv", []byte(bulkCSV), admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[BulkUploadResponse](t, w)
	assert.Equal(t, 6, resp.TotalRecords)
	assert.Equal(t, 2, resp.SuccessfulRecords)
	assert.Equal(t, 4, resp.FailedRecords)
	assert.Equal(t, domain.BatchPartial, resp.Status)
	rows := []int{}
	for _, re := range resp.Errors {
		rows = append(rows, re.Line)
	}
	assert.Equal(t, []int{2, 3, 4, 6}, rows)

	w = e.do(t, http.MethodGet, "/api/bulk-upload/"+itoa(resp.BatchID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	batch := decode[domain.BulkUploadBatch](t, w)
	require.Len(t, batch.Items, 6)
	assert.Equal(t, domain.ItemSuccess, batch.Items[0].Status)
	assert.Contains(t, batch.Items[3].Error, "row 1")

	list := decode[map[string]any](t, e.do(t, http.MethodGet, "/api/bulk-upload", nil, admin))
	assert.EqualValues(t, 1, list["total"])

	w = e.do(t, http.MethodDelete, "/api/bulk-upload/"+itoa(resp.BatchID)+"?deleteProducts=true", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["deletedProducts"])
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/slugs/phone", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/bulk-upload/"+itoa(resp.BatchID), nil, admin).Code)
}

func TestBulkUploadFailedRowLeavesSlugFree(t *testing.T) {
	e := newTestEnv(t)
	e.seedCatalog(t)
	admin := e.adminCookie(t)

	csv := "title,price,manufacturer,inStock,mainImage,description,slug,categoryId\n" +
		"Wax Print,100,Vlisco,2,,,wax-print,77\n" +
		"Wax Print,100,Vlisco,2,,,wax-print,1\n"
	w := e.upload(t, "/api/bulk-upload", "file", "wax.csv", []byte(csv), admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[BulkUploadResponse](t, w)
	assert.Equal(t, 1, resp.SuccessfulRecords)
	assert.Equal(t, 1, resp.FailedRecords)
	assert.Equal(t, domain.BatchPartial, resp.Status)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Line)
	assert.Equal(t, "category does not exist", resp.Errors[0].Message)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/slugs/wax-print", nil).Code)
}

func TestCreateRowReportsLookupFailure(t *testing.T) {
	e := newTestEnv(t)
	sqlDB, err := e.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/bulk-upload", nil)
	item := domain.BulkUploadItem{RowNumber: 1, Slug: "phone", Status: domain.ItemError}
	createRow(c, e.db, bulk.Row{Line: 1, Title: "Phone", Slug: "phone", CategoryID: 1}, &item)

	assert.Equal(t, domain.ItemError, item.Status)
	assert.Equal(t, "failed to create product", item.Error)
}

func TestBatchStatus(t *testing.T) {
	assert.Equal(t, domain.BatchCompleted, batchStatus(3, 0))
	assert.Equal(t, domain.BatchPartial, batchStatus(2, 1))
	assert.Equal(t, domain.BatchFailed, batchStatus(0, 3))
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
