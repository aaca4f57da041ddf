package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/trashforcoin/internal/access"
	auditrepository "github.com/smallbiznis/trashforcoin/internal/audit/repository"
	auditservice "github.com/smallbiznis/trashforcoin/internal/audit/service"
	"github.com/smallbiznis/trashforcoin/internal/auth/password"
	authrepository "github.com/smallbiznis/trashforcoin/internal/auth/repository"
	authservice "github.com/smallbiznis/trashforcoin/internal/auth/service"
	"github.com/smallbiznis/trashforcoin/internal/auth/session"
	"github.com/smallbiznis/trashforcoin/internal/authorization"
	binrepository "github.com/smallbiznis/trashforcoin/internal/bin/repository"
	binservice "github.com/smallbiznis/trashforcoin/internal/bin/service"
	"github.com/smallbiznis/trashforcoin/internal/cartsession"
	categoryrepository "github.com/smallbiznis/trashforcoin/internal/category/repository"
	categoryservice "github.com/smallbiznis/trashforcoin/internal/category/service"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/config"
	inventoryrepository "github.com/smallbiznis/trashforcoin/internal/inventory/repository"
	inventoryservice "github.com/smallbiznis/trashforcoin/internal/inventory/service"
	"github.com/smallbiznis/trashforcoin/internal/observability"
	orderrepository "github.com/smallbiznis/trashforcoin/internal/order/repository"
	orderservice "github.com/smallbiznis/trashforcoin/internal/order/service"
	productrepository "github.com/smallbiznis/trashforcoin/internal/product/repository"
	productservice "github.com/smallbiznis/trashforcoin/internal/product/service"
	reportrepository "github.com/smallbiznis/trashforcoin/internal/report/repository"
	reportservice "github.com/smallbiznis/trashforcoin/internal/report/service"
	storerepository "github.com/smallbiznis/trashforcoin/internal/store/repository"
	storeservice "github.com/smallbiznis/trashforcoin/internal/store/service"
	userdomain "github.com/smallbiznis/trashforcoin/internal/user/domain"
	userrepository "github.com/smallbiznis/trashforcoin/internal/user/repository"
	userservice "github.com/smallbiznis/trashforcoin/internal/user/service"
	"github.com/smallbiznis/trashforcoin/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testPassword = "correct-password"

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t, dbtest.Schema...)
	for _, stmt := range []string{
		`INSERT INTO tbl_stores (store_id, store_name, slug) VALUES (7, 'North', 'north'), (9, 'South', 'south')`,
		`INSERT INTO tbl_category (id, category_name, store_id) VALUES (1, 'Bottles', NULL), (2, 'Cans', 7)`,
		`INSERT INTO tbl_products (products_id, products_name, price, stock_quantity, category_id, barcode_id, store_id) VALUES
			(10, 'Bottle', '10.00', 5, 1, '4006381333931', 7),
			(30, 'South Bottle', '2.50', 10, 1, '4006381333955', 9)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	seedUser(t, db, "root@example.com", access.RoleRootAdmin, nil)
	seedUser(t, db, "member@example.com", access.RoleMember, storeRef(7))
	seedUser(t, db, "viewer@example.com", access.RoleViewer, storeRef(7))

	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	operations := config.NewStaticOperationsConfigHolder(config.DefaultOperationsConfig())
	carts := cartsession.NewMemoryStore(fake, time.Hour)

	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Clock: fake, Repo: auditrepository.Provide()})
	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	ledger := inventoryservice.New(inventoryservice.Params{DB: db, Log: log, GenID: node, Clock: fake, Repo: inventoryrepository.Provide()})
	tracker := binservice.New(binservice.Params{DB: db, Log: log, Clock: fake, Repo: binrepository.Provide()})

	srv := NewServer(ServerParams{
		Gin: NewEngine(observability.Config{}, nil),
		Authsvc: authservice.New(authservice.Params{
			DB:       db,
			Log:      log,
			Config:   config.Config{SessionTTL: 12 * time.Hour},
			Clock:    fake,
			GenID:    node,
			Sessions: authrepository.New(db),
			Users:    userrepository.Provide(),
			Carts:    carts,
		}),
		Sessions:     session.NewManager(session.Params{Clock: fake}),
		Carts:        carts,
		AuthzSvc:     authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		AuditSvc:     audit,
		StoreSvc:     storeservice.New(storeservice.Params{DB: db, Log: log, Clock: fake, Repo: storerepository.Provide(), AuditSvc: audit}),
		UserSvc:      userservice.New(userservice.Params{DB: db, Log: log, Clock: fake, Repo: userrepository.Provide(), AuditSvc: audit}),
		CategorySvc:  categoryservice.New(categoryservice.Params{DB: db, Log: log, Clock: fake, Repo: categoryrepository.Provide()}),
		InventorySvc: ledger,
		BinSvc:       tracker,
		ProductSvc: productservice.New(productservice.Params{
			DB: db, Log: log, Clock: fake, Repo: productrepository.Provide(),
			Inventory: ledger, Bins: tracker, Operations: operations,
		}),
		OrderSvc: orderservice.New(orderservice.Params{
			DB: db, Log: log, Clock: fake, Repo: orderrepository.Provide(),
			Inventory: ledger, Bins: tracker, Operations: operations,
		}),
		ReportSvc: reportservice.New(reportservice.Params{DB: db, Log: log, Repo: reportrepository.Provide(), Operations: operations}),
	})
	return srv, db
}

func storeRef(id int64) *int64 { return &id }

func seedUser(t *testing.T, db *gorm.DB, email string, role access.Role, store *int64) {
	t.Helper()
	hashed, err := password.Hash(testPassword)
	require.NoError(t, err)
	require.NoError(t, db.Create(&userdomain.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		StoreID:      store,
	}).Error)
}

func do(t *testing.T, srv *Server, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
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
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, srv *Server, email string) *http.Cookie {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: testPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == session.DefaultCookieName {
			return cookie
		}
	}
	t.Fatalf("login did not set %s", session.DefaultCookieName)
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestLoginAndMe(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/auth/login", LoginRequest{Email: "member@example.com", Password: "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decodeError(t, rec).Code)

	rec = do(t, srv, http.MethodPost, "/auth/login", map[string]string{"password": testPassword}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cookie := login(t, srv, "member@example.com")
	rec = do(t, srv, http.MethodGet, "/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me struct {
		User userdomain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "member@example.com", me.User.Email)
	assert.Equal(t, access.RoleMember, me.User.Role)

	rec = do(t, srv, http.MethodPost, "/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodGet, "/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/products", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/products", nil, &http.Cookie{Name: session.DefaultCookieName, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCapabilityGate(t *testing.T) {
	srv, _ := newTestServer(t)
	viewer := login(t, srv, "viewer@example.com")
	member := login(t, srv, "member@example.com")

	tests := []struct {
		name   string
		cookie *http.Cookie
		method string
		path   string
		body   any
		status int
	}{
		{"viewer cannot open a cart", viewer, http.MethodPost, "/api/cart", nil, http.StatusForbidden},
		{"viewer reads products", viewer, http.MethodGet, "/api/products", nil, http.StatusOK},
		{"member cannot create stores", member, http.MethodPost, "/api/stores", map[string]string{"name": "East"}, http.StatusForbidden},
		{"member cannot list users", member, http.MethodGet, "/api/users", nil, http.StatusForbidden},
		{"member cannot read audit logs", member, http.MethodGet, "/api/audit-logs", nil, http.StatusForbidden},
		{"member reads the dashboard", member, http.MethodGet, "/api/reports/dashboard", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body, tt.cookie)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestStoreScopedReadsAreNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	member := login(t, srv, "member@example.com")

	rec := do(t, srv, http.MethodGet, "/api/products/30", nil, member)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product_not_found", decodeError(t, rec).Code)

	rec = do(t, srv, http.MethodGet, "/api/products/10", nil, member)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/products/abc", nil, member)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreSlugSuffixedOnCollision(t *testing.T) {
	srv, _ := newTestServer(t)
	root := login(t, srv, "root@example.com")

	createdSlug := func(name string) string {
		t.Helper()
		rec := do(t, srv, http.MethodPost, "/api/stores", map[string]string{"name": name}, root)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created struct {
			Data struct {
				Slug string `json:"slug"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		return created.Data.Slug
	}

	assert.Equal(t, "east", createdSlug("East"))
	assert.Equal(t, "north-2", createdSlug("north"))
	assert.Equal(t, "north-3", createdSlug("North"))
}

func TestCartCheckoutFlow(t *testing.T) {
	srv, db := newTestServer(t)
	member := login(t, srv, "member@example.com")

	rec := do(t, srv, http.MethodPost, "/api/cart/scan", scanRequest{Code: "4006381333931"}, member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, srv, http.MethodPost, "/api/cart/lines", map[string]int64{"product_id": 10, "quantity": 2}, member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/cart/lines", map[string]int64{"product_id": 10, "quantity": 9}, member)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/cart", nil, member)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart struct {
		Data cartView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Equal(t, "100001", cart.Data.OrderID)
	require.Len(t, cart.Data.Lines, 1)
	assert.Equal(t, int64(3), cart.Data.TotalQuantity)

	rec = do(t, srv, http.MethodPost, "/api/cart/checkout", nil, member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var receipt struct {
		Data struct {
			OrderID        string `json:"order_id"`
			ReceiptBarcode string `json:"receipt_barcode"`
			TotalQuantity  int64  `json:"total_quantity"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, "100001", receipt.Data.OrderID)
	assert.Equal(t, int64(3), receipt.Data.TotalQuantity)

	var stock int64
	require.NoError(t, db.Raw(`SELECT stock_quantity FROM tbl_products WHERE products_id = 10`).Scan(&stock).Error)
	assert.Equal(t, int64(2), stock)

	rec = do(t, srv, http.MethodPost, "/api/cart/checkout", nil, member)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "empty_order", decodeError(t, rec).Code)

	rec = do(t, srv, http.MethodGet, "/api/receipts/"+receipt.Data.ReceiptBarcode, nil, member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/receipts/"+receipt.Data.ReceiptBarcode+"/disposals", disposalRequest{ProductCode: "4006381333931"}, member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/bins?flagged=true", nil, member)
	require.Equal(t, http.StatusOK, rec.Code)
	var bins struct {
		Data []struct {
			CategoryID int64 `json:"category_id"`
			StoreID    int64 `json:"store_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bins))
	require.Len(t, bins.Data, 1)
	assert.Equal(t, int64(1), bins.Data[0].CategoryID)
	assert.Equal(t, int64(7), bins.Data[0].StoreID)
}

func TestDeniedCartStoreIsNotPinned(t *testing.T) {
	srv, _ := newTestServer(t)
	member := login(t, srv, "member@example.com")

	rec := do(t, srv, http.MethodPost, "/api/cart", map[string]int64{"store_id": 9}, member)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", decodeError(t, rec).Code)

	rec = do(t, srv, http.MethodPost, "/api/cart/lines", map[string]int64{"product_id": 10, "quantity": 1}, member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/cart", nil, member)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart struct {
		Data cartView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Equal(t, "100001", cart.Data.OrderID)
	require.Len(t, cart.Data.Lines, 1)
}

func TestMemberChangesOwnReceiptLine(t *testing.T) {
	srv, db := newTestServer(t)
	member := login(t, srv, "member@example.com")
	viewer := login(t, srv, "viewer@example.com")

	rec := do(t, srv, http.MethodPost, "/api/cart/lines", map[string]int64{"product_id": 10, "quantity": 2}, member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var added struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	rec = do(t, srv, http.MethodPost, "/api/cart/checkout", nil, member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	path := fmt.Sprintf("/api/orders/%d", added.Data.ID)
	rec = do(t, srv, http.MethodPatch, path, map[string]int64{"quantity": 1}, viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodPatch, path, map[string]int64{"quantity": 1}, member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodDelete, path, nil, member)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var stock int64
	require.NoError(t, db.Raw(`SELECT stock_quantity FROM tbl_products WHERE products_id = 10`).Scan(&stock).Error)
	assert.Equal(t, int64(5), stock)
}

func TestMapErrorDefaultsToInternal(t *testing.T) {
	status, payload := mapError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", payload.Type)

	kind, code := classifyErrorForLog(access.ErrPermissionDenied)
	assert.Equal(t, "forbidden", kind)
	assert.Equal(t, "permission_denied", code)
}
