package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/internal/cart"
	"github.com/nqtuan-dev/vietshop-backend/internal/checkout"
	ordersvc "github.com/nqtuan-dev/vietshop-backend/internal/orders"
	paymentsvc "github.com/nqtuan-dev/vietshop-backend/internal/payments"
	subordersvc "github.com/nqtuan-dev/vietshop-backend/internal/suborders"
	vouchersvc "github.com/nqtuan-dev/vietshop-backend/internal/vouchers"
	pkgauth "github.com/nqtuan-dev/vietshop-backend/pkg/auth"
	"github.com/nqtuan-dev/vietshop-backend/pkg/config"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
	"github.com/nqtuan-dev/vietshop-backend/pkg/pagination"
	"github.com/nqtuan-dev/vietshop-backend/pkg/redis"
	"github.com/nqtuan-dev/vietshop-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubCartService struct {
	get func(ctx context.Context, owner cart.Identifier) (*cart.Projection, error)
}

func (s stubCartService) Get(ctx context.Context, owner cart.Identifier) (*cart.Projection, error) {
	if s.get != nil {
		return s.get(ctx, owner)
	}
	return &cart.Projection{}, nil
}

func (stubCartService) AddItem(ctx context.Context, owner cart.Identifier, variantID uuid.UUID, quantity int) error {
	return nil
}

func (stubCartService) UpdateQuantity(ctx context.Context, owner cart.Identifier, variantID uuid.UUID, quantity int) error {
	return nil
}

func (stubCartService) RemoveItem(ctx context.Context, owner cart.Identifier, variantID uuid.UUID) error {
	return nil
}

func (stubCartService) Clear(ctx context.Context, owner cart.Identifier) error {
	return nil
}

func (stubCartService) Lines(ctx context.Context, owner cart.Identifier) (types.QuantityMap, error) {
	return types.QuantityMap{}, nil
}

func (stubCartService) RemoveLines(ctx context.Context, owner cart.Identifier, variantIDs []uuid.UUID) error {
	return nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Execute(ctx context.Context, userID uuid.UUID, input checkout.Input) (*checkout.Result, error) {
	panic("unimplemented")
}

type stubOrdersService struct{}

func (stubOrdersService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.MasterOrder, error) {
	panic("unimplemented")
}

func (stubOrdersService) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ordersvc.OrderList, error) {
	return &ordersvc.OrderList{}, nil
}

type stubSubOrdersService struct {
	list func(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters subordersvc.ShopFilters) (*subordersvc.ShopSubOrderList, error)
}

func (stubSubOrdersService) TransitionStatus(ctx context.Context, shopID, subOrderID uuid.UUID, target enums.SubOrderStatus) (*models.SubOrder, error) {
	panic("unimplemented")
}

func (stubSubOrdersService) BuyerCancel(ctx context.Context, userID, subOrderID uuid.UUID, reason string) (*models.SubOrder, error) {
	panic("unimplemented")
}

func (stubSubOrdersService) SellerCancel(ctx context.Context, shopID, subOrderID uuid.UUID, reason string) (*models.SubOrder, error) {
	panic("unimplemented")
}

func (stubSubOrdersService) ResolveCancelRequest(ctx context.Context, shopID, subOrderID uuid.UUID, approve bool) (*models.SubOrder, error) {
	panic("unimplemented")
}

func (s stubSubOrdersService) ListShopSubOrders(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters subordersvc.ShopFilters) (*subordersvc.ShopSubOrderList, error) {
	if s.list != nil {
		return s.list(ctx, shopID, params, filters)
	}
	return &subordersvc.ShopSubOrderList{}, nil
}

func (stubSubOrdersService) GetShopSubOrder(ctx context.Context, shopID, subOrderID uuid.UUID) (*models.SubOrder, error) {
	panic("unimplemented")
}

type stubPaymentsService struct {
	callback func(ctx context.Context, input paymentsvc.CallbackInput) (*paymentsvc.CallbackResult, error)
}

func (s stubPaymentsService) HandleGatewayCallback(ctx context.Context, input paymentsvc.CallbackInput) (*paymentsvc.CallbackResult, error) {
	if s.callback != nil {
		return s.callback(ctx, input)
	}
	return &paymentsvc.CallbackResult{}, nil
}

func (stubPaymentsService) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	panic("unimplemented")
}

func (stubPaymentsService) FindPaymentForSubOrder(ctx context.Context, tx *gorm.DB, subOrderID uuid.UUID) (*models.Payment, error) {
	panic("unimplemented")
}

type stubVouchersService struct{}

func (stubVouchersService) ValidateAndCalculate(ctx context.Context, tx *gorm.DB, input vouchersvc.ValidateInput) (*vouchersvc.Validated, error) {
	panic("unimplemented")
}

func (stubVouchersService) Apply(ctx context.Context, tx *gorm.DB, input vouchersvc.ApplyInput) error {
	panic("unimplemented")
}

func (stubVouchersService) RollbackUsage(ctx context.Context, tx *gorm.DB, masterOrderID uuid.UUID) error {
	panic("unimplemented")
}

func (stubVouchersService) CreateVoucher(ctx context.Context, input vouchersvc.CreateVoucherInput) (*models.Voucher, error) {
	panic("unimplemented")
}

func (stubVouchersService) ListShopVouchers(ctx context.Context, shopID uuid.UUID) ([]models.Voucher, error) {
	return []models.Voucher{}, nil
}

func (stubVouchersService) ListPlatformVouchers(ctx context.Context) ([]models.Voucher, error) {
	return []models.Voucher{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubCartService{},
		stubCheckoutService{},
		stubOrdersService{},
		stubSubOrdersService{},
		stubPaymentsService{},
		stubVouchersService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, shopID *uuid.UUID) string {
	t.Helper()
	now := time.Now()
	claims := pkgauth.AccessTokenClaims{
		UserID: uuid.New(),
		ShopID: shopID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestCheckoutRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartRejectsMissingCredentials(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials got %d", resp.Code)
	}
}

func TestCartAcceptsGuestToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("X-Guest-Token", "guest-abc123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for guest cart got %d", resp.Code)
	}
}

func TestCartAcceptsBearerToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for authenticated cart got %d", resp.Code)
	}
}

func TestShopGroupRequiresShopClaim(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	buyer := httptest.NewRequest(http.MethodGet, "/api/v1/shop/suborders/", nil)
	buyer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, buyer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer token got %d", resp.Code)
	}

	shopID := uuid.New()
	seller := httptest.NewRequest(http.MethodGet, "/api/v1/shop/suborders/", nil)
	seller.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, &shopID))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, seller)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller token got %d", resp.Code)
	}
}

func TestOrdersListWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for orders list got %d", resp.Code)
	}
}

func TestGatewayNotifyIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	body := `{"payment_id":"` + uuid.NewString() + `","result_code":"00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/gateway/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for gateway notify got %d", resp.Code)
	}
}

func TestPlatformVouchersArePublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vouchers/platform", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for platform vouchers got %d", resp.Code)
	}
}

func TestRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	claims := pkgauth.AccessTokenClaims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token got %d", resp.Code)
	}
}
