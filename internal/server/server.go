package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/audit"
	auditdomain "github.com/smallbiznis/trashforcoin/internal/audit/domain"
	"github.com/smallbiznis/trashforcoin/internal/auth"
	authdomain "github.com/smallbiznis/trashforcoin/internal/auth/domain"
	"github.com/smallbiznis/trashforcoin/internal/auth/session"
	"github.com/smallbiznis/trashforcoin/internal/authorization"
	"github.com/smallbiznis/trashforcoin/internal/bin"
	bindomain "github.com/smallbiznis/trashforcoin/internal/bin/domain"
	"github.com/smallbiznis/trashforcoin/internal/cartsession"
	"github.com/smallbiznis/trashforcoin/internal/category"
	categorydomain "github.com/smallbiznis/trashforcoin/internal/category/domain"
	"github.com/smallbiznis/trashforcoin/internal/cloudmetrics"
	"github.com/smallbiznis/trashforcoin/internal/config"
	"github.com/smallbiznis/trashforcoin/internal/inventory"
	inventorydomain "github.com/smallbiznis/trashforcoin/internal/inventory/domain"
	"github.com/smallbiznis/trashforcoin/internal/observability"
	obsmiddleware "github.com/smallbiznis/trashforcoin/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/trashforcoin/internal/observability/metrics"
	obstracing "github.com/smallbiznis/trashforcoin/internal/observability/tracing"
	"github.com/smallbiznis/trashforcoin/internal/order"
	orderdomain "github.com/smallbiznis/trashforcoin/internal/order/domain"
	"github.com/smallbiznis/trashforcoin/internal/product"
	productdomain "github.com/smallbiznis/trashforcoin/internal/product/domain"
	"github.com/smallbiznis/trashforcoin/internal/ratelimit"
	"github.com/smallbiznis/trashforcoin/internal/report"
	reportdomain "github.com/smallbiznis/trashforcoin/internal/report/domain"
	"github.com/smallbiznis/trashforcoin/internal/seed"
	"github.com/smallbiznis/trashforcoin/internal/store"
	storedomain "github.com/smallbiznis/trashforcoin/internal/store/domain"
	"github.com/smallbiznis/trashforcoin/internal/user"
	userdomain "github.com/smallbiznis/trashforcoin/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ratelimit.Module,
	cartsession.Module,
	authorization.Module,
	audit.Module,
	auth.Module,
	store.Module,
	user.Module,
	category.Module,
	inventory.Module,
	bin.Module,
	product.Module,
	order.Module,
	report.Module,
	seed.Module,
	cloudmetrics.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	authsvc      authdomain.Service
	sessions     *session.Manager
	carts        cartsession.Store
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	storeSvc     storedomain.Service
	userSvc      userdomain.Service
	categorySvc  categorydomain.Service
	productSvc   productdomain.Service
	inventorySvc inventorydomain.Service
	binSvc       bindomain.Tracker
	orderSvc     orderdomain.Service
	reportSvc    reportdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	Carts        cartsession.Store
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	StoreSvc     storedomain.Service
	UserSvc      userdomain.Service
	CategorySvc  categorydomain.Service
	ProductSvc   productdomain.Service
	InventorySvc inventorydomain.Service
	BinSvc       bindomain.Tracker
	OrderSvc     orderdomain.Service
	ReportSvc    reportdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		carts:        p.Carts,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		storeSvc:     p.StoreSvc,
		userSvc:      p.UserSvc,
		categorySvc:  p.CategorySvc,
		productSvc:   p.ProductSvc,
		inventorySvc: p.InventorySvc,
		binSvc:       p.BinSvc,
		orderSvc:     p.OrderSvc,
		reportSvc:    p.ReportSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authRoutes := s.engine.Group("/auth")

	authRoutes.POST("/login", s.Login)
	authRoutes.POST("/logout", s.Logout)
	authRoutes.GET("/me", s.AuthRequired(), s.Me)
	authRoutes.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	stores := api.Group("/stores")
	{
		stores.GET("", s.Authorize(access.ResourceStore, access.ActionRead), s.ListStores)
		stores.POST("", s.Authorize(access.ResourceStore, access.ActionCreate), s.CreateStore)
		stores.GET("/:id", s.Authorize(access.ResourceStore, access.ActionRead), s.GetStore)
		stores.PATCH("/:id", s.Authorize(access.ResourceStore, access.ActionUpdate), s.RenameStore)
	}

	users := api.Group("/users")
	{
		users.GET("", s.Authorize(access.ResourceUser, access.ActionRead), s.ListUsers)
		users.POST("", s.Authorize(access.ResourceUser, access.ActionCreate), s.CreateUser)
		users.GET("/:id", s.Authorize(access.ResourceUser, access.ActionRead), s.GetUser)
		users.PATCH("/:id", s.Authorize(access.ResourceUser, access.ActionUpdate), s.UpdateUser)
		users.PUT("/:id/store", s.Authorize(access.ResourceUser, access.ActionUpdate), s.AssignUserStore)
		users.DELETE("/:id", s.Authorize(access.ResourceUser, access.ActionDelete), s.DeleteUser)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", s.Authorize(access.ResourceCategory, access.ActionRead), s.ListCategories)
		categories.POST("", s.Authorize(access.ResourceCategory, access.ActionCreate), s.CreateCategory)
		categories.GET("/:id", s.Authorize(access.ResourceCategory, access.ActionRead), s.GetCategory)
		categories.PATCH("/:id", s.Authorize(access.ResourceCategory, access.ActionUpdate), s.RenameCategory)
		categories.DELETE("/:id", s.Authorize(access.ResourceCategory, access.ActionDelete), s.DeleteCategory)
	}

	products := api.Group("/products")
	{
		products.GET("", s.Authorize(access.ResourceProduct, access.ActionRead), s.ListProducts)
		products.POST("", s.Authorize(access.ResourceProduct, access.ActionCreate), s.CreateProduct)
		products.GET("/lookup/:code", s.Authorize(access.ResourceProduct, access.ActionRead), s.LookupProduct)
		products.GET("/:id", s.Authorize(access.ResourceProduct, access.ActionRead), s.GetProduct)
		products.PATCH("/:id", s.Authorize(access.ResourceProduct, access.ActionUpdate), s.UpdateProduct)
		products.DELETE("/:id", s.Authorize(access.ResourceProduct, access.ActionDelete), s.DeleteProduct)
		products.GET("/:id/barcode", s.Authorize(access.ResourceProduct, access.ActionRead), s.ProductBarcode)
		products.GET("/:id/movements", s.Authorize(access.ResourceProduct, access.ActionRead), s.ListStockMovements)
	}

	orders := api.Group("/orders")
	{
		orders.GET("", s.Authorize(access.ResourceOrder, access.ActionRead), s.ListOrderLines)
		orders.POST("", s.Authorize(access.ResourceOrder, access.ActionCreate), s.CreateOrderLine)
		orders.GET("/:id", s.Authorize(access.ResourceOrder, access.ActionRead), s.GetOrderLine)
		orders.PATCH("/:id", s.AuthorizeAny(access.ActionUpdate, access.ResourceOrder, access.ResourceBin), s.EditOrderLine)
		orders.DELETE("/:id", s.AuthorizeAny(access.ActionDelete, access.ResourceOrder, access.ResourceBin), s.DeleteOrderLine)
	}

	receipts := api.Group("/receipts")
	{
		receipts.GET("/:barcode", s.Authorize(access.ResourceOrder, access.ActionRead), s.ReceiptLines)
		receipts.POST("/:barcode/disposals", s.Authorize(access.ResourceBin, access.ActionUpdate), s.AddDisposal)
	}

	cart := api.Group("/cart")
	{
		cart.GET("", s.Authorize(access.ResourceCart, access.ActionRead), s.GetCart)
		cart.POST("", s.Authorize(access.ResourceCart, access.ActionCreate), s.AllocateCart)
		cart.POST("/lines", s.Authorize(access.ResourceCart, access.ActionCreate), s.AddCartLine)
		cart.POST("/scan", s.Authorize(access.ResourceCart, access.ActionCreate), s.ScanCartLine)
		cart.PATCH("/lines/:id", s.Authorize(access.ResourceCart, access.ActionUpdate), s.EditCartLine)
		cart.DELETE("/lines/:id", s.Authorize(access.ResourceCart, access.ActionDelete), s.RemoveCartLine)
		cart.POST("/checkout", s.Authorize(access.ResourceCart, access.ActionUpdate), s.Checkout)
	}

	api.GET("/bins", s.Authorize(access.ResourceBin, access.ActionRead), s.ListBins)

	reports := api.Group("/reports", s.Authorize(access.ResourceReport, access.ActionRead))
	{
		reports.GET("/dashboard", s.Dashboard)
		reports.GET("/orders", s.OrdersReport)
	}

	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
