package httpserver

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tienda-barrio/internal/catalog"
	"tienda-barrio/internal/domain"
	sessionrepo "tienda-barrio/internal/repository/session"
	categorysvc "tienda-barrio/internal/service/category"
	productsvc "tienda-barrio/internal/service/product"
)

type ProductService interface {
	List(ctx context.Context, f catalog.Filter) ([]domain.Product, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in productsvc.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	CreateVariant(ctx context.Context, productID string, in productsvc.VariantInput) (*domain.Variant, error)
	UpdateVariant(ctx context.Context, productID, variantID string, in productsvc.VariantInput) (*domain.Variant, error)
	DeleteVariant(ctx context.Context, productID, variantID string) error
}

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, in categorysvc.Input) (*domain.Category, error)
	Update(ctx context.Context, id string, in categorysvc.Input) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
}

type AdminService interface {
	Login(ctx context.Context, password string) (*sessionrepo.Session, error)
	Validate(ctx context.Context, token string) (*sessionrepo.Session, error)
	Logout(ctx context.Context, token string) error
}

// Deps are the services behind the routes. Metrics and Gatherer are optional.
type Deps struct {
	ProductSvc   ProductService
	CategorySvc  CategoryService
	AdminSvc     AdminService
	Metrics      *Metrics
	Gatherer     prometheus.Gatherer
	CORSOrigins  []string
	CookieSecure bool
}

var registerTagName sync.Once

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, db Pinger, deps Deps) (*gin.Engine, error) {
	if deps.ProductSvc == nil || deps.CategorySvc == nil || deps.AdminSvc == nil {
		return nil, errors.New("httpserver: product, category and admin services are required")
	}
	registerTagName.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonTagName)
		}
	})

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), deps.Metrics.middleware())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	h := &handlers{
		products:     deps.ProductSvc,
		categories:   deps.CategorySvc,
		admin:        deps.AdminSvc,
		logger:       logger,
		cookieSecure: deps.CookieSecure,
	}

	api := router.Group("/api")
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.GET("/categories", h.listCategories)

	adm := api.Group("/admin")
	adm.POST("/login", h.login)

	secured := adm.Group("")
	secured.Use(adminAuth(deps.AdminSvc))
	secured.POST("/logout", h.logout)
	secured.GET("/products", h.adminListProducts)
	secured.POST("/products", h.createProduct)
	secured.GET("/products/:id", h.getProduct)
	secured.PUT("/products/:id", h.updateProduct)
	secured.DELETE("/products/:id", h.deleteProduct)
	secured.POST("/products/:id/variants", h.createVariant)
	secured.PUT("/products/:id/variants/:variantId", h.updateVariant)
	secured.DELETE("/products/:id/variants/:variantId", h.deleteVariant)
	secured.GET("/categories", h.listCategories)
	secured.POST("/categories", h.createCategory)
	secured.PUT("/categories/:id", h.updateCategory)
	secured.DELETE("/categories/:id", h.deleteCategory)

	return router, nil
}

func jsonTagName(f reflect.StructField) string {
	tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if tag == "" || tag == "-" {
		return f.Name
	}
	return tag
}
