// Package handler implements the HTTP handlers for the CEP region API.
// All handlers are methods on Server. Methods are split into resource files
// (cep.go, product.go, barcode.go, ...) but share the same Server struct so
// they can reach its dependencies. Routes wires them into a chi router.
package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/service"
)

// CEPServicer defines the postal code operations the CEP handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or the upstream lookup.
type CEPServicer interface {
	Resolve(ctx context.Context, raw string) (domain.PostalRecord, error)
	Invalidate(ctx context.Context, raw string) error
	List(ctx context.Context, state string, p domain.PaginationParams) (domain.Page[domain.PostalRecord], error)
}

// ProductServicer defines the product operations.
type ProductServicer interface {
	Create(ctx context.Context, in service.ProductInput) (domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error)
	ListPaged(ctx context.Context, f domain.ProductFilter, p domain.PaginationParams) (domain.Page[domain.Product], error)
	Update(ctx context.Context, id uuid.UUID, in service.ProductInput) (domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BarcodeServicer defines the identifier operations.
type BarcodeServicer interface {
	Generate(ctx context.Context, productID uuid.UUID, region *int) (domain.Barcode, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Barcode, error)
	GetByFullCode(ctx context.Context, code string) (domain.Barcode, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Barcode, error)
	ListPaged(ctx context.Context, region *int, p domain.PaginationParams) (domain.Page[domain.Barcode], error)
	RecordDownload(ctx context.Context, id uuid.UUID) (domain.Barcode, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Validate(code string) domain.ScanResult
	Scan(code string) (domain.ScanResult, error)
}

// StatsServicer defines the statistics reads.
type StatsServicer interface {
	Summary(ctx context.Context) (domain.Summary, error)
	CacheStats(ctx context.Context) (domain.CacheStats, error)
}

// Server holds the services behind every endpoint.
type Server struct {
	ceps     CEPServicer
	products ProductServicer
	barcodes BarcodeServicer
	stats    StatsServicer
	validate *validator.Validate
	openapi  []byte
}

// Option configures optional Server behaviour.
type Option func(*Server)

// WithOpenAPI makes the server serve doc at GET /openapi.yaml.
func WithOpenAPI(doc []byte) Option {
	return func(s *Server) { s.openapi = doc }
}

// NewServer constructs the Server with all its dependencies.
// Any servicer may be nil; its routes are then not registered.
func NewServer(ceps CEPServicer, products ProductServicer, barcodes BarcodeServicer, stats StatsServicer, opts ...Option) *Server {
	s := &Server{
		ceps:     ceps,
		products: products,
		barcodes: barcodes,
		stats:    stats,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Routes returns a router with every endpoint the configured services support.
// Middleware is applied by the caller.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", s.GetHealth)
	if s.openapi != nil {
		r.Get("/openapi.yaml", s.GetOpenAPI)
	}

	r.Route("/regions", func(r chi.Router) {
		r.Get("/", s.ListRegions)
		r.Get("/search", s.SearchRegions)
		r.Get("/states", s.ListStates)
		r.Get("/state/{uf}", s.GetStateRegion)
		r.Get("/{id}", s.GetRegion)
		r.Get("/{id}/states", s.ListRegionStates)
	})

	if s.ceps != nil {
		r.Route("/cep", func(r chi.Router) {
			r.Get("/", s.ListPostalCodes)
			r.Get("/{cep}", s.GetPostalCode)
			r.Get("/{cep}/validate", s.ValidatePostalCode)
			r.Get("/{cep}/format", s.FormatPostalCode)
			r.Delete("/{cep}", s.DeletePostalCode)
		})
	}

	if s.products != nil {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", s.CreateProduct)
			r.Get("/", s.ListProducts)
			r.Get("/{id}", s.GetProduct)
			r.Put("/{id}", s.UpdateProduct)
			r.Delete("/{id}", s.DeleteProduct)
			if s.barcodes != nil {
				r.Get("/{id}/barcodes", s.ListProductBarcodes)
			}
		})
	}

	if s.barcodes != nil {
		r.Route("/barcodes", func(r chi.Router) {
			r.Post("/", s.CreateBarcode)
			r.Get("/", s.ListBarcodes)
			r.Get("/code/{code}", s.GetBarcodeByCode)
			r.Get("/validate/{code}", s.ValidateBarcode)
			r.Get("/scan/{code}", s.ScanBarcode)
			r.Get("/{id}", s.GetBarcode)
			r.Delete("/{id}", s.DeleteBarcode)
			r.Post("/{id}/downloads", s.RecordBarcodeDownload)
		})
	}

	if s.stats != nil {
		r.Get("/stats", s.GetStats)
		r.Get("/stats/cep", s.GetCacheStats)
	}
	return r
}

// newValidator reports fields by their JSON names so messages match the
// request body the client sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
