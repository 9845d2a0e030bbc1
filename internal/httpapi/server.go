package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ggufd/internal/manager"
	"ggufd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager implements it.
type Service interface {
	Load(ctx context.Context, path string, contextSize, gpuLayers uint32) (string, error)
	Unload(ctx context.Context, mode manager.UnloadMode) (string, error)
	Generate(ctx context.Context, req manager.GenerateRequest) (manager.GenerateResult, error)
	GenerateVision(ctx context.Context, req manager.VisionRequest) (manager.GenerateResult, error)
	Stream(ctx context.Context, req manager.GenerateRequest, emit func(types.StreamEvent) error) (manager.GenerateResult, error)
	Status() types.StatusResponse
	MemoryReport() types.MemoryReport
	Metadata(path string) (types.ModelMetadata, error)
	Backend() types.BackendInfo
	ListModels() []types.Model
	Ready() bool
}

var _ Service = (*manager.Manager)(nil)

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Content-Type", "X-Log-Level", "X-Request-Id"}),
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Post("/load", h.load)
	r.Post("/unload", h.unload)
	r.Post("/generate", h.generate)
	r.Post("/generate/vision", h.generateVision)

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, svc.Status()) })
	r.Get("/memory", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, svc.MemoryReport()) })
	r.Get("/backend", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, svc.Backend()) })
	r.Get("/metadata", h.metadata)
	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"models": svc.ListModels()})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no model loaded"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func orDefault(v, d []string) []string {
	if len(v) == 0 {
		return d
	}
	return v
}
