package rpc

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/metric"
)

const (
	headerContentType = "Content-Type"
	applicationJson   = "application/json"

	metricsScopeJRPCAPI = "jrpc_api"
	metricsScopeRESTAPI = "rest_api"

	DefaultMaxBodyBytes           int64 = 1048576 // 1MB
	DefaultBatchItemLimit         int   = 100
	DefaultBatchResponseSizeLimit int   = int(DefaultMaxBodyBytes)
)

var allowedCORSHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Origin", headerContentType, headerCaller, headerNonce, headerSignature}

type (
	// Registrar registers new HTTP handlers for given router.
	Registrar interface {
		Register(r *mux.Router)
	}

	// RegistrarFunc type is an adapter to allow the use of ordinary function as Registrar.
	RegistrarFunc func(r *mux.Router)

	Observability interface {
		Meter(name string, opts ...metric.MeterOption) metric.Meter
		Logger() *slog.Logger
	}

	API struct {
		Namespace string
		Service   any
	}

	ServerConfiguration struct {
		// Address specifies the TCP address for the server to listen on, in the form "host:port".
		Address string

		ReadTimeout       time.Duration
		ReadHeaderTimeout time.Duration
		WriteTimeout      time.Duration
		IdleTimeout       time.Duration

		// MaxBodyBytes is the maximum size of the request body, DefaultMaxBodyBytes when zero.
		MaxBodyBytes int64

		// BatchItemLimit is the maximum number of requests in a JSON-RPC batch.
		BatchItemLimit int

		// BatchResponseSizeLimit is the maximum number of response bytes across all requests in a batch.
		BatchResponseSizeLimit int

		// APIs contains JSON-RPC services to be registered.
		APIs []API
	}
)

func (c *ServerConfiguration) IsAddressEmpty() bool {
	return strings.TrimSpace(c.Address) == ""
}

/*
NewHTTPServer creates server which serves REST API (registered by "registrars")
under /api/v1 and JSON-RPC API (conf.APIs) under /rpc, both over HTTP and
websocket.
*/
func NewHTTPServer(conf *ServerConfiguration, obs Observability, registrars ...Registrar) (*http.Server, error) {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(http.NotFound)
	restRouter := router.PathPrefix("/api/v1").Subrouter()
	restRouter.Use(
		handlers.CORS(handlers.AllowedHeaders(allowedCORSHeaders)),
		instrumentHTTP(obs.Meter(metricsScopeRESTAPI), obs.Logger()))
	for _, registrar := range registrars {
		registrar.Register(restRouter)
	}

	rpcServer := rpc.NewServer()
	batchItems, batchSize := conf.BatchItemLimit, conf.BatchResponseSizeLimit
	if batchItems <= 0 {
		batchItems = DefaultBatchItemLimit
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchResponseSizeLimit
	}
	rpcServer.SetBatchLimits(batchItems, batchSize)
	for _, api := range conf.APIs {
		if err := rpcServer.RegisterName(api.Namespace, api.Service); err != nil {
			return nil, fmt.Errorf("failed to register API %q: %w", api.Namespace, err)
		}
	}

	// subscriptions are available only over websocket
	router.Handle("/rpc", rpcServer.WebsocketHandler([]string{"*"})).Headers(
		"Connection", "Upgrade",
		"Upgrade", "websocket",
	)
	rpcRouter := router.PathPrefix("/rpc").Subrouter()
	rpcRouter.Handle("", rpcServer)
	rpcRouter.Use(handlers.CORS(handlers.AllowedHeaders(allowedCORSHeaders)))

	maxBody := conf.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &http.Server{
		Addr:              conf.Address,
		ReadTimeout:       conf.ReadTimeout,
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		WriteTimeout:      conf.WriteTimeout,
		IdleTimeout:       conf.IdleTimeout,
		Handler:           http.MaxBytesHandler(router, maxBody),
	}, nil
}

func (f RegistrarFunc) Register(r *mux.Router) {
	f(r)
}

// MetricsEndpoints registers /metrics route serving "handler", nothing is registered when it is nil.
func MetricsEndpoints(handler http.Handler) RegistrarFunc {
	return func(r *mux.Router) {
		if handler != nil {
			r.Handle("/metrics", handler).Methods(http.MethodGet, http.MethodOptions)
		}
	}
}
