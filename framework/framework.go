package framework

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redhat/perf-tests-reporter/framework/config"
	"github.com/redhat/perf-tests-reporter/framework/pipeline"
	"github.com/redhat/perf-tests-reporter/framework/storage"
	"github.com/redhat/perf-tests-reporter/framework/store"

	"k8s.io/client-go/kubernetes"
)

// KubeClientFactory builds a Kubernetes client for a project's cluster. A nil
// config means no explicit project configuration.
type KubeClientFactory func(cfg *store.K8sConfig) (kubernetes.Interface, error)

// Framework ties the report workflow together: projects and tests in the
// store, evidence on disk, collectors and the report pipeline. It is safe for
// concurrent use.
type Framework struct {
	store          *store.Store
	storage        *storage.Storage
	config         *config.Config
	logger         *slog.Logger
	kubeClients    KubeClientFactory
	backendFactory pipeline.BackendFactory
	httpClient     *http.Client

	ownsStore bool
}

// Option is a function that configures the Framework
type Option func(*Framework)

// WithLogger sets a custom logger for the framework
func WithLogger(logger *slog.Logger) Option {
	return func(f *Framework) {
		f.logger = logger
	}
}

// WithConfig sets a custom configuration for the framework
func WithConfig(cfg *config.Config) Option {
	return func(f *Framework) {
		f.config = cfg
	}
}

// WithStore uses an already opened store. The caller keeps ownership.
func WithStore(s *store.Store) Option {
	return func(f *Framework) {
		f.store = s
	}
}

// WithStorage uses an existing artifact storage
func WithStorage(s *storage.Storage) Option {
	return func(f *Framework) {
		f.storage = s
	}
}

// WithKubeClientFactory replaces the client-go based client construction
func WithKubeClientFactory(factory KubeClientFactory) Option {
	return func(f *Framework) {
		f.kubeClients = factory
	}
}

// WithKubeClient uses one client for every project
func WithKubeClient(client kubernetes.Interface) Option {
	return func(f *Framework) {
		f.kubeClients = func(*store.K8sConfig) (kubernetes.Interface, error) {
			return client, nil
		}
	}
}

// WithBackendFactory replaces llm.New when building model backends
func WithBackendFactory(factory pipeline.BackendFactory) Option {
	return func(f *Framework) {
		f.backendFactory = factory
	}
}

// WithHTTPClient sets the client used for Grafana calls
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Framework) {
		f.httpClient = hc
	}
}

// New creates a Framework. Unless given through options, the store is opened
// at Config.DBPath and the storage rooted at Config.StoragePath.
func New(opts ...Option) (*Framework, error) {
	f := &Framework{
		logger:      slog.Default(),
		config:      config.FromEnv(),
		kubeClients: NewKubeClient,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.httpClient == nil {
		f.httpClient = &http.Client{Timeout: f.config.HTTPTimeout}
	}

	if f.storage == nil {
		s, err := storage.New(f.config.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		f.storage = s
	}

	if f.store == nil {
		s, err := store.Open(f.config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		f.store = s
		f.ownsStore = true
	}

	return f, nil
}

// Close releases the store if the framework opened it
func (f *Framework) Close() error {
	if f.ownsStore {
		return f.store.Close()
	}
	return nil
}

// Store returns the persistence layer
func (f *Framework) Store() *store.Store {
	return f.store
}

// Storage returns the artifact storage
func (f *Framework) Storage() *storage.Storage {
	return f.storage
}

// FrameworkConfig returns the framework configuration
func (f *Framework) FrameworkConfig() *config.Config {
	return f.config
}

// Logger returns the logger
func (f *Framework) Logger() *slog.Logger {
	return f.logger
}
