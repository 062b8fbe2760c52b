// Package orderd parses daemon flags and starts the order core runtime.
package orderd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/louisbranch/ordercore/internal/app"
	"github.com/louisbranch/ordercore/internal/domain/command"
	"github.com/louisbranch/ordercore/internal/domain/engine"
	"github.com/louisbranch/ordercore/internal/domain/event"
	"github.com/louisbranch/ordercore/internal/domain/order"
	"github.com/louisbranch/ordercore/internal/messaging"
	"github.com/louisbranch/ordercore/internal/messaging/kafka"
	"github.com/louisbranch/ordercore/internal/messaging/noop"
	entrypoint "github.com/louisbranch/ordercore/internal/platform/cmd"
	"github.com/louisbranch/ordercore/internal/projection"
	"github.com/louisbranch/ordercore/internal/storage/sqlite"
)

const journalFile = "orders.db"

// Config holds orderd daemon configuration.
type Config struct {
	DataDir       string        `env:"ORDERCORE_DATA_DIR" envDefault:"data"`
	RedisAddr     string        `env:"ORDERCORE_REDIS_ADDR"`
	KafkaBrokers  string        `env:"ORDERCORE_KAFKA_BROKERS"`
	KafkaTopic    string        `env:"ORDERCORE_KAFKA_TOPIC" envDefault:"order-events"`
	SnapshotEvery int           `env:"ORDERCORE_SNAPSHOT_EVERY" envDefault:"50"`
	CacheTTL      time.Duration `env:"ORDERCORE_CACHE_TTL" envDefault:"5m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory holding the order journal")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the view cache (empty disables caching)")
	fs.StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Comma-separated Kafka brokers (empty disables publishing)")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for order events")
	fs.IntVar(&cfg.SnapshotEvery, "snapshot-every", cfg.SnapshotEvery, "Events replayed before a new snapshot is written")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Runtime bundles the wired service with everything that needs closing.
type Runtime struct {
	Service app.Service

	store     *sqlite.Store
	redis     *redis.Client
	publisher messaging.Publisher
}

// NewRuntime opens the stores and wires the order core service.
func NewRuntime(cfg Config) (*Runtime, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	eventRegistry := event.NewRegistry()
	if err := order.RegisterEvents(eventRegistry); err != nil {
		return nil, err
	}
	commandRegistry := command.NewRegistry()
	if err := order.RegisterCommands(commandRegistry); err != nil {
		return nil, err
	}

	store, err := sqlite.Open(filepath.Join(cfg.DataDir, journalFile), eventRegistry)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{store: store}
	if cfg.RedisAddr != "" {
		rt.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	rt.publisher, err = buildPublisher(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	projector := projection.Projector{
		Events:        store,
		Snapshots:     store,
		Cache:         projection.NewViewCache(rt.redis, cfg.CacheTTL),
		Registry:      eventRegistry,
		SnapshotEvery: cfg.SnapshotEvery,
	}
	rt.Service = app.Service{
		Handler: engine.Handler{
			Commands: commandRegistry,
			Journal:  store,
			Loader:   projectionLoader{projector: projector},
			Decider:  engine.DeciderFunc(order.Decide),
		},
		Projector: projector,
		Publisher: rt.publisher,
		Verifier:  store,
	}
	return rt, nil
}

// Close releases the runtime's resources in reverse wiring order.
func (r *Runtime) Close() error {
	var errs []error
	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run starts the order core daemon and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceOrderd, func(ctx context.Context) error {
		rt, err := NewRuntime(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := rt.Close(); err != nil {
				log.WithError(err).Warn("runtime close failed")
			}
		}()

		log.WithFields(log.Fields{
			"data_dir":       cfg.DataDir,
			"redis":          cfg.RedisAddr != "",
			"kafka":          cfg.KafkaBrokers != "",
			"snapshot_every": cfg.SnapshotEvery,
		}).Info("order core ready")
		<-ctx.Done()
		return nil
	})
}

func buildPublisher(cfg Config) (messaging.Publisher, error) {
	if strings.TrimSpace(cfg.KafkaBrokers) == "" {
		return noop.Publisher{}, nil
	}
	var brokers []string
	for _, broker := range strings.Split(cfg.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return kafka.NewPublisher(brokers, cfg.KafkaTopic)
}

// projectionLoader feeds replayed state to the command engine. Commands and
// reads share one projection path; the optimistic append check catches any
// staleness a cached view lets through.
type projectionLoader struct {
	projector projection.Projector
}

func (l projectionLoader) Load(ctx context.Context, orderID string) (order.State, error) {
	return l.projector.Project(ctx, orderID)
}
