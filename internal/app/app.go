package app

import (
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/talkincode/toughcrm/config"
	"github.com/talkincode/toughcrm/internal/auth"
	"github.com/talkincode/toughcrm/internal/csvbridge"
	"github.com/talkincode/toughcrm/internal/domain"
	"github.com/talkincode/toughcrm/internal/metrics"
	"github.com/talkincode/toughcrm/internal/registry"
)

type Application struct {
	appConfig *config.AppConfig
	clients   *registry.Registry[domain.Client]
	invoices  *registry.Registry[domain.Invoice]
	products  *registry.Registry[domain.Product]
	hasher    *auth.Hasher
	users     *auth.UserStore
	bridge    *csvbridge.Bridge
	bus       EventBus.Bus
	metrics   *metrics.Metrics
	snapshots *SnapshotStore
	sched     *cron.Cron
	jobs      []jobSpec
}

// Ensure Application implements all interfaces
var (
	_ ConfigProvider   = (*Application)(nil)
	_ RegistryProvider = (*Application)(nil)
	_ UserProvider     = (*Application)(nil)
	_ BridgeProvider   = (*Application)(nil)
	_ MetricsProvider  = (*Application)(nil)
	_ JobProvider      = (*Application)(nil)
	_ AppContext       = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Clients() *registry.Registry[domain.Client] {
	return a.clients
}

func (a *Application) Invoices() *registry.Registry[domain.Invoice] {
	return a.invoices
}

func (a *Application) Products() *registry.Registry[domain.Product] {
	return a.products
}

func (a *Application) Users() *auth.UserStore {
	return a.users
}

func (a *Application) Bridge() *csvbridge.Bridge {
	return a.bridge
}

func (a *Application) Metrics() *metrics.Metrics {
	return a.metrics
}

// Init wires every component. The global zap logger must already be set up
// (see InitLogger); tests run with zap's no-op default.
func (a *Application) Init() (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			err = errors.Errorf("application init panic: %v", err1)
		}
	}()

	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
		loc = time.Local
	}

	a.metrics, err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		return err
	}

	a.clients = registry.New[domain.Client](domain.TableClients)
	a.invoices = registry.New[domain.Invoice](domain.TableInvoices)
	a.products = registry.New[domain.Product](domain.TableProducts)

	generated, err := cfg.EnsureWebSecret()
	if err != nil {
		return err
	}
	if generated {
		zap.L().Warn("web.secret is not configured, signing tokens with a random per-process secret")
	}

	a.hasher = auth.NewHasher(cfg.Security.BcryptCost)
	a.users, err = auth.NewUserStore(a.hasher, auth.NewTokenManager(cfg.Web.Secret, cfg.TokenTTL()))
	if err != nil {
		return err
	}
	a.bridge = csvbridge.New(a.clients, a.invoices, a.hasher, cfg.Security.ImportWorkers)

	a.bus = EventBus.New()
	if err := a.subscribeEvents(); err != nil {
		return err
	}

	if cfg.Database.Type == "bolt" {
		a.snapshots, err = OpenSnapshotStore(cfg.Database.Path)
		if err != nil {
			return err
		}
		if err := a.restoreSnapshot(); err != nil {
			return err
		}
	}
	zap.S().Infof("Registry storage ready, type: %s", cfg.Database.Type)

	return a.initJob(loc)
}

// Release stops jobs, flushes the last snapshot and closes stores
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}

	if a.snapshots != nil {
		if err := a.SaveSnapshot(); err != nil {
			zap.L().Error("final snapshot failed", zap.Error(err))
		}
		_ = a.snapshots.Close()
	}

	if a.metrics != nil {
		_ = a.metrics.Close()
	}
	_ = zap.L().Sync()
}
