// daemon.go - Wiring and lifecycle of the ledger daemon.

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shadepool/shade/internal/api"
	"github.com/shadepool/shade/internal/config"
	"github.com/shadepool/shade/internal/custody"
	"github.com/shadepool/shade/internal/engine"
	"github.com/shadepool/shade/internal/merkle"
	"github.com/shadepool/shade/internal/note"
	"github.com/shadepool/shade/internal/registry"
	"github.com/shadepool/shade/internal/venue"
)

// Dev-mode accounts. A production deployment binds a chain-backed
// custody.Backend and real oracles instead.
var (
	orchestratorAddr = common.HexToAddress("0x00000000000000000000000000000000000005ad")
	poolAddr         = common.HexToAddress("0x0000000000000000000000000000000000000001")
	ownerAddr        = common.HexToAddress("0x0000000000000000000000000000000000000002")
	deskAddr         = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

// openOracle authorizes every depositor (dev mode).
type openOracle struct{}

func (openOracle) IsAuthorized(_, _ common.Address) bool { return true }

// openRelayers accepts every relayer (dev mode).
type openRelayers struct{}

func (openRelayers) IsRelayerRegistered(common.Address) bool { return true }

func run(ctx context.Context, c config.Config) error {
	log := newLogger(c.LogLevel)
	hasher := note.MiMC{}

	store, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer store.Close()

	gateway, err := buildGateway(c.DataDir, log)
	if err != nil {
		return err
	}

	bank := custody.NewBank()
	custodian := custody.New(bank, poolAddr, orchestratorAddr, ownerAddr)
	desk := venue.NewDesk(bank, deskAddr)

	bus := EventBus.New()
	metrics := engine.NewMetrics(prometheus.DefaultRegisterer)

	eng, err := engine.New(engine.Config{
		Hasher:            hasher,
		Tree:              merkle.New(hasher, c.TreeDepth, c.RootWindow),
		Registry:          store,
		Gateway:           gateway,
		Custodian:         custodian,
		Venue:             desk,
		Compliance:        openOracle{},
		Relayers:          openRelayers{},
		Bus:               bus,
		Logger:            log,
		Metrics:           metrics,
		Identity:          orchestratorAddr,
		FeeSink:           c.FeeSinkAddress(),
		FeeRatePerMillion: c.FeeRatePerMillion,
		SlippagePerMille:  c.SlippagePerMille,
	})
	if err != nil {
		return err
	}

	if err := bus.Subscribe(engine.ReceiptTopic, func(r *engine.Receipt) {
		log.Info().
			Str("operation", r.Operation).
			Str("root", r.Root.Hex()).
			Msg("receipt")
	}); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    c.Listen,
		Handler: api.NewServer(eng, log).Router(),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", c.Listen).Int("depth", c.TreeDepth).Msg("shaded up")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func openRegistry(c config.Config) (registry.Store, error) {
	if c.DataDir == "" {
		return registry.NewMemory(), nil
	}
	return registry.OpenBadger(c.DataDir)
}
