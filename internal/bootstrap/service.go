package bootstrap

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cronos-labs/xdr/internal/adapters/cache"
	"github.com/cronos-labs/xdr/internal/adapters/eventbus"
	"github.com/cronos-labs/xdr/internal/adapters/httpin"
	"github.com/cronos-labs/xdr/internal/domain/chaos"
	"github.com/cronos-labs/xdr/internal/domain/forwarder"
	"github.com/cronos-labs/xdr/internal/domain/ledger"
	"github.com/cronos-labs/xdr/internal/domain/minter"
	"github.com/cronos-labs/xdr/internal/domain/pipeline"
	"github.com/cronos-labs/xdr/internal/domain/trace"
	"github.com/cronos-labs/xdr/pkg/mlog"
)

const microPerUnit = 1_000_000

// Service holds every wired-up component of one running XDR instance.
type Service struct {
	Router *httpin.Deps

	cacheMirror *cache.Mirror
	eventBus    *eventbus.Publisher
}

// NewService builds a Service from cfg, wiring the optional Redis mirror and
// RabbitMQ trace publisher when their URLs are configured.
func NewService(cfg *Config, logger mlog.Logger) *Service {
	mirror := cache.NewMirror(cfg.RedisURL, logger)
	publisher := eventbus.NewPublisher(cfg.RabbitMQURL, logger)

	ldgr := ledger.New(mirror)
	chaosEngine := chaos.NewEngine(chaos.DefaultConfig())
	mntr := minter.New()
	fwd := forwarder.New(forwarder.Config{
		UseHTTP: cfg.ForwarderUseHTTP,
		Timeout: time.Duration(cfg.ForwarderTimeoutS) * time.Second,
	})
	traceBuf := trace.NewBuffer(publisher)

	priceMicro := decimal.NewFromFloat(cfg.PricePerRequestUSDC).
		Mul(decimal.NewFromInt(microPerUnit)).
		Round(0).
		IntPart()

	profile := pipeline.NetworkProfile{
		ChainID:              cfg.ChainID,
		PricePerRequestMicro: priceMicro,
		CurrencyLabel:        cfg.CurrencyLabel,
		RecipientAddress:     cfg.RecipientAddress,
	}

	pl := pipeline.New(profile, ldgr, chaosEngine, mntr, fwd, traceBuf)

	deps := httpin.Deps{
		Pipeline: pl,
		Ledger:   ldgr,
		Chaos:    chaosEngine,
		Trace:    traceBuf,
		Logger:   logger,
		Version:  cfg.Version,
	}

	return &Service{Router: &deps, cacheMirror: mirror, eventBus: publisher}
}
