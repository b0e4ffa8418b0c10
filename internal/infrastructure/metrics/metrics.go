package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	LedgerEntries  *prometheus.CounterVec
	TransferAmount prometheus.Histogram
	DebitDenials   prometheus.Counter

	// XP metrics
	XPGainsBuffered prometheus.Counter
	XPFlushes       prometheus.Counter
	XPFlushSize     prometheus.Histogram
	XPFlushFailures prometheus.Counter

	// Market metrics
	Trades        *prometheus.CounterVec
	TradeShares   prometheus.Histogram
	TicksTotal    prometheus.Counter
	TickDuration  prometheus.Histogram
	MarketEvents  *prometheus.CounterVec
	StockPrice    *prometheus.GaugeVec
	ListedSymbols prometheus.Gauge

	// Decay metrics
	DecaySweeps  prometheus.Counter
	DecayedTotal prometheus.Counter

	// Database metrics
	DBErrors *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		LedgerEntries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildbank_ledger_entries_total",
				Help: "Total ledger entries written by category",
			},
			[]string{"category"},
		),
		TransferAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "guildbank_transfer_amount",
			Help:    "Gift transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		DebitDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guildbank_debit_denials_total",
			Help: "Debits refused by the conditional balance check",
		}),

		XPGainsBuffered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guildbank_xp_gains_buffered_total",
			Help: "XP gains recorded into the write-back buffer",
		}),
		XPFlushes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guildbank_xp_flushes_total",
			Help: "XP buffer flushes completed",
		}),
		XPFlushSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "guildbank_xp_flush_size",
			Help:    "Number of keys written per XP flush",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
		}),
		XPFlushFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guildbank_xp_flush_failures_total",
			Help: "XP flushes that failed and merged back",
		}),

		Trades: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildbank_trades_total",
				Help: "Executed trades by side",
			},
			[]string{"side"},
		),
		TradeShares: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "guildbank_trade_shares",
			Help:    "Shares per executed trade",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
		}),
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guildbank_market_ticks_total",
			Help: "Completed market ticks",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "guildbank_market_tick_duration_seconds",
			Help:    "Duration of one market tick",
			Buckets: prometheus.DefBuckets,
		}),
		MarketEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildbank_market_events_total",
				Help: "Market-wide surge and crash events",
			},
			[]string{"kind"},
		),
		StockPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "guildbank_stock_price",
				Help: "Current stock price",
			},
			[]string{"symbol"},
		),
		ListedSymbols: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "guildbank_listed_symbols",
			Help: "Number of listed, non-delisted symbols",
		}),

		DecaySweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guildbank_decay_sweeps_total",
			Help: "Completed decay sweeps",
		}),
		DecayedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guildbank_decayed_amount_total",
			Help: "Total currency removed by decay",
		}),

		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildbank_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),
	}
}
