package indexer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"marketScope/internal/metrics"
	"marketScope/internal/model"
)

// EventDecoder converts raw logs into tagged chain events and exposes the
// event signature for each kind.
type EventDecoder interface {
	Decode(log types.Log) (model.ChainEvent, error)
	Topic0(kind model.EventKind) (common.Hash, error)
}

// State is the sync loop lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateBootstrapping
	StatePolling
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateBootstrapping:
		return "bootstrapping"
	case StatePolling:
		return "polling"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Config holds runtime settings for the sync service.
type Config struct {
	NFTAddress         common.Address
	MarketplaceAddress common.Address
	WindowSize         uint64
	PollInterval       time.Duration
	ReconnectDelay     time.Duration
	MaxReconnects      int
}

func (c *Config) applyDefaults() {
	if c.WindowSize == 0 {
		c.WindowSize = 100
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = 5
	}
}

// watch is one (contract, event signature) log stream.
type watch struct {
	contract common.Address
	kind     model.EventKind
	topic0   common.Hash
}

// Service drives the sync state machine:
// stopped -> bootstrapping -> polling <-> reconnecting -> stopped.
// There is exactly one logical writer; the only concurrency control is the
// single-slot busy guard that drops overlapping poll ticks.
type Service struct {
	cfg         Config
	reader      ChainReader
	decoder     EventDecoder
	checkpoints *CheckpointManager
	dispatcher  *Dispatcher
	logger      *zap.Logger
	metrics     *metrics.Metrics

	watches []watch

	state    atomic.Int32
	busy     atomic.Bool
	inFlight sync.WaitGroup
	errCh    chan error
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
}

// New builds a sync service with its dependencies.
func New(cfg Config, reader ChainReader, decoder EventDecoder, checkpoints *CheckpointManager, dispatcher *Dispatcher, logger *zap.Logger, m *metrics.Metrics) (*Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("chain reader is nil")
	}
	if decoder == nil {
		return nil, fmt.Errorf("event decoder is nil")
	}
	if checkpoints == nil {
		return nil, fmt.Errorf("checkpoint manager is nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	watches := make([]watch, 0, 8)
	for _, kind := range model.NFTEventKinds() {
		topic0, err := decoder.Topic0(kind)
		if err != nil {
			return nil, err
		}
		watches = append(watches, watch{contract: cfg.NFTAddress, kind: kind, topic0: topic0})
	}
	for _, kind := range model.MarketplaceEventKinds() {
		topic0, err := decoder.Topic0(kind)
		if err != nil {
			return nil, err
		}
		watches = append(watches, watch{contract: cfg.MarketplaceAddress, kind: kind, topic0: topic0})
	}

	return &Service{
		cfg:         cfg,
		reader:      reader,
		decoder:     decoder,
		checkpoints: checkpoints,
		dispatcher:  dispatcher,
		logger:      logger,
		metrics:     m,
		watches:     watches,
		errCh:       make(chan error, 1),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) setState(state State) {
	s.state.Store(int32(state))
}

// Start launches the sync loop: historical catch-up from the checkpoint, then
// fixed-interval polling. It returns an error if the service already ran.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("sync service already started")
	}
	s.started = true
	s.setState(StateBootstrapping)

	go s.run(ctx)
	return nil
}

// Stop halts the loop. It is idempotent and takes effect at the next loop
// boundary: a window already being applied runs to completion first.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
	})
}

// Done is closed once the loop has fully stopped, including any tick sync
// still in flight when Stop was called.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(StateStopped)
	defer s.inFlight.Wait()

	s.logger.Info("historical sync start",
		zap.String("nft", s.cfg.NFTAddress.Hex()),
		zap.String("marketplace", s.cfg.MarketplaceAddress.Hex()),
		zap.Uint64("window_size", s.cfg.WindowSize))

	if err := s.syncToHead(ctx); err != nil {
		s.logger.Warn("historical sync failed", zap.Error(err))
		if !s.reconnect(ctx) {
			return
		}
	}

	s.setState(StatePolling)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		case err := <-s.errCh:
			s.logger.Warn("sync failed", zap.Error(err))
			if !s.reconnect(ctx) {
				return
			}
		case <-ticker.C:
			if !s.busy.CompareAndSwap(false, true) {
				s.logger.Debug("sync in flight, tick dropped")
				s.metrics.TickSkipped()
				continue
			}
			s.inFlight.Add(1)
			go func() {
				defer s.inFlight.Done()
				defer s.busy.Store(false)
				if err := s.syncToHead(ctx); err != nil {
					select {
					case s.errCh <- err:
					default:
					}
				}
			}()
		}
	}
}

// reconnect retries the provider with a fixed delay. It returns false once
// the attempt budget is exhausted, which stops the loop for good. On success
// polling resumes from the current height rather than the pre-outage
// checkpoint, so events produced during the outage are not backfilled.
func (s *Service) reconnect(ctx context.Context) bool {
	s.setState(StateReconnecting)

	for attempt := 1; attempt <= s.cfg.MaxReconnects; attempt++ {
		select {
		case <-s.quit:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(s.cfg.ReconnectDelay):
		}

		height, err := s.reader.CurrentHeight(ctx)
		if err != nil {
			s.logger.Warn("reconnect attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max", s.cfg.MaxReconnects),
				zap.Error(err))
			continue
		}

		s.checkpoints.Save(ctx, s.cfg.NFTAddress.Hex(), height)
		s.checkpoints.Save(ctx, s.cfg.MarketplaceAddress.Hex(), height)
		s.metrics.Reconnected()
		s.logger.Info("provider reconnected, resuming from head",
			zap.Int("attempt", attempt), zap.Uint64("height", height))
		s.setState(StatePolling)
		return true
	}

	s.logger.Error("reconnect attempts exhausted, stopping",
		zap.Int("max", s.cfg.MaxReconnects))
	return false
}

// syncToHead processes all blocks between the checkpoint and the current
// height, window by window. Each window is fully applied and checkpointed
// before the next begins.
func (s *Service) syncToHead(ctx context.Context) error {
	height, err := s.reader.CurrentHeight(ctx)
	if err != nil {
		return fmt.Errorf("current height: %w", err)
	}

	nftHex := s.cfg.NFTAddress.Hex()
	marketHex := s.cfg.MarketplaceAddress.Hex()
	nftCp := s.checkpoints.Get(ctx, nftHex)
	marketCp := s.checkpoints.Get(ctx, marketHex)

	from := nftCp
	if marketCp < from {
		from = marketCp
	}
	from++
	if from > height {
		return nil
	}

	windows, err := SplitWindows(from, height, s.cfg.WindowSize)
	if err != nil {
		return err
	}

	for _, w := range windows {
		events, err := s.fetchWindow(ctx, w)
		if err != nil {
			return fmt.Errorf("window %d-%d: %w", w.From, w.To, err)
		}

		report := s.dispatcher.Apply(ctx, events)
		if len(report.Errors) > 0 {
			s.logger.Warn("window applied with failures",
				zap.Uint64("from", w.From), zap.Uint64("to", w.To),
				zap.Int("applied", report.Applied), zap.Int("failed", len(report.Errors)))
		}

		s.checkpoints.Save(ctx, nftHex, w.To)
		s.checkpoints.Save(ctx, marketHex, w.To)
		s.metrics.WindowSynced(w.To)

		if len(events) > 0 {
			s.logger.Info("window synced",
				zap.Uint64("from", w.From), zap.Uint64("to", w.To),
				zap.Int("events", len(events)))
		}
	}

	return nil
}

// fetchWindow queries the eight log streams for one window and merges them
// into the canonical (block, logIndex) order. Undecodable logs are dropped.
func (s *Service) fetchWindow(ctx context.Context, w Window) ([]model.ChainEvent, error) {
	batches := make([][]model.ChainEvent, 0, len(s.watches))
	for _, wt := range s.watches {
		logs, err := s.reader.FetchLogs(ctx, wt.contract, wt.topic0, w.From, w.To)
		if err != nil {
			return nil, fmt.Errorf("fetch %s logs: %w", wt.kind, err)
		}

		events := make([]model.ChainEvent, 0, len(logs))
		for _, lg := range logs {
			ev, err := s.decoder.Decode(lg)
			if err != nil {
				s.logger.Warn("undecodable log dropped",
					zap.Uint64("block", lg.BlockNumber),
					zap.Uint("log_index", lg.Index),
					zap.Error(err))
				continue
			}
			events = append(events, ev)
		}
		batches = append(batches, events)
	}
	return MergeEvents(batches...), nil
}
