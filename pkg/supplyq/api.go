package supplyq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"supplyq/internal/metrics"
	"supplyq/internal/platform"
	"supplyq/internal/qlearn"
	"supplyq/internal/scape"
	"supplyq/internal/stats"
	"supplyq/internal/storage"
)

const (
	defaultSQLitePath = "supplyq.db"
	defaultBadgerPath = "supplyq.badger"
	defaultRunsDir    = "runs"
	defaultSeed       = 1
)

type (
	Status      = platform.Status
	StepResult  = platform.StepResult
	TableStats  = qlearn.TableStats
	NodePatch   = scape.NodePatch
	RunIndexRow = stats.RunIndexEntry
)

var (
	ErrModeBusy   = platform.ErrModeBusy
	ErrNotRunning = platform.ErrNotRunning
)

type Options struct {
	StoreKind string
	// DBPath is the sqlite file or badger directory. InMemory keeps a badger
	// database in RAM regardless of DBPath; sqlite ignores it.
	DBPath   string
	InMemory bool
	Slot     string
	RunsDir  string
	Preset   string
	Seed     int64

	LearningRate   float64
	DiscountFactor float64
	// Epsilon overrides the default exploration rate when set.
	Epsilon          *float64
	QuantitySteps    int
	MaxStates        int
	MaxOrderQuantity float64
	StepsPerEpisode  int
	Speed            float64

	Logger *slog.Logger
}

// Client wires a store, an agent, the node network and a controller together.
type Client struct {
	store      storage.Store
	controller *platform.Controller
	metrics    *metrics.Recorder
	logger     *slog.Logger

	storeKind string
	runsDir   string
	preset    string
	seed      int64
	options   Options
}

type TrainRequest struct {
	Episodes int
	// SkipArtifacts leaves RunsDir untouched.
	SkipArtifacts bool
}

type TrainSummary struct {
	RunID          string
	ArtifactsDir   string
	Episodes       int
	TotalSteps     int
	EpisodeRewards []float64
	Summary        stats.Summary
	Table          TableStats
}

type RunsRequest struct {
	Limit int
}

// RunDetail is one training run read back from RunsDir.
type RunDetail struct {
	Config  stats.RunConfig `json:"config"`
	Rewards []float64       `json:"rewards"`
	Summary stats.Summary   `json:"summary"`
}

var ErrRunNotFound = errors.New("run not found")

func New(ctx context.Context, opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" && !opts.InMemory {
		switch storeKind {
		case storage.KindSQLite:
			dbPath = defaultSQLitePath
		case storage.KindBadger:
			dbPath = defaultBadgerPath
		}
	}
	if opts.RunsDir == "" {
		opts.RunsDir = defaultRunsDir
	}
	if opts.Preset == "" {
		opts.Preset = scape.DefaultPreset
	}
	if opts.Seed == 0 {
		opts.Seed = defaultSeed
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath, storage.StoreOptions{
		InMemory: opts.InMemory,
		Logger:   opts.Logger.With("component", "badger"),
	})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init %s store: %w", storeKind, err)
	}

	nodes, err := scape.Preset(opts.Preset)
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	network, err := scape.NewNetwork(nodes)
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	agentCfg := qlearn.DefaultConfig()
	if opts.LearningRate > 0 {
		agentCfg.LearningRate = opts.LearningRate
	}
	if opts.DiscountFactor > 0 {
		agentCfg.DiscountFactor = opts.DiscountFactor
	}
	if opts.Epsilon != nil {
		agentCfg.Epsilon = *opts.Epsilon
	}
	if opts.QuantitySteps > 0 {
		agentCfg.QuantitySteps = opts.QuantitySteps
	}
	agentCfg.MaxStates = opts.MaxStates
	agentCfg.Rand = rand.New(rand.NewSource(opts.Seed))
	agentCfg.Store = store
	agentCfg.Slot = opts.Slot
	agentCfg.Logger = opts.Logger

	recorder := metrics.NewRecorder()
	controller, err := platform.NewController(platform.Config{
		Agent:            qlearn.NewAgent(agentCfg),
		Network:          network,
		Preset:           opts.Preset,
		MaxOrderQuantity: opts.MaxOrderQuantity,
		StepsPerEpisode:  opts.StepsPerEpisode,
		Speed:            opts.Speed,
		Demand:           scape.NewDemandSampler(scape.DefaultMaxDemand, rand.New(rand.NewSource(opts.Seed+1))),
		Logger:           opts.Logger,
		Metrics:          recorder,
	})
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	return &Client{
		store:      store,
		controller: controller,
		metrics:    recorder,
		logger:     opts.Logger,
		storeKind:  storeKind,
		runsDir:    opts.RunsDir,
		preset:     opts.Preset,
		seed:       opts.Seed,
		options:    opts,
	}, nil
}

func (c *Client) Close() error {
	return errors.Join(c.controller.Close(), storage.CloseIfSupported(c.store))
}

// Init restores the persisted value table, if any.
func (c *Client) Init(ctx context.Context) (bool, error) {
	return c.controller.Init(ctx)
}

func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	res, err := c.controller.Train(ctx, req.Episodes)
	if err != nil {
		return TrainSummary{}, err
	}
	table := c.controller.TableStats()
	summary := TrainSummary{
		RunID:          res.RunID,
		Episodes:       res.Episodes,
		TotalSteps:     res.TotalSteps,
		EpisodeRewards: res.EpisodeRewards,
		Summary:        res.Summary,
		Table:          table,
	}
	if req.SkipArtifacts {
		return summary, nil
	}

	status := c.controller.Status()
	dir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config:         c.runConfig(res, status.Epsilon),
		EpisodeRewards: res.EpisodeRewards,
		StepRewards:    c.controller.Trace(),
		Summary:        res.Summary,
		TableStates:    table.States,
		TableEntries:   table.Entries,
	})
	if err != nil {
		return summary, fmt.Errorf("write run artifacts: %w", err)
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:        res.RunID,
		Preset:       c.preset,
		Episodes:     res.Episodes,
		Steps:        res.TotalSteps,
		MeanReward:   res.Summary.Mean,
		TableStates:  table.States,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return summary, fmt.Errorf("append run index: %w", err)
	}
	summary.ArtifactsDir = dir
	c.logger.Info("run artifacts written", "run_id", res.RunID, "dir", dir)
	return summary, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunIndexRow, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	return entries, nil
}

// Run reads the config and per-step reward series of a past training run.
func (c *Client) Run(_ context.Context, runID string) (RunDetail, error) {
	cfg, ok, err := stats.ReadRunConfig(c.runsDir, runID)
	if err != nil {
		return RunDetail{}, fmt.Errorf("read run %s config: %w", runID, err)
	}
	if !ok {
		return RunDetail{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rewards, ok, err := stats.ReadRewardSeries(c.runsDir, runID)
	if err != nil {
		return RunDetail{}, fmt.Errorf("read run %s rewards: %w", runID, err)
	}
	if !ok {
		rewards = []float64{}
	}
	return RunDetail{
		Config:  cfg,
		Rewards: rewards,
		Summary: stats.Summarize(rewards),
	}, nil
}

func (c *Client) Step(ctx context.Context) (StepResult, error) {
	return c.controller.Step(ctx)
}

func (c *Client) StartLive(speed float64) (string, error) {
	return c.controller.StartLive(speed)
}

func (c *Client) StopLive() error {
	return c.controller.StopLive()
}

func (c *Client) SetSpeed(speed float64) error {
	return c.controller.SetSpeed(speed)
}

func (c *Client) SetEpsilon(epsilon float64) {
	c.controller.SetEpsilon(epsilon)
}

func (c *Client) UpdateNode(id string, patch NodePatch) error {
	return c.controller.UpdateNode(id, patch)
}

func (c *Client) Status() Status {
	return c.controller.Status()
}

func (c *Client) Save(ctx context.Context) error {
	return c.controller.Save(ctx)
}

func (c *Client) Load(ctx context.Context) (bool, error) {
	return c.controller.Load(ctx)
}

func (c *Client) Reset(ctx context.Context) error {
	return c.controller.Reset(ctx)
}

// Controller and Metrics expose the wiring for the HTTP server.
func (c *Client) Controller() *platform.Controller {
	return c.controller
}

func (c *Client) Metrics() *metrics.Recorder {
	return c.metrics
}

func (c *Client) runConfig(res platform.TrainResult, epsilon float64) stats.RunConfig {
	opts := c.options
	cfg := stats.RunConfig{
		RunID:            res.RunID,
		Preset:           c.preset,
		Store:            c.storeKind,
		Episodes:         res.Episodes,
		StepsPerEpisode:  opts.StepsPerEpisode,
		MaxOrderQuantity: opts.MaxOrderQuantity,
		QuantitySteps:    opts.QuantitySteps,
		LearningRate:     opts.LearningRate,
		DiscountFactor:   opts.DiscountFactor,
		Epsilon:          epsilon,
		MaxStates:        opts.MaxStates,
		Seed:             c.seed,
	}
	if cfg.StepsPerEpisode <= 0 {
		cfg.StepsPerEpisode = platform.DefaultStepsPerEpisode
	}
	if cfg.MaxOrderQuantity <= 0 {
		cfg.MaxOrderQuantity = platform.DefaultMaxOrderQuantity
	}
	if cfg.QuantitySteps <= 0 {
		cfg.QuantitySteps = qlearn.DefaultQuantitySteps
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = qlearn.DefaultLearningRate
	}
	if cfg.DiscountFactor <= 0 {
		cfg.DiscountFactor = qlearn.DefaultDiscountFactor
	}
	return cfg
}
