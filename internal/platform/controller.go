package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"supplyq/internal/metrics"
	"supplyq/internal/model"
	"supplyq/internal/qlearn"
	"supplyq/internal/scape"
	"supplyq/internal/stats"
)

var (
	ErrModeBusy        = errors.New("controller is busy in another mode")
	ErrInvalidEpisodes = errors.New("episodes must be positive")
	ErrInvalidSpeed    = errors.New("speed must be in (0, 100]")
	ErrNotRunning      = errors.New("live loop is not running")
	ErrTooManyNodes    = fmt.Errorf("network exceeds %d nodes", qlearn.MaxNodes)
)

const (
	DefaultMaxOrderQuantity = 1000
	DefaultStepsPerEpisode  = 100
	DefaultSpeed            = 5
	MaxSpeed                = 100
)

type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeTraining Mode = "training"
	ModeLive     Mode = "live"
)

type Config struct {
	Agent   *qlearn.Agent
	Network *scape.Network
	// Preset names the node set Reset restores.
	Preset           string
	MaxOrderQuantity float64
	StepsPerEpisode  int
	Speed            float64
	Demand           scape.DemandSampler
	Logger           *slog.Logger
	Metrics          *metrics.Recorder
}

// Controller drives one agent against one node network. Training, live ticks
// and manual steps all mutate the same table, so at most one mode runs at a
// time and every step holds mu.
type Controller struct {
	agent            *qlearn.Agent
	preset           string
	maxOrderQuantity float64
	stepsPerEpisode  int
	demand           scape.DemandSampler
	logger           *slog.Logger
	metrics          *metrics.Recorder

	mu         sync.Mutex
	network    *scape.Network
	mode       Mode
	speed      float64
	state      model.State
	lastAction *model.Action
	steps      int
	trace      *stats.EpisodeTrace
	live       *liveTask
	lastRunID  string
}

type StepResult struct {
	Step        int                `json:"step"`
	Action      model.Action       `json:"action"`
	Reward      float64            `json:"reward"`
	Outcome     scape.Outcome      `json:"outcome"`
	Inventories map[string]float64 `json:"inventories"`
}

type TrainResult struct {
	RunID          string        `json:"run_id"`
	Episodes       int           `json:"episodes"`
	TotalSteps     int           `json:"total_steps"`
	EpisodeRewards []float64     `json:"episode_rewards"`
	Summary        stats.Summary `json:"summary"`
}

type Status struct {
	Mode        Mode               `json:"mode"`
	Step        int                `json:"step"`
	Speed       float64            `json:"speed"`
	Epsilon     float64            `json:"epsilon"`
	LiveSession string             `json:"live_session,omitempty"`
	LastRunID   string             `json:"last_run_id,omitempty"`
	LastAction  *model.Action      `json:"last_action,omitempty"`
	Inventories map[string]float64 `json:"inventories"`
	Trace       stats.Summary      `json:"trace"`
	Table       qlearn.TableStats  `json:"table"`
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if cfg.Network == nil {
		return nil, errors.New("network is required")
	}
	if cfg.Network.Len() > qlearn.MaxNodes {
		return nil, fmt.Errorf("%w: %d", ErrTooManyNodes, cfg.Network.Len())
	}
	if cfg.Preset == "" {
		cfg.Preset = scape.DefaultPreset
	}
	if cfg.MaxOrderQuantity <= 0 {
		cfg.MaxOrderQuantity = DefaultMaxOrderQuantity
	}
	if cfg.StepsPerEpisode <= 0 {
		cfg.StepsPerEpisode = DefaultStepsPerEpisode
	}
	if cfg.Speed == 0 {
		cfg.Speed = DefaultSpeed
	}
	if err := validateSpeed(cfg.Speed); err != nil {
		return nil, err
	}
	if cfg.Demand.Rand == nil || cfg.Demand.Max <= 0 {
		cfg.Demand = scape.NewDemandSampler(cfg.Demand.Max, cfg.Demand.Rand)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Controller{
		agent:            cfg.Agent,
		preset:           cfg.Preset,
		maxOrderQuantity: cfg.MaxOrderQuantity,
		stepsPerEpisode:  cfg.StepsPerEpisode,
		demand:           cfg.Demand,
		logger:           cfg.Logger.With("component", "controller"),
		metrics:          cfg.Metrics,
		network:          cfg.Network,
		mode:             ModeIdle,
		speed:            cfg.Speed,
		trace:            stats.NewEpisodeTrace(0),
	}
	if err := c.resetStateLocked(c.network); err != nil {
		return nil, err
	}
	c.recordTableLocked()
	return c, nil
}

// Init loads the persisted table and redraws the current state from the
// network. It reports whether a table was restored.
func (c *Controller) Init(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeIdle {
		return false, ErrModeBusy
	}
	loaded := c.agent.Load(ctx)
	if err := c.resetStateLocked(c.network); err != nil {
		return loaded, err
	}
	c.recordTableLocked()
	c.logger.Info("controller initialized", "loaded", loaded, "states", c.agent.TableStats().States)
	return loaded, nil
}

// Train runs episodes against a per-episode copy of the network. The real
// node data is never touched, and the current state is re-read from it when
// Train returns.
func (c *Controller) Train(ctx context.Context, episodes int) (TrainResult, error) {
	if episodes <= 0 {
		return TrainResult{}, ErrInvalidEpisodes
	}

	c.mu.Lock()
	if c.mode != ModeIdle {
		c.mu.Unlock()
		return TrainResult{}, ErrModeBusy
	}
	c.mode = ModeTraining
	c.trace = stats.NewEpisodeTrace(episodes * c.stepsPerEpisode)
	runID := uuid.NewString()
	c.lastRunID = runID
	c.mu.Unlock()

	logger := c.logger.With("run_id", runID)
	defer func() {
		c.mu.Lock()
		// Training leaves c.state on a clone; the next live step must start
		// from the real nodes.
		if err := c.resetStateLocked(c.network); err != nil {
			logger.Warn("state reset after training failed", "error", err)
		}
		c.mode = ModeIdle
		c.mu.Unlock()
	}()
	logger.Info("training started", "episodes", episodes, "steps_per_episode", c.stepsPerEpisode)

	result := TrainResult{
		RunID:          runID,
		Episodes:       episodes,
		EpisodeRewards: make([]float64, 0, episodes),
	}
	for episode := 0; episode < episodes; episode++ {
		c.mu.Lock()
		sim := c.network.Clone()
		err := c.resetStateLocked(sim)
		c.mu.Unlock()
		if err != nil {
			return result, err
		}

		total := 0.0
		for step := 0; step < c.stepsPerEpisode; step++ {
			if err := ctx.Err(); err != nil {
				logger.Info("training cancelled", "episode", episode, "step", step)
				result.Summary = c.traceSummary()
				return result, err
			}
			c.mu.Lock()
			res, err := c.stepLocked(ctx, sim, ModeTraining)
			c.mu.Unlock()
			if err != nil {
				return result, err
			}
			total += res.Reward
			result.TotalSteps++
		}
		result.EpisodeRewards = append(result.EpisodeRewards, total)
		c.metrics.Episode()
		logger.Debug("episode finished", "episode", episode, "reward", total)
	}

	result.Summary = c.traceSummary()
	logger.Info("training finished", "steps", result.TotalSteps, "mean_reward", result.Summary.Mean)
	return result, nil
}

// Step runs one step against the real network.
func (c *Controller) Step(ctx context.Context) (StepResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeIdle {
		return StepResult{}, ErrModeBusy
	}
	return c.liveStepLocked(ctx)
}

func (c *Controller) liveStepLocked(ctx context.Context) (StepResult, error) {
	res, err := c.stepLocked(ctx, c.network, ModeLive)
	if err != nil {
		return StepResult{}, err
	}
	c.steps++
	res.Step = c.steps
	return res, nil
}

// stepLocked is one pass of the control loop against net. Callers hold mu.
func (c *Controller) stepLocked(ctx context.Context, net *scape.Network, mode Mode) (StepResult, error) {
	ids := net.IDs()
	actions := c.agent.PossibleActions(c.state, ids, c.maxOrderQuantity)
	action, err := c.agent.ChooseAction(c.state, actions)
	if err != nil {
		return StepResult{}, fmt.Errorf("choose action: %w", err)
	}

	net.Apply(action)
	outcome := net.Outcome()
	reward := c.agent.CalculateReward(outcome.Stockouts, outcome.HoldingCost, outcome.DeliveryDelay, outcome.TotalCost)

	next, err := net.State(c.demand.Sample(net.Len()))
	if err != nil {
		return StepResult{}, err
	}
	nextActions := c.agent.PossibleActions(next, ids, c.maxOrderQuantity)
	if err := c.agent.Update(c.state, action, reward, next, nextActions); err != nil {
		return StepResult{}, fmt.Errorf("update value table: %w", err)
	}
	c.persistLocked(ctx)

	c.trace.Append(reward)
	c.state = next
	c.lastAction = &action
	c.metrics.Step(string(mode), reward)
	c.recordTableLocked()

	return StepResult{
		Action:      action,
		Reward:      reward,
		Outcome:     outcome,
		Inventories: inventories(net),
	}, nil
}

// persistLocked writes through after every update. Failures are logged and
// counted; learning carries on with the in-memory table.
func (c *Controller) persistLocked(ctx context.Context) {
	if err := c.agent.Save(context.WithoutCancel(ctx)); err != nil {
		c.metrics.PersistError("save")
		c.logger.Warn("value table save failed", "error", err)
	}
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		Mode:        c.mode,
		Step:        c.steps,
		Speed:       c.speed,
		Epsilon:     c.agent.Epsilon(),
		LastRunID:   c.lastRunID,
		Inventories: inventories(c.network),
		Trace:       c.trace.Summary(),
		Table:       c.agent.TableStats(),
	}
	if c.live != nil {
		status.LiveSession = c.live.id
	}
	if c.lastAction != nil {
		action := *c.lastAction
		status.LastAction = &action
	}
	return status
}

func (c *Controller) Trace() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trace.Rewards()
}

func (c *Controller) Nodes() []model.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.network.Nodes()
}

func (c *Controller) Node(id string) (model.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.network.Node(id)
	if !ok {
		return model.Node{}, fmt.Errorf("%w: %s", scape.ErrUnknownNode, id)
	}
	return node, nil
}

// UpdateNode patches external node data. Training picks the change up at its
// next episode.
func (c *Controller) UpdateNode(id string, patch scape.NodePatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.network.UpdateNode(id, patch)
}

func (c *Controller) SetEpsilon(epsilon float64) {
	if epsilon < 0 {
		epsilon = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agent.SetEpsilon(epsilon)
}

func (c *Controller) TableStats() qlearn.TableStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agent.TableStats()
}

func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeIdle {
		return ErrModeBusy
	}
	if err := c.agent.Save(ctx); err != nil {
		c.metrics.PersistError("save")
		return err
	}
	return nil
}

func (c *Controller) Load(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeIdle {
		return false, ErrModeBusy
	}
	loaded := c.agent.Load(ctx)
	c.recordTableLocked()
	return loaded, nil
}

// Reset forgets everything learned, including the persisted slot, and
// restores the preset node data.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeIdle {
		return ErrModeBusy
	}

	nodes, err := scape.Preset(c.preset)
	if err != nil {
		return err
	}
	network, err := scape.NewNetwork(nodes)
	if err != nil {
		return err
	}

	c.agent.Reset()
	if err := c.agent.DeleteSaved(ctx); err != nil {
		c.metrics.PersistError("delete")
		c.logger.Warn("value table delete failed", "error", err)
	}
	c.network = network
	c.steps = 0
	c.lastAction = nil
	c.trace = stats.NewEpisodeTrace(0)
	c.recordTableLocked()
	return c.resetStateLocked(c.network)
}

func (c *Controller) resetStateLocked(net *scape.Network) error {
	state, err := net.State(c.demand.Sample(net.Len()))
	if err != nil {
		return err
	}
	c.state = state
	return nil
}

func (c *Controller) recordTableLocked() {
	table := c.agent.TableStats()
	c.metrics.Table(table.States, table.Entries)
}

func (c *Controller) traceSummary() stats.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trace.Summary()
}

func inventories(net *scape.Network) map[string]float64 {
	ids := net.IDs()
	levels := net.Inventories()
	out := make(map[string]float64, len(ids))
	for i, id := range ids {
		out[id] = levels[i]
	}
	return out
}
