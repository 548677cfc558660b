package qlearn

import (
	"fmt"
	"log/slog"
	"math/rand"

	"supplyq/internal/model"
	"supplyq/internal/storage"
)

const DefaultSlot = "qTable"

var ErrStateTooLarge = fmt.Errorf("qlearn: state exceeds %d nodes", MaxNodes)

type Config struct {
	LearningRate   float64
	DiscountFactor float64
	Epsilon        float64
	// QuantitySteps is the number of intervals PossibleActions splits the
	// order range into.
	QuantitySteps int
	Buckets       model.BucketWidths
	RewardWeights RewardWeights
	// MaxStates caps the table; 0 leaves it unbounded.
	MaxStates int
	Rand      *rand.Rand
	Store     storage.Store
	Slot      string
	Logger    *slog.Logger
}

// Agent bundles the table with the encoder, policy, learner and reward used to
// drive it. It is not safe for concurrent use; the owning controller
// serializes calls.
type Agent struct {
	table   *ValueTable
	encoder Encoder
	policy  EpsilonGreedy
	learner Learner
	weights RewardWeights
	steps   int

	store  storage.Store
	slot   string
	logger *slog.Logger
}

// DefaultConfig returns the reference hyperparameters. Epsilon is taken as
// given by NewAgent, so a zero Config explores never.
func DefaultConfig() Config {
	return Config{
		LearningRate:   DefaultLearningRate,
		DiscountFactor: DefaultDiscountFactor,
		Epsilon:        DefaultEpsilon,
		QuantitySteps:  DefaultQuantitySteps,
		Buckets:        DefaultBuckets(),
		RewardWeights:  DefaultRewardWeights(),
		Slot:           DefaultSlot,
	}
}

func NewAgent(cfg Config) *Agent {
	cfg = normalizeConfig(cfg)
	return &Agent{
		table:   NewValueTable(cfg.MaxStates),
		encoder: NewEncoder(cfg.Buckets),
		policy:  EpsilonGreedy{Epsilon: cfg.Epsilon, Rand: cfg.Rand},
		learner: Learner{LearningRate: cfg.LearningRate, DiscountFactor: cfg.DiscountFactor},
		weights: cfg.RewardWeights,
		steps:   cfg.QuantitySteps,
		store:   cfg.Store,
		slot:    cfg.Slot,
		logger:  cfg.Logger.With("component", "qlearn"),
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.LearningRate == 0 {
		cfg.LearningRate = DefaultLearningRate
	}
	if cfg.DiscountFactor == 0 {
		cfg.DiscountFactor = DefaultDiscountFactor
	}
	if cfg.Epsilon < 0 {
		cfg.Epsilon = 0
	}
	if cfg.QuantitySteps <= 0 {
		cfg.QuantitySteps = DefaultQuantitySteps
	}
	if cfg.RewardWeights == (RewardWeights{}) {
		cfg.RewardWeights = DefaultRewardWeights()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(1))
	}
	if cfg.Slot == "" {
		cfg.Slot = DefaultSlot
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

func (a *Agent) ChooseAction(state model.State, actions []model.Action) (model.Action, error) {
	if err := checkStateSize(state); err != nil {
		return model.Action{}, err
	}
	return a.policy.Choose(a.table, a.encoder, a.encoder.State(state), actions)
}

func (a *Agent) Update(state model.State, action model.Action, reward float64, nextState model.State, nextActions []model.Action) error {
	if err := checkStateSize(state); err != nil {
		return err
	}
	if err := checkStateSize(nextState); err != nil {
		return err
	}
	_, err := a.learner.Update(a.table, a.encoder, state, action, reward, nextState, nextActions)
	return err
}

func (a *Agent) CalculateReward(stockouts, holdingCost, deliveryDelay, totalCost float64) float64 {
	return a.weights.Reward(stockouts, holdingCost, deliveryDelay, totalCost)
}

// PossibleActions ignores state; every state shares one action space.
func (a *Agent) PossibleActions(_ model.State, nodeIDs []string, maxQuantity float64) []model.Action {
	return GenerateActions(nodeIDs, maxQuantity, a.steps)
}

func (a *Agent) Value(state model.State, action model.Action) float64 {
	return a.table.Get(a.encoder.State(state), a.encoder.Action(action))
}

func (a *Agent) SetValue(state model.State, action model.Action, value float64) {
	a.table.Set(a.encoder.State(state), a.encoder.Action(action), value)
}

func (a *Agent) Epsilon() float64 {
	return a.policy.Epsilon
}

func (a *Agent) SetEpsilon(epsilon float64) {
	a.policy.Epsilon = epsilon
}

func (a *Agent) Encoder() Encoder {
	return a.encoder
}

type TableStats struct {
	States    int `json:"states"`
	Entries   int `json:"entries"`
	MaxStates int `json:"max_states"`
}

func (a *Agent) TableStats() TableStats {
	return TableStats{
		States:    a.table.Len(),
		Entries:   a.table.Entries(),
		MaxStates: a.table.MaxStates(),
	}
}

// Reset drops every learned value. The persisted slot is left alone.
func (a *Agent) Reset() {
	a.table.Reset()
}

func checkStateSize(s model.State) error {
	if s.Len() > MaxNodes {
		return fmt.Errorf("%w: got %d", ErrStateTooLarge, s.Len())
	}
	return nil
}
