package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const runIndexFile = "run_index.json"

// RunConfig records the knobs a training run was started with.
type RunConfig struct {
	RunID            string  `json:"run_id"`
	Preset           string  `json:"preset"`
	Store            string  `json:"store"`
	Episodes         int     `json:"episodes"`
	StepsPerEpisode  int     `json:"steps_per_episode"`
	MaxOrderQuantity float64 `json:"max_order_quantity"`
	QuantitySteps    int     `json:"quantity_steps"`
	LearningRate     float64 `json:"learning_rate"`
	DiscountFactor   float64 `json:"discount_factor"`
	Epsilon          float64 `json:"epsilon"`
	MaxStates        int     `json:"max_states"`
	Seed             int64   `json:"seed"`
}

type RunArtifacts struct {
	Config         RunConfig `json:"config"`
	EpisodeRewards []float64 `json:"episode_rewards"`
	StepRewards    []float64 `json:"step_rewards"`
	Summary        Summary   `json:"summary"`
	TableStates    int       `json:"table_states"`
	TableEntries   int       `json:"table_entries"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Preset       string  `json:"preset"`
	Episodes     int     `json:"episodes"`
	Steps        int     `json:"steps"`
	MeanReward   float64 `json:"mean_reward"`
	TableStates  int     `json:"table_states"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// WriteRunArtifacts lays a run out under baseDir/<run id> and returns that
// directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Config.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "summary.json"), map[string]any{
		"episode_rewards": artifacts.EpisodeRewards,
		"summary":         artifacts.Summary,
		"table_states":    artifacts.TableStates,
		"table_entries":   artifacts.TableEntries,
	}); err != nil {
		return "", err
	}
	if err := WriteRewardSeries(runDir, artifacts.StepRewards); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the indexed runs, newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	// Later appends win ties on equal timestamps.
	order := make(map[string]int, len(entries))
	for i, entry := range entries {
		order[entry.RunID] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAtUTC == entries[j].CreatedAtUTC {
			return order[entries[i].RunID] > order[entries[j].RunID]
		}
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func WriteRewardSeries(runDir string, rewards []float64) error {
	file, err := os.Create(filepath.Join(runDir, "rewards.csv"))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"step", "reward"}); err != nil {
		return err
	}
	for i, reward := range rewards {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(reward, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadRewardSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, "rewards.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("reward series header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("reward series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
