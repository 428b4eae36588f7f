package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// saltEnvVar tells the prediction script which scratch files to use;
// scratchEnvVar tells it where they live.
const (
	saltEnvVar    = "SUMMA_RANDOM_SALT"
	scratchEnvVar = "SUMMA_SCRATCH_DIR"
)

// Runner executes the prediction model for one exported dataset.
type Runner interface {
	Run(ctx context.Context, salt string) (string, error)
}

// ScriptRunner shells out to an external interpreter (typically python)
// running the prediction script. The script reads <scratch>/<salt>.csv
// and writes <scratch>/<salt>.json.
type ScriptRunner struct {
	Interpreter string
	ScriptPath  string
	ScratchDir  string
	Timeout     time.Duration
}

// scriptError is the failure shape the script writes instead of predictions.
type scriptError struct {
	Error string `json:"error"`
}

func (r *ScriptRunner) Run(ctx context.Context, salt string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Interpreter, r.ScriptPath)
	cmd.Env = append(os.Environ(), saltEnvVar+"="+salt, scratchEnvVar+"="+r.ScratchDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("run prediction script: %w: %s", err, output)
	}

	resultPath := filepath.Join(r.ScratchDir, salt+".json")
	data, err := os.ReadFile(resultPath)
	if err != nil {
		return "", fmt.Errorf("read prediction output: %w", err)
	}

	var scriptErr scriptError
	if err := json.Unmarshal(data, &scriptErr); err == nil && scriptErr.Error != "" {
		return "", fmt.Errorf("prediction script: %s", scriptErr.Error)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return "", fmt.Errorf("prediction output is not valid JSON: %w", err)
	}

	return string(data), nil
}

// Prediction is one forecast month.
type Prediction struct {
	Amount float64 `json:"amount"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Date   string  `json:"date"`
}

// ParsePredictions decodes the script's output rows, each of the form
// [yhat, yhat_lower, yhat_upper, "YYYY-MM-DD"].
func ParsePredictions(data string) ([]Prediction, error) {
	var rows [][]any
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}

	result := make([]Prediction, 0, len(rows))
	for i, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("prediction row %d has %d fields, want 4", i, len(row))
		}
		amount, ok1 := row[0].(float64)
		lower, ok2 := row[1].(float64)
		upper, ok3 := row[2].(float64)
		date, ok4 := row[3].(string)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, fmt.Errorf("prediction row %d has unexpected field types", i)
		}
		result = append(result, Prediction{Amount: amount, Lower: lower, Upper: upper, Date: date})
	}
	return result, nil
}
