package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// getResultFolder nests a run's output under the data file name and the configured
// time range: <results>/<data>/<start>_<end>/<run id>.
func getResultFolder(resultsFolder string, dataPath string, config *BacktestEngineV1Config, runID string) string {
	dataFolder := "memory"
	if dataPath != "" {
		dataFolder = strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))
	}

	folder := filepath.Join(resultsFolder, dataFolder)

	if config.StartTime.IsSome() || config.EndTime.IsSome() {
		startTimeStr := "all"
		endTimeStr := "all"

		if config.StartTime.IsSome() {
			startTimeStr = config.StartTime.Unwrap().Format("20060102")
		}

		if config.EndTime.IsSome() {
			endTimeStr = config.EndTime.Unwrap().Format("20060102")
		}

		folder = filepath.Join(folder, fmt.Sprintf("%s_%s", startTimeStr, endTimeStr))
	}

	return filepath.Join(folder, runID)
}
