package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

// UtilsTestSuite is a test suite for utils package
type UtilsTestSuite struct {
	suite.Suite
}

// TestUtilsSuite runs the test suite
func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestGetResultFolder() {
	tests := []struct {
		name          string
		dataPath      string
		resultsFolder string
		startTime     optional.Option[time.Time]
		endTime       optional.Option[time.Time]
		expectedPath  string
	}{
		{
			name:          "Basic case without time range",
			dataPath:      "/path/to/data.parquet",
			resultsFolder: "/results",
			startTime:     optional.None[time.Time](),
			endTime:       optional.None[time.Time](),
			expectedPath:  filepath.Join("/results", "data", "run-1"),
		},
		{
			name:          "With start and end time",
			dataPath:      "/path/to/data.parquet",
			resultsFolder: "/results",
			startTime:     optional.Some(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			endTime:       optional.Some(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
			expectedPath:  filepath.Join("/results", "data", "20240101_20241231", "run-1"),
		},
		{
			name:          "With only start time",
			dataPath:      "/path/to/data.csv",
			resultsFolder: "/results",
			startTime:     optional.Some(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			endTime:       optional.None[time.Time](),
			expectedPath:  filepath.Join("/results", "data", "20240101_all", "run-1"),
		},
		{
			name:          "With only end time",
			dataPath:      "/path/to/prices.parquet",
			resultsFolder: "/results",
			startTime:     optional.None[time.Time](),
			endTime:       optional.Some(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
			expectedPath:  filepath.Join("/results", "prices", "all_20241231", "run-1"),
		},
		{
			name:          "In-memory data",
			dataPath:      "",
			resultsFolder: "/results",
			startTime:     optional.None[time.Time](),
			endTime:       optional.None[time.Time](),
			expectedPath:  filepath.Join("/results", "memory", "run-1"),
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := EmptyConfig()
			config.StartTime = tc.startTime
			config.EndTime = tc.endTime

			suite.Equal(tc.expectedPath, getResultFolder(tc.resultsFolder, tc.dataPath, &config, "run-1"))
		})
	}
}
