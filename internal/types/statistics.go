package types

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// BookStats summarises one book over a run.
type BookStats struct {
	Book         string `yaml:"book" json:"book"`
	Denomination string `yaml:"denomination" json:"denomination"`
	// InitialValue is the book's value before the first step.
	InitialValue decimal.Decimal `yaml:"initial_value" json:"initial_value"`
	// FinalValue is the last close valuation.
	FinalValue decimal.Decimal `yaml:"final_value" json:"final_value"`
	// TotalReturn is FinalValue / InitialValue - 1.
	TotalReturn decimal.Decimal `yaml:"total_return" json:"total_return"`
	// MaxDrawdown is the largest peak-to-trough fall of the close valuations, as a fraction of the peak.
	MaxDrawdown          decimal.Decimal `yaml:"max_drawdown" json:"max_drawdown"`
	NumberOfTransactions int             `yaml:"number_of_transactions" json:"number_of_transactions"`
	TotalFees            decimal.Decimal `yaml:"total_fees" json:"total_fees"`
}

type RunStats struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// StartTime and EndTime bound the replayed timeline.
	StartTime time.Time `yaml:"start_time" json:"start_time"`
	EndTime   time.Time `yaml:"end_time" json:"end_time"`
	// StepsCompleted is the number of fully processed timesteps.
	StepsCompleted int         `yaml:"steps_completed" json:"steps_completed"`
	Strategies     []string    `yaml:"strategies" json:"strategies"`
	Books          []BookStats `yaml:"books" json:"books"`
	// Orders counts orders by their final status.
	Orders map[OrderStatus]int `yaml:"orders" json:"orders"`
	// Error is the fatal error that stopped the run, empty if it completed.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
	// TransactionsFilePath is the path to the transactions parquet file.
	TransactionsFilePath string `yaml:"transactions_file_path" json:"transactions_file_path"`
	// BookHistoryFilePath is the path to the valuation history parquet file.
	BookHistoryFilePath string `yaml:"book_history_file_path" json:"book_history_file_path"`
	// OrdersFilePath is the path to the orders parquet file.
	OrdersFilePath string `yaml:"orders_file_path" json:"orders_file_path"`
	// MarksFilePath is the path to the marks parquet file.
	MarksFilePath string `yaml:"marks_file_path" json:"marks_file_path"`
	// DataPath is the path to the market data used for this run.
	DataPath string `yaml:"data_path" json:"data_path"`
}

func WriteRunStats(path string, stats []RunStats) error {
	// Marshal the struct to YAML
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats to YAML: %w", err)
	}

	// Write the YAML data to the file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run stats to file: %w", err)
	}

	return nil
}
