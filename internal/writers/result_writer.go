// Package writers exports run results to parquet files through an in-memory DuckDB.
package writers

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// insertBatchSize bounds the rows of one INSERT statement.
const insertBatchSize = 500

const decimalType = "DECIMAL(38,18)"

// Paths are the files one Write produced.
type Paths struct {
	Transactions string
	BookHistory  string
	Holdings     string
	Orders       string
	OrderLegs    string
	Marks        string
}

type table struct {
	name    string
	columns []string
}

var (
	transactionsTable = table{name: "transactions", columns: []string{
		"timestamp TIMESTAMP", "phase VARCHAR", "book VARCHAR", "asset VARCHAR",
		"quantity " + decimalType, "price " + decimalType, "denomination VARCHAR",
		"fee " + decimalType, "cash_amount " + decimalType,
		"order_key VARCHAR", "strategy VARCHAR", "leg INTEGER",
	}}
	bookHistoryTable = table{name: "book_history", columns: []string{
		"timestamp TIMESTAMP", "book VARCHAR", "denomination VARCHAR",
		"cash " + decimalType, "gross_exposure " + decimalType, "total " + decimalType,
	}}
	holdingsTable = table{name: "holdings", columns: []string{
		"timestamp TIMESTAMP", "book VARCHAR", "asset VARCHAR", "value " + decimalType,
	}}
	ordersTable = table{name: "orders", columns: []string{
		"strategy VARCHAR", "order_key VARCHAR", "book VARCHAR", "kind VARCHAR",
		"priority INTEGER", "label VARCHAR", "submitted_at TIMESTAMP", "submitted_phase VARCHAR",
		"status VARCHAR", "reason VARCHAR", "resolved_at TIMESTAMP", "resolved_phase VARCHAR",
		"attempts INTEGER",
	}}
	orderLegsTable = table{name: "order_legs", columns: []string{
		"strategy VARCHAR", "order_key VARCHAR", "leg INTEGER", "asset VARCHAR",
		"size " + decimalType, "size_type VARCHAR",
	}}
	marksTable = table{name: "marks", columns: []string{
		"timestamp TIMESTAMP", "phase VARCHAR", "strategy VARCHAR", "asset VARCHAR",
		"signal VARCHAR", "reason VARCHAR", "color VARCHAR", "shape VARCHAR",
	}}
)

func (t table) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, column := range t.columns {
		names[i] = strings.Fields(column)[0]
	}

	return names
}

// ResultWriter writes a RunResult as parquet files. It is not safe for concurrent use.
type ResultWriter struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewResultWriter opens the in-memory database the tables are staged in.
func NewResultWriter(log *logger.Logger) (*ResultWriter, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to connect to database", err)
	}

	return &ResultWriter{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Close releases the database.
func (w *ResultWriter) Close() error {
	return w.db.Close()
}

func dec(d decimal.Decimal) squirrel.Sqlizer {
	return squirrel.Expr("CAST(? AS "+decimalType+")", d.String())
}

// Write exports result into folder, creating it if needed.
func (w *ResultWriter) Write(result *types.RunResult, folder string) (Paths, error) {
	if result == nil {
		return Paths{}, errors.New(errors.ErrCodeResultWriteFailed, "nil run result")
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return Paths{}, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create results folder", err)
	}

	tables := []struct {
		table table
		rows  [][]any
	}{
		{table: transactionsTable, rows: transactionRows(result.Transactions)},
		{table: bookHistoryTable, rows: bookHistoryRows(result.BookHistory)},
		{table: holdingsTable, rows: holdingRows(result.BookHistory)},
		{table: ordersTable, rows: orderRows(result.Orders)},
		{table: orderLegsTable, rows: orderLegRows(result.Orders)},
		{table: marksTable, rows: markRows(result.Marks)},
	}

	var paths Paths

	targets := []*string{&paths.Transactions, &paths.BookHistory, &paths.Holdings, &paths.Orders, &paths.OrderLegs, &paths.Marks}

	for i, t := range tables {
		path := filepath.Join(folder, t.table.name+".parquet")

		if err := w.export(t.table, t.rows, path); err != nil {
			return Paths{}, err
		}

		*targets[i] = path
	}

	w.logger.Info("Exported run results to parquet",
		zap.String("run_id", result.RunID),
		zap.String("folder", folder),
		zap.Int("transactions", len(result.Transactions)),
		zap.Int("orders", len(result.Orders)),
	)

	return paths, nil
}

// export stages rows in a fresh table and copies it to path.
func (w *ResultWriter) export(t table, rows [][]any, path string) error {
	// squirrel has no DDL or COPY support
	if _, err := w.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s; CREATE TABLE %s (%s)`,
		t.name, t.name, strings.Join(t.columns, ", "))); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create table %s", t.name)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to begin transaction", err)
	}

	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))

		insert := w.sq.Insert(t.name).Columns(t.columnNames()...)
		for _, row := range rows[start:end] {
			insert = insert.Values(row...)
		}

		if _, err := insert.RunWith(tx).Exec(); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to insert into %s", t.name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to commit transaction", err)
	}

	if _, err := w.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`,
		t.name, strings.ReplaceAll(path, "'", "''"))); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to export %s to parquet", t.name)
	}

	return nil
}

func transactionRows(transactions []types.Transaction) [][]any {
	rows := make([][]any, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, []any{
			tx.Timestamp, string(tx.Phase), tx.Book, tx.Asset,
			dec(tx.Quantity), dec(tx.Price), tx.Denomination,
			dec(tx.Fee), dec(tx.CashAmount),
			tx.OrderKey, tx.Strategy, tx.Leg,
		})
	}

	return rows
}

func bookHistoryRows(history []types.BookValuation) [][]any {
	rows := make([][]any, 0, len(history))
	for _, v := range history {
		rows = append(rows, []any{
			v.Timestamp, v.Book, v.Denomination, dec(v.Cash), dec(v.GrossExposure()), dec(v.Total),
		})
	}

	return rows
}

func holdingRows(history []types.BookValuation) [][]any {
	var rows [][]any

	for _, v := range history {
		assets := make([]string, 0, len(v.Holdings))
		for asset := range v.Holdings {
			assets = append(assets, asset)
		}

		sort.Strings(assets)

		for _, asset := range assets {
			rows = append(rows, []any{v.Timestamp, v.Book, asset, dec(v.Holdings[asset])})
		}
	}

	return rows
}

// nullTime keeps unresolved timestamps out of the parquet file.
func nullTime(record types.OrderRecord) any {
	if record.ResolvedAt.IsZero() {
		return nil
	}

	return record.ResolvedAt
}

func nullString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func orderRows(orders []types.OrderRecord) [][]any {
	rows := make([][]any, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []any{
			o.Strategy, o.Key, o.Book, string(o.Kind),
			o.Priority, o.Label, o.SubmittedAt, string(o.SubmittedPhase),
			string(o.Status), nullString(o.Reason), nullTime(o), nullString(string(o.ResolvedPhase)),
			o.Attempts,
		})
	}

	return rows
}

func orderLegRows(orders []types.OrderRecord) [][]any {
	var rows [][]any

	for _, o := range orders {
		for i, leg := range o.Legs {
			rows = append(rows, []any{o.Strategy, o.Key, i, leg.Asset, dec(leg.Size), string(leg.SizeType)})
		}
	}

	return rows
}

func markRows(marks []types.Mark) [][]any {
	rows := make([][]any, 0, len(marks))
	for _, m := range marks {
		rows = append(rows, []any{
			m.Timestamp, string(m.Phase), m.Strategy, m.Asset,
			string(m.Signal), m.Reason, string(m.Color), string(m.Shape),
		})
	}

	return rows
}
