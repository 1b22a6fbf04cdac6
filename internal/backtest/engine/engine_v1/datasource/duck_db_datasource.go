package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const marketDataView = "market_data"

// standardFields maps lower-case source columns to the canonical bar fields.
var standardFields = map[string]string{
	"open":   types.FieldOpen,
	"high":   types.FieldHigh,
	"low":    types.FieldLow,
	"close":  types.FieldClose,
	"volume": types.FieldVolume,
}

// fieldColumn is a numeric source column and the field it is read into.
type fieldColumn struct {
	column string
	field  string
}

// DuckDBDataSource reads market data from a parquet or csv file through DuckDB.
// The file needs a timestamp column named time and a symbol column. Every other
// numeric column becomes a field.
type DuckDBDataSource struct {
	db         *sql.DB
	logger     *logger.Logger
	sq         squirrel.StatementBuilderType
	timeColumn string
	symbol     string
	fields     []fieldColumn
}

// NewDataSource opens a DuckDB database at path, in memory for an empty path.
// This is distinct from Initialize, which attaches the market data file.
func NewDataSource(path string, log *logger.Logger) (*DuckDBDataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DuckDBDataSource{
		db:         db,
		logger:     log,
		sq:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		timeColumn: "",
		symbol:     "",
		fields:     nil,
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS ` + marketDataView)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	reader := "read_parquet"
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		reader = "read_csv_auto"
	}

	// squirrel has no CREATE VIEW support
	query := fmt.Sprintf(`CREATE VIEW %s AS SELECT * FROM %s('%s')`,
		marketDataView, reader, strings.ReplaceAll(path, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read market data from %s", path)
	}

	return d.describe()
}

// describe resolves the time, symbol and field columns of the view.
func (d *DuckDBDataSource) describe() error {
	query, args, err := d.sq.Select("column_name", "data_type").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": marketDataView}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build schema query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to read market data schema", err)
	}
	defer rows.Close()

	d.timeColumn, d.symbol, d.fields = "", "", nil

	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan schema row", err)
		}

		lower := strings.ToLower(name)

		switch {
		case lower == "time" || lower == "timestamp":
			d.timeColumn = name
		case lower == "symbol":
			d.symbol = name
		case isNumeric(dataType):
			field := name
			if standard, ok := standardFields[lower]; ok {
				field = standard
			}

			d.fields = append(d.fields, fieldColumn{column: name, field: field})
		default:
			d.logger.Debug("Skipping non-numeric column", zap.String("column", name), zap.String("type", dataType))
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "error iterating schema rows", err)
	}

	if d.timeColumn == "" {
		return errors.New(errors.ErrCodeMissingField, "market data has no time column")
	}

	if d.symbol == "" {
		return errors.New(errors.ErrCodeMissingField, "market data has no symbol column")
	}

	return nil
}

func isNumeric(dataType string) bool {
	upper := strings.ToUpper(dataType)
	if strings.HasPrefix(upper, "DECIMAL") {
		return true
	}

	switch upper {
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT",
		"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT",
		"FLOAT", "REAL", "DOUBLE":
		return true
	default:
		return false
	}
}

func quote(column string) string {
	return `"` + strings.ReplaceAll(column, `"`, `""`) + `"`
}

func (d *DuckDBDataSource) ready() error {
	if d.timeColumn == "" {
		return errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	return nil
}

func (d *DuckDBDataSource) filter(builder squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{quote(d.timeColumn): start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{quote(d.timeColumn): end.Unwrap()})
	}

	return builder
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}

	query, args, err := d.filter(d.sq.Select("COUNT(*)").From(marketDataView), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count market data", err)
	}

	return count, nil
}

// ReadAll implements DataSource. Values are read as text so decimals keep the source's digits.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		if err := d.ready(); err != nil {
			yield(types.MarketData{}, err)

			return
		}

		columns := []string{
			fmt.Sprintf("CAST(%s AS TIMESTAMP)", quote(d.timeColumn)),
			fmt.Sprintf("CAST(%s AS VARCHAR)", quote(d.symbol)),
		}
		for _, field := range d.fields {
			columns = append(columns, fmt.Sprintf("CAST(%s AS VARCHAR)", quote(field.column)))
		}

		query, args, err := d.filter(d.sq.Select(columns...).From(marketDataView), start, end).
			OrderBy(quote(d.timeColumn)+" ASC", quote(d.symbol)+" ASC").
			ToSql()
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build read query", err))

			return
		}

		d.logger.Debug("Reading market data", zap.String("query", query))

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query market data", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			row, err := d.scan(rows)
			if !yield(row, err) || err != nil {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating market data", err))
		}
	}
}

func (d *DuckDBDataSource) scan(rows *sql.Rows) (types.MarketData, error) {
	var (
		timestamp time.Time
		symbol    string
	)

	values := make([]sql.NullString, len(d.fields))
	targets := make([]any, 0, len(d.fields)+2)
	targets = append(targets, &timestamp, &symbol)

	for i := range values {
		targets = append(targets, &values[i])
	}

	if err := rows.Scan(targets...); err != nil {
		return types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err)
	}

	row := types.MarketData{
		Time:   timestamp,
		Symbol: symbol,
		Fields: make(map[string]decimal.NullDecimal, len(d.fields)),
	}

	for i, value := range values {
		if !value.Valid {
			row.Fields[d.fields[i].field] = decimal.NullDecimal{}

			continue
		}

		parsed, err := decimal.NewFromString(value.String)
		if err != nil {
			return types.MarketData{}, errors.Wrapf(errors.ErrCodeInvalidType, err, "column %s of %s at %s is not a number",
				d.fields[i].column, symbol, timestamp.Format(time.RFC3339))
		}

		row.Fields[d.fields[i].field] = decimal.NewNullDecimal(parsed)
	}

	return row, nil
}

// Symbols implements DataSource.
func (d *DuckDBDataSource) Symbols() ([]string, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}

	query, args, err := d.sq.Select(fmt.Sprintf("DISTINCT CAST(%s AS VARCHAR) AS symbol", quote(d.symbol))).
		From(marketDataView).
		OrderBy("symbol").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build symbols query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query symbols", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating symbols", err)
	}

	return symbols, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}
