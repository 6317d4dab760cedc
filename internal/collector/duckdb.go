package collector

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"KlineStudio/internal/errors"
	"KlineStudio/internal/logger"
	"KlineStudio/internal/model"
)

// DailyBarsTable is the relation the DuckDB fetcher queries. Its columns follow
// the tushare daily export.
const DailyBarsTable = "daily_bars"

// DuckDBFetcher implements Fetcher and Lister over a DuckDB database.
type DuckDBFetcher struct {
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	Filter DateFilter
	logger *logger.Logger
}

// NewDuckDBFetcher opens the database at path (":memory:" for an in-memory one).
// When source is set, daily_bars is created as a view over that CSV or parquet glob.
func NewDuckDBFetcher(path, source string, filter DateFilter, log *logger.Logger) (*DuckDBFetcher, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataUnavailable, err, "open duckdb %s", path)
	}
	if log == nil {
		log = logger.NewNop()
	}
	f := &DuckDBFetcher{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		Filter: filter,
		logger: log,
	}
	if source != "" {
		if err := f.Attach(source); err != nil {
			db.Close()
			return nil, err
		}
	}
	return f, nil
}

// Attach replaces daily_bars with a view over source.
func (f *DuckDBFetcher) Attach(source string) error {
	reader := "read_csv_auto"
	if strings.EqualFold(filepath.Ext(source), ".parquet") {
		reader = "read_parquet"
	}
	f.logger.Debug("attaching daily bars", zap.String("source", source), zap.String("reader", reader))

	// squirrel has no DDL support
	query := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM %s('%s')`,
		DailyBarsTable, reader, strings.ReplaceAll(source, "'", "''"))
	if _, err := f.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataUnavailable, err, "attach %s", source)
	}
	return nil
}

// DB exposes the connection for imports and tests.
func (f *DuckDBFetcher) DB() *sql.DB { return f.db }

func (f *DuckDBFetcher) Name() string { return "duckdb" }

func (f *DuckDBFetcher) FetchDaily(ctx context.Context, symbol string) (*model.BarSeries, error) {
	q := f.sq.
		Select(
			"CAST(trade_date AS VARCHAR)",
			"CAST(open AS DOUBLE)", "CAST(high AS DOUBLE)", "CAST(low AS DOUBLE)", "CAST(close AS DOUBLE)",
			"CAST(vol AS DOUBLE)", "CAST(amount AS DOUBLE)",
		).
		From(DailyBarsTable).
		Where(squirrel.Eq{"ts_code": symbol}).
		OrderBy("trade_date ASC")
	if !f.Filter.Start.IsZero() {
		q = q.Where(squirrel.GtOrEq{"CAST(trade_date AS VARCHAR)": f.Filter.Start.Format(model.DateLayout)})
	}
	if !f.Filter.End.IsZero() {
		q = q.Where(squirrel.LtOrEq{"CAST(trade_date AS VARCHAR)": f.Filter.End.Format(model.DateLayout)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "build daily query", err)
	}
	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "query %s", symbol)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var (
			rawDate string
			amount  sql.NullFloat64
			b       model.Bar
		)
		if err := rows.Scan(&rawDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &amount); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "scan %s", symbol)
		}
		if b.Date, err = time.Parse(model.DateLayout, rawDate); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedRecord, err, "%s trade_date", symbol)
		}
		if amount.Valid {
			b.Amount = optional.Some(amount.Float64)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "iterate %s", symbol)
	}
	return model.NewBarSeries(symbol, bars)
}

func (f *DuckDBFetcher) ListSymbols(ctx context.Context) ([]string, error) {
	query, args, err := f.sq.Select("DISTINCT ts_code").From(DailyBarsTable).OrderBy("ts_code").ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSymbolListFailed, "build symbol query", err)
	}
	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSymbolListFailed, "list symbols", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSymbolListFailed, "scan symbol", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// Close releases the database.
func (f *DuckDBFetcher) Close() error {
	return f.db.Close()
}
