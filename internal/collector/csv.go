package collector

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"

	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
)

// DailyFileSuffix names per-symbol exports: <symbol>_daily.csv.
const DailyFileSuffix = "_daily.csv"

// CSVFetcher reads tushare daily exports from a directory.
type CSVFetcher struct {
	Dir    string
	Filter DateFilter
}

// NewCSVFetcher creates a fetcher over dir.
func NewCSVFetcher(dir string, filter DateFilter) *CSVFetcher {
	return &CSVFetcher{Dir: dir, Filter: filter}
}

func (f *CSVFetcher) Name() string { return "csv" }

// Path returns the export file of symbol.
func (f *CSVFetcher) Path(symbol string) string {
	return filepath.Join(f.Dir, symbol+DailyFileSuffix)
}

func (f *CSVFetcher) FetchDaily(_ context.Context, symbol string) (*model.BarSeries, error) {
	file, err := os.Open(f.Path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "no daily export for %s", symbol)
		}
		return nil, errors.Wrapf(errors.ErrCodeDataUnavailable, err, "open daily export for %s", symbol)
	}
	defer file.Close()

	bars, err := ParseDailyCSV(file)
	if err != nil {
		return nil, errors.Wrapf(errors.GetCode(err), err, "parse %s", f.Path(symbol))
	}
	series, err := model.NewBarSeries(symbol, bars)
	if err != nil {
		return nil, err
	}
	return f.Filter.Apply(series), nil
}

// ParseDailyCSV reads rows with the tushare daily columns trade_date, open,
// high, low, close, vol and an optional amount. Columns are located by header
// name. A strictly descending file is returned oldest first; any other order
// is kept as read.
func ParseDailyCSV(r io.Reader) ([]model.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedRecord, "read header", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"trade_date", "open", "high", "low", "close", "vol"} {
		if _, ok := cols[required]; !ok {
			return nil, errors.Newf(errors.ErrCodeMalformedRecord, "missing column %q", required)
		}
	}
	amountCol, hasAmount := cols["amount"]

	var bars []model.Bar
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedRecord, err, "line %d", line)
		}

		date, err := time.Parse(model.DateLayout, strings.TrimSpace(rec[cols["trade_date"]]))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedRecord, err, "line %d: trade_date", line)
		}
		var b model.Bar
		b.Date = date
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"open", &b.Open},
			{"high", &b.High},
			{"low", &b.Low},
			{"close", &b.Close},
			{"vol", &b.Volume},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[field.name]]), 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMalformedRecord, err, "line %d: %s", line, field.name)
			}
			*field.dst = v
		}
		if hasAmount {
			if raw := strings.TrimSpace(rec[amountCol]); raw != "" {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, errors.Wrapf(errors.ErrCodeMalformedRecord, err, "line %d: amount", line)
				}
				b.Amount = optional.Some(v)
			}
		}
		bars = append(bars, b)
	}

	return Chronological(bars), nil
}

// WriteDailyCSV writes bars in the layout ParseDailyCSV reads.
func WriteDailyCSV(w io.Writer, symbol string, bars []model.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ts_code", "trade_date", "open", "high", "low", "close", "vol", "amount"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, b := range bars {
		amount := ""
		if a, err := b.Amount.Take(); err == nil {
			amount = f(a)
		}
		if err := cw.Write([]string{
			symbol, b.Date.Format(model.DateLayout),
			f(b.Open), f(b.High), f(b.Low), f(b.Close), f(b.Volume), amount,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DirLister lists the symbols that have a daily export in Dir.
type DirLister struct {
	Dir string
}

func (l DirLister) ListSymbols(context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSymbolListFailed, err, "read %s", l.Dir)
	}
	var symbols []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), DailyFileSuffix) {
			continue
		}
		symbols = append(symbols, strings.TrimSuffix(e.Name(), DailyFileSuffix))
	}
	sort.Strings(symbols)
	return symbols, nil
}

// CodeFileLister reads symbols from the first column of a CSV file, skipping
// a header row that does not look like a stock code.
type CodeFileLister struct {
	Path string
}

func (l CodeFileLister) ListSymbols(context.Context) ([]string, error) {
	file, err := os.Open(l.Path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSymbolListFailed, err, "open %s", l.Path)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSymbolListFailed, err, "read %s", l.Path)
	}
	var symbols []string
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		code := strings.TrimSpace(rec[0])
		if code == "" || (i == 0 && !strings.Contains(code, ".")) {
			continue
		}
		symbols = append(symbols, code)
	}
	return symbols, nil
}
