package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jpillora/backoff"
	"github.com/moznion/go-optional"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"KlineStudio/internal/errors"
	"KlineStudio/internal/logger"
	"KlineStudio/internal/model"
)

// DefaultTushareURL is the tushare pro HTTP endpoint.
const DefaultTushareURL = "http://api.tushare.pro"

// DefaultIndexCode is the SSE 50 index whose constituents form the default universe.
const DefaultIndexCode = "000016.SH"

// Price adjustment modes of TushareFetcher.
const (
	// AdjustQFQ scales history by adj_factor / latest adj_factor (forward adjusted).
	AdjustQFQ  = "qfq"
	AdjustNone = "none"
)

// tushare answers this code when the per-minute quota is exhausted.
const tushareRateLimited = 40203

// TushareFetcher implements Fetcher and Lister over the tushare pro API.
type TushareFetcher struct {
	Client     *resty.Client
	Token      string
	Filter     DateFilter
	IndexCode  string
	Adjust     string
	MaxRetries int
	Backoff    *backoff.Backoff
	Logger     *logger.Logger
	Now        func() time.Time
}

// NewTushareFetcher creates a fetcher with optional proxy support.
func NewTushareFetcher(baseURL, token, proxyURL string, filter DateFilter, log *logger.Logger) *TushareFetcher {
	if baseURL == "" {
		baseURL = DefaultTushareURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &TushareFetcher{
		Client:     client,
		Token:      token,
		Filter:     filter,
		IndexCode:  DefaultIndexCode,
		Adjust:     AdjustQFQ,
		MaxRetries: 3,
		Backoff:    &backoff.Backoff{Min: 500 * time.Millisecond, Max: 10 * time.Second, Factor: 2, Jitter: true},
		Logger:     log,
		Now:        time.Now,
	}
}

func (f *TushareFetcher) Name() string { return "tushare" }

type tushareRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

// rows converts items into field-name keyed maps.
func (r *tushareResponse) rows() []map[string]any {
	out := make([]map[string]any, 0, len(r.Data.Items))
	for _, item := range r.Data.Items {
		row := make(map[string]any, len(r.Data.Fields))
		for i, name := range r.Data.Fields {
			if i < len(item) {
				row[name] = item[i]
			}
		}
		out = append(out, row)
	}
	return out
}

type retryableError struct{ error }

func (e retryableError) Unwrap() error { return e.error }

func (f *TushareFetcher) call(ctx context.Context, api string, params map[string]string, fields string) (*tushareResponse, error) {
	b := *f.Backoff
	b.Reset()

	var lastErr error
	for attempt := 0; attempt <= f.MaxRetries; attempt++ {
		out, err := f.callOnce(ctx, api, params, fields)
		if err == nil {
			return out, nil
		}
		lastErr = err
		var retry retryableError
		if !errors.As(err, &retry) || attempt == f.MaxRetries {
			break
		}
		wait := b.Duration()
		f.Logger.Warn("tushare call failed, retrying",
			zap.String("api", api),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCodeDataUnavailable, "tushare call cancelled", ctx.Err())
		case <-time.After(wait):
		}
	}
	if errors.GetCode(lastErr) != errors.ErrCodeUnknown {
		return nil, lastErr
	}
	return nil, errors.Wrapf(errors.ErrCodeDataUnavailable, lastErr, "tushare %s", api)
}

func (f *TushareFetcher) callOnce(ctx context.Context, api string, params map[string]string, fields string) (*tushareResponse, error) {
	resp, err := f.Client.R().
		SetContext(ctx).
		SetBody(tushareRequest{APIName: api, Token: f.Token, Params: params, Fields: fields}).
		Post("")
	if err != nil {
		return nil, retryableError{fmt.Errorf("post %s: %w", api, err)}
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, retryableError{fmt.Errorf("%s: status %d", api, resp.StatusCode())}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeUpstreamRejected, "%s: status %d, body: %s", api, resp.StatusCode(), resp.String())
	}

	var out tushareResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataUnavailable, err, "decode %s response", api)
	}
	if out.Code == tushareRateLimited {
		return nil, retryableError{fmt.Errorf("%s: rate limited: %s", api, out.Msg)}
	}
	if out.Code != 0 {
		return nil, errors.Newf(errors.ErrCodeUpstreamRejected, "%s: code %d: %s", api, out.Code, out.Msg)
	}
	return &out, nil
}

// FetchDaily loads the daily bars of symbol within the date filter, forward
// adjusted unless Adjust is AdjustNone.
func (f *TushareFetcher) FetchDaily(ctx context.Context, symbol string) (*model.BarSeries, error) {
	params := f.rangeParams(symbol)
	out, err := f.call(ctx, "daily", params, "ts_code,trade_date,open,high,low,close,vol,amount")
	if err != nil {
		return nil, err
	}

	bars := make([]model.Bar, 0, len(out.Data.Items))
	for i, row := range out.rows() {
		b, err := tushareBar(row)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedRecord, err, "%s item %d", symbol, i)
		}
		bars = append(bars, b)
	}
	bars = Chronological(bars)

	if f.Adjust != AdjustNone && len(bars) > 0 {
		factors, err := f.adjFactors(ctx, params)
		if err != nil {
			return nil, errors.Wrapf(errors.GetCode(err), err, "adj_factor of %s", symbol)
		}
		if err := applyQFQ(bars, factors); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedRecord, err, "adjust %s", symbol)
		}
	}

	series, err := model.NewBarSeries(symbol, bars)
	if err != nil {
		return nil, err
	}
	return f.Filter.Apply(series), nil
}

func (f *TushareFetcher) rangeParams(symbol string) map[string]string {
	params := map[string]string{"ts_code": symbol}
	if !f.Filter.Start.IsZero() {
		params["start_date"] = f.Filter.Start.Format(model.DateLayout)
	}
	end := f.Filter.End
	if end.IsZero() {
		end = f.Now()
	}
	params["end_date"] = end.Format(model.DateLayout)
	return params
}

// adjFactors returns adj_factor keyed by trade_date.
func (f *TushareFetcher) adjFactors(ctx context.Context, params map[string]string) (map[string]float64, error) {
	out, err := f.call(ctx, "adj_factor", params, "ts_code,trade_date,adj_factor")
	if err != nil {
		return nil, err
	}
	factors := make(map[string]float64, len(out.Data.Items))
	for _, row := range out.rows() {
		date, _ := row["trade_date"].(string)
		v, ok := row["adj_factor"].(float64)
		if date == "" || !ok || v <= 0 {
			continue
		}
		factors[date] = v
	}
	return factors, nil
}

// applyQFQ scales OHLC of ascending bars by factor / latest factor, rounded to
// cents. A day without a factor reuses the previous day's.
func applyQFQ(bars []model.Bar, factors map[string]float64) error {
	latest, ok := factors[bars[len(bars)-1].Date.Format(model.DateLayout)]
	if !ok {
		return fmt.Errorf("no adj_factor for latest bar %s", bars[len(bars)-1].Date.Format(model.DateLayout))
	}
	prev := 0.0
	for i := range bars {
		factor, ok := factors[bars[i].Date.Format(model.DateLayout)]
		if !ok {
			if prev == 0 {
				return fmt.Errorf("no adj_factor for %s", bars[i].Date.Format(model.DateLayout))
			}
			factor = prev
		}
		prev = factor
		ratio := factor / latest
		for _, p := range []*float64{&bars[i].Open, &bars[i].High, &bars[i].Low, &bars[i].Close} {
			*p = math.Round(*p*ratio*100) / 100
		}
	}
	return nil
}

func tushareBar(row map[string]any) (model.Bar, error) {
	var b model.Bar
	raw, _ := row["trade_date"].(string)
	date, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return b, err
	}
	b.Date = date
	for name, dst := range map[string]*float64{
		"open": &b.Open, "high": &b.High, "low": &b.Low, "close": &b.Close, "vol": &b.Volume,
	} {
		v, ok := row[name].(float64)
		if !ok {
			return b, fmt.Errorf("field %s is %v", name, row[name])
		}
		*dst = v
	}
	if v, ok := row["amount"].(float64); ok {
		b.Amount = optional.Some(v)
	}
	return b, nil
}

// ListSymbols returns the constituents of IndexCode on the most recent
// weighting date within the last two months.
func (f *TushareFetcher) ListSymbols(ctx context.Context) ([]string, error) {
	now := f.Now()
	out, err := f.call(ctx, "index_weight", map[string]string{
		"index_code": f.IndexCode,
		"start_date": now.AddDate(0, -2, 0).Format(model.DateLayout),
		"end_date":   now.Format(model.DateLayout),
	}, "index_code,con_code,trade_date,weight")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSymbolListFailed, err, "constituents of %s", f.IndexCode)
	}

	rows := out.rows()
	latest := lo.Max(lo.FilterMap(rows, func(r map[string]any, _ int) (string, bool) {
		d, ok := r["trade_date"].(string)
		return d, ok
	}))
	symbols := lo.Uniq(lo.FilterMap(rows, func(r map[string]any, _ int) (string, bool) {
		code, ok := r["con_code"].(string)
		return code, ok && r["trade_date"] == latest
	}))
	sort.Strings(symbols)
	if len(symbols) == 0 {
		return nil, errors.Newf(errors.ErrCodeSymbolListFailed, "no constituents of %s", f.IndexCode)
	}
	return symbols, nil
}
