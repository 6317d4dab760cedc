package calculator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"KlineStudio/internal/errors"
)

// Kind names an indicator family.
type Kind string

const (
	KindMA   Kind = "MA"
	KindVWAP Kind = "VWAP"
	KindRSI  Kind = "RSI"
	KindBOLL Kind = "BOLL"
	KindMACD Kind = "MACD"
)

// Default parameters.
const (
	DefaultRSIPeriod  = 14
	DefaultBOLLPeriod = 20
	DefaultBOLLStdDev = 2.0
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// Spec is one indicator with its parameters. Period applies to MA, RSI and BOLL;
// Fast, Slow and Signal to MACD.
type Spec struct {
	Kind   Kind
	Period int
	StdDev float64
	Fast   int
	Slow   int
	Signal int
}

// MA returns a k-bar moving average spec.
func MA(k int) Spec { return Spec{Kind: KindMA, Period: k} }

// VWAP returns the cumulative VWAP spec.
func VWAP() Spec { return Spec{Kind: KindVWAP} }

// RSI returns a Wilder RSI spec over k changes.
func RSI(k int) Spec { return Spec{Kind: KindRSI, Period: k} }

// BOLL returns a Bollinger Bands spec.
func BOLL(k int, n float64) Spec { return Spec{Kind: KindBOLL, Period: k, StdDev: n} }

// MACD returns a MACD spec.
func MACD(fast, slow, signal int) Spec {
	return Spec{Kind: KindMACD, Fast: fast, Slow: slow, Signal: signal}
}

// Name is the key the indicator is stored under in an IndicatorSet.
func (s Spec) Name() string {
	switch s.Kind {
	case KindMA:
		return fmt.Sprintf("MA%d", s.Period)
	case KindVWAP:
		return "VWAP"
	case KindRSI:
		return fmt.Sprintf("RSI%d", s.Period)
	case KindBOLL:
		if s.StdDev == DefaultBOLLStdDev {
			return fmt.Sprintf("BOLL%d", s.Period)
		}
		return fmt.Sprintf("BOLL%d_%s", s.Period, strconv.FormatFloat(s.StdDev, 'f', -1, 64))
	case KindMACD:
		if s.Fast == DefaultMACDFast && s.Slow == DefaultMACDSlow && s.Signal == DefaultMACDSignal {
			return "MACD"
		}
		return fmt.Sprintf("MACD%d_%d_%d", s.Fast, s.Slow, s.Signal)
	default:
		return string(s.Kind)
	}
}

// Validate rejects parameters no computation can use.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindMA, KindRSI:
		if s.Period <= 0 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "%s period must be positive, got %d", s.Kind, s.Period)
		}
	case KindVWAP:
	case KindBOLL:
		if s.Period <= 0 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "BOLL period must be positive, got %d", s.Period)
		}
		if s.StdDev <= 0 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "BOLL width must be positive, got %g", s.StdDev)
		}
	case KindMACD:
		if s.Fast <= 0 || s.Slow <= 0 || s.Signal <= 0 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "MACD periods must be positive, got %d/%d/%d", s.Fast, s.Slow, s.Signal)
		}
		if s.Fast >= s.Slow {
			return errors.Newf(errors.ErrCodeInvalidParameter, "MACD fast period %d must be shorter than slow %d", s.Fast, s.Slow)
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown indicator kind %q", s.Kind)
	}
	return nil
}

// ParseSpec reads an indicator name such as "MA5", "VWAP", "RSI", "RSI14",
// "BOLL", "BOLL20" or "MACD". Missing parameters take the defaults.
func ParseSpec(name string) (Spec, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	switch {
	case upper == "VWAP":
		return VWAP(), nil
	case upper == "MACD":
		return MACD(DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal), nil
	case strings.HasPrefix(upper, "BOLL"):
		k, err := parsePeriod(upper, "BOLL", DefaultBOLLPeriod)
		if err != nil {
			return Spec{}, err
		}
		return BOLL(k, DefaultBOLLStdDev), nil
	case strings.HasPrefix(upper, "RSI"):
		k, err := parsePeriod(upper, "RSI", DefaultRSIPeriod)
		if err != nil {
			return Spec{}, err
		}
		return RSI(k), nil
	case strings.HasPrefix(upper, "MA"):
		k, err := parsePeriod(upper, "MA", 0)
		if err != nil {
			return Spec{}, err
		}
		return MA(k), nil
	}
	return Spec{}, errors.Newf(errors.ErrCodeInvalidParameter, "unknown indicator %q", name)
}

func parsePeriod(name, prefix string, def int) (int, error) {
	rest := strings.TrimPrefix(name, prefix)
	if rest == "" {
		if def == 0 {
			return 0, errors.Newf(errors.ErrCodeInvalidParameter, "indicator %q needs a period", name)
		}
		return def, nil
	}
	k, err := strconv.Atoi(rest)
	if err != nil || k <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "indicator %q has an invalid period", name)
	}
	return k, nil
}

// Request lists the indicators to compute for one series.
type Request struct {
	Indicators []Spec
}

// NewRequest builds a request from indicator names.
func NewRequest(names ...string) (Request, error) {
	specs := make([]Spec, 0, len(names))
	for _, n := range names {
		s, err := ParseSpec(n)
		if err != nil {
			return Request{}, err
		}
		specs = append(specs, s)
	}
	return Request{Indicators: specs}, nil
}

// Names returns the indicator names of the request, sorted and de-duplicated.
func (r Request) Names() []string {
	names := lo.Uniq(lo.Map(r.Indicators, func(s Spec, _ int) string { return s.Name() }))
	sort.Strings(names)
	return names
}

// Union merges requests, keeping the first spec seen for each name.
func Union(reqs ...Request) Request {
	var all []Spec
	for _, r := range reqs {
		all = append(all, r.Indicators...)
	}
	uniq := lo.UniqBy(all, func(s Spec) string { return s.Name() })
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].Name() < uniq[j].Name() })
	return Request{Indicators: uniq}
}

// Validate checks every spec of the request.
func (r Request) Validate() error {
	for _, s := range r.Indicators {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
