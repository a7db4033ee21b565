package collector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"PriceScope/internal/model"
)

var (
	// ErrProvider wraps every failure reported by a market data source.
	ErrProvider = errors.New("market data provider error")
	// ErrInvalidRequest is returned for a request that cannot be sent to any provider.
	ErrInvalidRequest = errors.New("invalid history request")
)

// DateLayout is the layout of explicit start and end dates.
const DateLayout = "2006-01-02"

// Periods lists the history periods understood by the providers.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// symbolPattern accepts exchange tickers such as BRK-B, ^GSPC, 7203.T and EURUSD=X.
var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9^][A-Za-z0-9.^=-]{0,15}$`)

// IsValidSymbol reports whether s looks like a ticker. Path separators never match.
func IsValidSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}

// Fetcher defines the interface for fetching daily price history.
type Fetcher interface {
	FetchHistory(ctx context.Context, req HistoryRequest) (*model.PriceSeries, error)
	Name() string
}

// HistoryRequest selects a span of daily bars either by a named period or by
// an explicit start/end date pair (end exclusive). Period wins when both are set.
type HistoryRequest struct {
	Symbol string
	Period string
	Start  string
	End    string
}

// Validate checks the symbol and the span selection.
func (r HistoryRequest) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	if !IsValidSymbol(r.Symbol) {
		return fmt.Errorf("%w: malformed symbol %q", ErrInvalidRequest, r.Symbol)
	}
	if r.Period != "" {
		if !IsValidPeriod(r.Period) {
			return fmt.Errorf("%w: unsupported period %q", ErrInvalidRequest, r.Period)
		}
		return nil
	}
	start, end, err := r.Dates()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRequest, r.Start, r.End)
	}
	return nil
}

// Dates parses the explicit start and end dates.
func (r HistoryRequest) Dates() (start, end time.Time, err error) {
	if r.Start == "" || r.End == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: either a period or both start and end dates are required", ErrInvalidRequest)
	}
	start, err = time.Parse(DateLayout, r.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start date: %v", ErrInvalidRequest, err)
	}
	end, err = time.Parse(DateLayout, r.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end date: %v", ErrInvalidRequest, err)
	}
	return start, end, nil
}

// Label names the requested span: the period, or "start_to_end".
func (r HistoryRequest) Label() string {
	if r.Period != "" {
		return r.Period
	}
	return r.Start + "_to_" + r.End
}

// IsValidPeriod reports whether p is one of Periods.
func IsValidPeriod(p string) bool {
	for _, v := range Periods {
		if v == p {
			return true
		}
	}
	return false
}

// PeriodDays approximates the number of calendar days covered by a period.
func PeriodDays(period string, now time.Time) int {
	switch period {
	case "1d":
		return 1
	case "5d":
		return 7
	case "1mo":
		return 31
	case "3mo":
		return 92
	case "6mo":
		return 183
	case "1y":
		return 366
	case "2y":
		return 731
	case "5y":
		return 1827
	case "10y":
		return 3653
	case "ytd":
		return now.YearDay()
	default:
		return 36500
	}
}
