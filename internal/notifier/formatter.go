package notifier

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"PriceScope/internal/model"
	"PriceScope/internal/recorder"
)

const dateLayout = "2006-01-02"

// num renders a value with up to the given decimals; undefined values read "n/a".
func num(v float64, places int) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', places, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// FormatAverageLine reports the mean close over the covered dates.
func FormatAverageLine(a *model.Analysis) string {
	return fmt.Sprintf("Average close of %s over %s...%s was %s",
		html.EscapeString(a.Series.Symbol),
		a.Summary.Start.Format(dateLayout), a.Summary.End.Format(dateLayout),
		num(a.Summary.AveragePrice, 6))
}

// FormatFluctuationAlert formats the alert raised when the close range
// exceeds the threshold.
func FormatFluctuationAlert(alert *model.FluctuationAlert) string {
	return fmt.Sprintf("⚠️ <b>Strong fluctuation</b>: %s moved %s%% between %s and %s (threshold %s%%)",
		html.EscapeString(alert.Symbol), num(alert.Percent, 2),
		alert.Start.Format(dateLayout), alert.End.Format(dateLayout), num(alert.Threshold, 2))
}

// columnValue renders the last value of a windowed column, or why it is missing.
func columnValue(a *model.Analysis, name string, window, places int) string {
	if a.IsSkipped(name) {
		return fmt.Sprintf("n/a (needs %d bars)", window)
	}
	return num(model.Last(a.Column(name)), places)
}

// FormatAnalysisReport formats a complete analysis into a Telegram message.
func FormatAnalysisReport(a *model.Analysis) string {
	var b strings.Builder
	p := a.Params

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s | %d bars\n\n",
		html.EscapeString(a.Series.Symbol), html.EscapeString(a.Label), a.Series.Len()))
	b.WriteString(FormatAverageLine(a) + "\n")
	b.WriteString(fmt.Sprintf("Close std deviation: %s\n", num(a.StdDeviation, 4)))
	b.WriteString(fmt.Sprintf("Fluctuation: %s%% (threshold %s%%)\n\n", num(a.FluctuationPct, 2), num(p.FluctuationThreshold, 2)))

	b.WriteString("📈 <b>Latest values:</b>\n")
	b.WriteString(fmt.Sprintf("  Close: %s\n", num(model.Last(a.Series.Closes()), 4)))
	b.WriteString(fmt.Sprintf("  MA(%d): %s\n", p.MAWindow, columnValue(a, model.ColumnMovingAverage, p.MAWindow, 4)))
	b.WriteString(fmt.Sprintf("  RSI(%d): %s\n", p.RSIWindow, columnValue(a, model.ColumnRSI, p.RSIWindow, 2)))
	b.WriteString(fmt.Sprintf("  MACD(%d,%d): %s | signal(%d): %s\n",
		p.MACDShort, p.MACDLong, num(model.Last(a.MACD), 4), p.MACDSignal, num(model.Last(a.SignalLine), 4)))

	if a.Alert != nil {
		b.WriteString("\n" + FormatFluctuationAlert(a.Alert) + "\n")
	}
	return b.String()
}

// FormatHistory lists recent runs for a symbol, newest first.
func FormatHistory(symbol string, runs []recorder.RunRecord) string {
	symbol = html.EscapeString(strings.ToUpper(symbol))
	if len(runs) == 0 {
		return fmt.Sprintf("No analysis history for %s", symbol)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>%s history</b>\n\n", symbol))
	for _, r := range runs {
		mark := ""
		if r.Alert {
			mark = " ⚠️"
		}
		b.WriteString(fmt.Sprintf("%s | %s | avg %s | fluct %s%% | RSI %s%s\n",
			r.ComputedAt.Format("2006-01-02 15:04"), html.EscapeString(r.Label),
			num(r.AveragePrice, 2), num(r.FluctuationPct, 2), num(r.LastRSI, 1), mark))
	}
	return b.String()
}

// HelpText lists the supported chat commands.
const HelpText = "Available commands:\n" +
	"• /analyze SYMBOL [PERIOD] - run the indicators now\n" +
	"• /history SYMBOL - recent analysis runs\n" +
	"• /help - this message"

var tagStripper = strings.NewReplacer("<b>", "", "</b>", "")

// PlainText turns a formatted message into terminal text.
func PlainText(msg string) string {
	return html.UnescapeString(tagStripper.Replace(msg))
}
