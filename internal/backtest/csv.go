package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// WriteHistoryCSV writes a result's value trajectory to path.
func WriteHistoryCSV(path string, res *model.BacktestResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeHistoryCSV(f, res)
}

// EncodeHistoryCSV writes one row per trading day: date, close, value.
func EncodeHistoryCSV(out io.Writer, res *model.BacktestResult) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"date", "close", "value"}); err != nil {
		return err
	}
	for _, p := range res.History {
		px := 0.0
		if res.Shares != 0 {
			px = p.Value / res.Shares
		}
		row := []string{
			p.Date.Format(model.DateLayout),
			fmtFloat(px),
			fmtFloat(p.Value),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
