package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"PulseTrade/internal/domain/models"
)

// LoadCSV reads candle events from a CSV file with columns
// symbol,epoch,open,high,low,close. A header row is skipped when the
// epoch column does not parse.
func LoadCSV(path string) ([]models.CandleEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses candle events from r; see LoadCSV for the format.
func ReadCSV(r io.Reader) ([]models.CandleEvent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6

	var events []models.CandleEvent
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read candles csv: %w", err)
		}
		line++

		epoch, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: bad epoch %q", line, rec[1])
		}
		prices := make([]float64, 4)
		for i, col := range rec[2:6] {
			v, err := strconv.ParseFloat(col, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad price %q", line, col)
			}
			prices[i] = v
		}
		events = append(events, models.CandleEvent{
			Symbol: rec[0],
			Candle: models.Candle{
				Open:  prices[0],
				High:  prices[1],
				Low:   prices[2],
				Close: prices[3],
				Epoch: epoch,
			},
		})
	}
	return events, nil
}
