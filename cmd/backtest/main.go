package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"PulseTrade/internal/backtest"
)

func main() {
	candlesPath := flag.String("candles", "", "csv file with candles: symbol,epoch,open,high,low,close")
	balance := flag.Float64("balance", 1000, "initial balance")
	threshold := flag.Float64("threshold", 0, "score threshold (0 = default)")
	duration := flag.Duration("duration", 5*time.Minute, "trade holding period")
	payout := flag.Float64("payout", 0.9, "payout ratio on winning stakes")
	slippage := flag.Float64("slippage", 0.0001, "relative entry slippage")
	commission := flag.Float64("commission", 0, "flat commission per trade")
	showTrades := flag.Bool("trades", false, "print the individual trades")
	flag.Parse()

	if *candlesPath == "" {
		log.Fatal("missing -candles file")
	}

	events, err := backtest.LoadCSV(*candlesPath)
	if err != nil {
		log.Fatalf("load candles: %v", err)
	}
	if len(events) == 0 {
		log.Fatal("no candles in input")
	}

	bt := backtest.New(backtest.Config{
		InitialBalance: *balance,
		Threshold:      *threshold,
		TradeDuration:  *duration,
		Payout:         *payout,
		Slippage:       *slippage,
		Commission:     *commission,
	})
	result := bt.Run(events)

	printReport(result, len(events))
	if *showTrades {
		printTrades(result)
	}
}

func printReport(r backtest.Result, candles int) {
	fmt.Printf("\nbacktest over %d candles\n\n", candles)

	pf := fmt.Sprintf("%.2f", r.ProfitFactor)
	if math.IsInf(r.ProfitFactor, 1) {
		pf = "INF"
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	table.Append("Initial balance", fmt.Sprintf("$%.2f", r.InitialBalance))
	table.Append("Final balance", fmt.Sprintf("$%.2f", r.FinalBalance))
	table.Append("Net profit", fmt.Sprintf("$%.2f", r.NetProfit))
	table.Append("Closed trades", fmt.Sprintf("%d", r.Closed))
	table.Append("Wins / Losses", fmt.Sprintf("%d / %d", r.Wins, r.Losses))
	table.Append("Win rate", fmt.Sprintf("%.1f%%", r.WinRate*100))
	table.Append("Profit factor", pf)
	table.Append("Max drawdown", fmt.Sprintf("%.2f%%", r.MaxDrawdown*100))
	table.Append("Sharpe (per trade)", fmt.Sprintf("%.3f", r.Sharpe))
	table.Render()
}

func printTrades(r backtest.Result) {
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Symbol", "Dir", "Stake", "Score", "Entry", "Profit")
	for _, t := range r.Trades {
		table.Append(
			fmt.Sprintf("%d", t.ID),
			t.Symbol,
			string(t.Direction),
			fmt.Sprintf("$%.2f", t.Stake),
			fmt.Sprintf("%.3f", t.Score),
			fmt.Sprintf("%.5f", t.EntryPrice),
			fmt.Sprintf("$%.2f", t.Profit),
		)
	}
	table.Render()
}
