package model

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

// WriteCashFlowCSV writes the discounted cash-flow table of an NPC result.
func WriteCashFlowCSV(path string, res NPCResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeCashFlowCSV(f, res)
}

// EncodeCashFlowCSV writes the cash-flow table to w.
func EncodeCashFlowCSV(w io.Writer, res NPCResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"year", "discount_factor", "capital", "replacement", "om", "salvage", "total"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range res.CashFlows {
		row := []string{
			strconv.Itoa(r.Year),
			strconv.FormatFloat(r.DiscountFactor, 'f', 6, 64),
			fmtMoney(r.Capital),
			fmtMoney(r.Replacement),
			fmtMoney(r.OM),
			fmtMoney(r.Salvage),
			fmtMoney(r.Total),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtMoney(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
