package dispatch

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

// WriteLedgerCSV writes the dispatch trace to path.
func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeLedgerCSV(f, ledger)
}

func EncodeLedgerCSV(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{
		"index",
		"time",
		"load_kw",
		"solar_kw",
		"wind_kw",
		"net_kw",
		"action",
		"requested_storage_kw",
		"storage_power_kw",
		"curtailed_kwh",
		"unmet_kwh",
		"soc_start_kwh",
		"soc_end_kwh",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.Time),
			fmtFloat(r.LoadKW),
			fmtFloat(r.SolarKW),
			fmtFloat(r.WindKW),
			fmtFloat(r.NetKW),
			string(r.Action),
			fmtFloat(r.RequestedStorageKW),
			fmtFloat(r.StoragePowerKW),
			fmtFloat(r.CurtailedKWh),
			fmtFloat(r.UnmetKWh),
			fmtFloat(r.SOCStartKWh),
			fmtFloat(r.SOCEndKWh),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
