// Package export renders realized simulation results for downstream
// tooling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/voltmesh/prodsim/core/store"
)

// WriteJSON writes the realized series to w in JSON format.
func WriteJSON(w io.Writer, series []store.RealizedSeries) error {
	enc := json.NewEncoder(w)
	return enc.Encode(series)
}

// WriteCSV writes the realized series to w in long format, one row per
// (series, period).
func WriteCSV(w io.Writer, series []store.RealizedSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"variable", "device", "time", "value"}); err != nil {
		return err
	}
	for _, s := range series {
		for i, v := range s.Values {
			ts := ""
			if i < len(s.Times) {
				ts = s.Times[i].Format(time.RFC3339)
			}
			rec := []string{
				s.Name,
				s.Device,
				ts,
				strconv.FormatFloat(v, 'f', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
