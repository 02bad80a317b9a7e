package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/choreo/internal/signal"
	"github.com/san-kum/choreo/internal/trace"
)

var fixedColumns = []string{"time", "dt", "section", "energy", "interval", "emitted"}

// WriteCSV writes one row per sample: the fixed columns followed by every
// live field. Fields absent from a sample are left empty.
func WriteCSV(w io.Writer, tr *trace.Trace) error {
	cw := csv.NewWriter(w)
	fields := tr.Fields()
	header := append(append([]string(nil), fixedColumns...), fields...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range tr.Samples {
		emitted := "0"
		if s.Emitted {
			emitted = "1"
		}
		row := []string{
			formatFloat(s.At),
			formatFloat(s.Dt),
			s.Section,
			formatFloat(s.Energy),
			formatFloat(s.Interval),
			emitted,
		}
		for _, f := range fields {
			if v, ok := s.Live[f]; ok {
				row = append(row, formatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses what WriteCSV produced.
func ReadCSV(r io.Reader) ([]trace.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []trace.Sample{}, nil
	}
	header := records[0]
	if len(header) < len(fixedColumns) {
		return nil, fmt.Errorf("states.csv: short header")
	}
	fields := header[len(fixedColumns):]

	samples := make([]trace.Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < len(fixedColumns) {
			return nil, fmt.Errorf("states.csv row %d: short record", i+2)
		}
		nums := make([]float64, 0, 4)
		for _, col := range []int{0, 1, 3, 4} {
			v, err := strconv.ParseFloat(rec[col], 64)
			if err != nil {
				return nil, fmt.Errorf("states.csv row %d: %w", i+2, err)
			}
			nums = append(nums, v)
		}
		s := trace.Sample{
			At:       nums[0],
			Dt:       nums[1],
			Section:  rec[2],
			Energy:   nums[2],
			Interval: nums[3],
			Emitted:  rec[5] == "1",
			Live:     make(signal.Vector, len(fields)),
		}
		for j, f := range fields {
			col := len(fixedColumns) + j
			if col >= len(rec) || rec[col] == "" {
				continue
			}
			v, err := strconv.ParseFloat(rec[col], 64)
			if err != nil {
				return nil, fmt.Errorf("states.csv row %d %s: %w", i+2, f, err)
			}
			s.Live[f] = v
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// WriteJSON writes the full trace, targets included.
func WriteJSON(w io.Writer, tr *trace.Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tr)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
