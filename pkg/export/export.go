// Package export writes committed schedules in machine readable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/gridopt/core/events"
)

// WriteJSON writes the schedule to w in JSON format.
func WriteJSON(w io.Writer, schedule []events.CommittedValue) error {
	if schedule == nil {
		schedule = []events.CommittedValue{}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(schedule)
}

// WriteCSV writes the schedule to w in CSV format with a header row.
func WriteCSV(w io.Writer, schedule []events.CommittedValue) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "part", "variable", "value"}); err != nil {
		return err
	}
	for _, v := range schedule {
		rec := []string{
			strconv.Itoa(v.T),
			v.Part,
			v.Variable,
			strconv.FormatFloat(v.Value, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
