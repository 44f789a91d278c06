package builder

import (
	"bytes"
	"encoding/csv"
	"io"
)

// Reference:
// 1355,"British Airways",\N,"BA","BAW","SPEEDBIRD","United Kingdom","Y"

const openflightsNull = `\N`

// ParseAirlines maps IATA and ICAO airline codes to airline names.
func ParseAirlines(data []byte) map[string]string {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	names := make(map[string]string)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.WithError(err).Debug("error reading airline row")
			continue
		}
		if len(row) < 5 {
			continue
		}
		name, iata, icao := row[1], row[3], row[4]
		if name == "" || name == openflightsNull {
			continue
		}
		if iata != "" && iata != openflightsNull {
			names[iata] = name
		}
		if icao != "" && icao != openflightsNull {
			names[icao] = name
		}
	}
	return names
}
