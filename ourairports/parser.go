package ourairports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	names, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}
	h := make(header, len(names))
	for i, name := range names {
		h[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, found := h[name]; !found {
			return nil, fmt.Errorf("csv column '%s' is missing", name)
		}
	}
	return h, nil
}

func (h header) get(row []string, name string) string {
	idx, found := h[name]
	if !found || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func newReader(data []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

func parseCountries(data []byte) (map[string]Country, error) {
	r := newReader(data)
	h, err := readHeader(r, "code", "name")
	if err != nil {
		return nil, err
	}

	countries := make(map[string]Country)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.WithError(err).Debug("error parsing country")
			continue
		}
		c := Country{
			Code:      h.get(row, "code"),
			Name:      h.get(row, "name"),
			Continent: h.get(row, "continent"),
		}
		if c.Code == "" {
			continue
		}
		countries[c.Code] = c
	}
	return countries, nil
}

func parseAirport(h header, row []string) (Airport, error) {
	iata := h.get(row, "iata_code")
	icao := h.get(row, "icao_code")
	if _, found := h["icao_code"]; !found {
		// older dumps only carry gps_code
		icao = h.get(row, "gps_code")
	}
	if iata == "" && icao == "" {
		return Airport{}, fmt.Errorf("airport '%s' has neither iata nor icao code", h.get(row, "ident"))
	}

	lat, err := strconv.ParseFloat(h.get(row, "latitude_deg"), 64)
	if err != nil {
		return Airport{}, fmt.Errorf("invalid airport latitude '%s'", h.get(row, "latitude_deg"))
	}
	lon, err := strconv.ParseFloat(h.get(row, "longitude_deg"), 64)
	if err != nil {
		return Airport{}, fmt.Errorf("invalid airport longitude '%s'", h.get(row, "longitude_deg"))
	}

	code := iata
	if code == "" {
		code = icao
	}

	return Airport{
		Code:        code,
		ICAO:        icao,
		IATA:        iata,
		Name:        h.get(row, "name"),
		Type:        h.get(row, "type"),
		Latitude:    lat,
		Longitude:   lon,
		Continent:   h.get(row, "continent"),
		CountryCode: h.get(row, "iso_country"),
	}, nil
}

// parseAirports keys airports by Code and resolves country names from
// countries, falling back to the ISO code.
func parseAirports(data []byte, countries map[string]Country) (map[string]Airport, error) {
	r := newReader(data)
	h, err := readHeader(r, "name", "latitude_deg", "longitude_deg", "iata_code")
	if err != nil {
		return nil, err
	}

	airports := make(map[string]Airport)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.WithError(err).Debug("error reading airport row")
			continue
		}
		arpt, err := parseAirport(h, row)
		if err != nil {
			log.WithError(err).Trace("skipping airport")
			continue
		}
		arpt.Country = arpt.CountryCode
		if c, found := countries[arpt.CountryCode]; found {
			arpt.Country = c.Name
		}
		airports[arpt.Code] = arpt
	}
	return airports, nil
}
