package ourairports

// Reference:
// "id","ident","type","name","latitude_deg","longitude_deg","elevation_ft","continent","iso_country","iso_region","municipality","scheduled_service","icao_code","iata_code","gps_code","local_code","home_link","wikipedia_link","keywords"
// 2434,"EGLL","large_airport","London Heathrow Airport",51.4706,-0.461941,83,"EU","GB","GB-ENG","London","yes","EGLL","LHR","EGLL",,"http://www.heathrowairport.com/","https://en.wikipedia.org/wiki/Heathrow_Airport","LON, Londres"

type (
	Airport struct {
		Code        string  `json:"code"`
		ICAO        string  `json:"icao"`
		IATA        string  `json:"iata"`
		Name        string  `json:"name"`
		Type        string  `json:"type"`
		Latitude    float64 `json:"lat"`
		Longitude   float64 `json:"lon"`
		Continent   string  `json:"continent"`
		CountryCode string  `json:"country_code"`
		Country     string  `json:"country"`
	}

	// "id","code","name","continent","wikipedia_link","keywords"
	Country struct {
		Code      string `json:"code"`
		Name      string `json:"name"`
		Continent string `json:"continent"`
	}
)

func (a Airport) NE(o Airport) bool {
	return a != o
}
