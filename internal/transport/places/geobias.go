package places

import (
	"strings"

	"github.com/leadstack/leadscout/internal/domain"
)

// defaultRadiusMeters is the bias radius applied to resolved cities.
const defaultRadiusMeters = 30000

// cityCoords maps known province/region names to their center coordinates.
// The table is intentionally small: bias is an optimization, unresolved
// names simply search unbiased.
var cityCoords = map[string]domain.GeoBias{
	"madrid":     {Lat: 40.4168, Lng: -3.7038, RadiusMeters: defaultRadiusMeters},
	"barcelona":  {Lat: 41.3874, Lng: 2.1686, RadiusMeters: defaultRadiusMeters},
	"valencia":   {Lat: 39.4699, Lng: -0.3763, RadiusMeters: defaultRadiusMeters},
	"sevilla":    {Lat: 37.3891, Lng: -5.9845, RadiusMeters: defaultRadiusMeters},
	"zaragoza":   {Lat: 41.6488, Lng: -0.8891, RadiusMeters: defaultRadiusMeters},
	"malaga":     {Lat: 36.7213, Lng: -4.4213, RadiusMeters: defaultRadiusMeters},
	"murcia":     {Lat: 37.9922, Lng: -1.1307, RadiusMeters: defaultRadiusMeters},
	"bilbao":     {Lat: 43.2630, Lng: -2.9350, RadiusMeters: defaultRadiusMeters},
	"alicante":   {Lat: 38.3452, Lng: -0.4810, RadiusMeters: defaultRadiusMeters},
	"cordoba":    {Lat: 37.8882, Lng: -4.7794, RadiusMeters: defaultRadiusMeters},
	"valladolid": {Lat: 41.6523, Lng: -4.7245, RadiusMeters: defaultRadiusMeters},
	"vigo":       {Lat: 42.2406, Lng: -8.7207, RadiusMeters: defaultRadiusMeters},
	"gijon":      {Lat: 43.5453, Lng: -5.6615, RadiusMeters: defaultRadiusMeters},
	"granada":    {Lat: 37.1773, Lng: -3.5986, RadiusMeters: defaultRadiusMeters},
}

// ResolveBias returns the geographic bias for the first location that
// matches the city table. Unresolved names are skipped, never an error.
func (c *Client) ResolveBias(locations []string) *domain.GeoBias {
	for _, loc := range locations {
		if bias, ok := cityCoords[normalizeCity(loc)]; ok {
			b := bias
			return &b
		}
	}
	return nil
}

// normalizeCity lowercases and strips the accents that appear in the
// table's city names.
func normalizeCity(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n",
	)
	return replacer.Replace(name)
}
