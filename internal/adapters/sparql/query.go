package sparql

import (
	"strconv"
	"strings"
)

// DefaultEndpoint is the public LINDAS SPARQL endpoint.
const DefaultEndpoint = "https://lindas.admin.ch/query"

const latestTemperatureTemplate = `
PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX station: <https://environment.ld.admin.ch/foen/hydro/station/>
PREFIX riverObservation: <https://environment.ld.admin.ch/foen/hydro/river/observation/>
PREFIX dimension: <https://environment.ld.admin.ch/foen/hydro/dimension/>

SELECT ?name ?time ?temperature WHERE {
    station:{STATION_ID} <http://schema.org/name> ?name .
    riverObservation:{STATION_ID}
        dimension:waterTemperature ?temperature ;
        dimension:measurementTime ?time .
}
ORDER BY DESC(?time)
LIMIT 1
`

// BuildLatestTemperatureQuery returns the query selecting the name, the most
// recent water temperature and its measurement time for a station.
func BuildLatestTemperatureQuery(stationID uint32) string {
	return strings.ReplaceAll(latestTemperatureTemplate, "{STATION_ID}", strconv.FormatUint(uint64(stationID), 10))
}
