package model

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// City is an entry of the preloaded reference set. Slug is the routing key
// used by the catalog backend; Centroid may be absent for minor cities.
type City struct {
	Name     string      `json:"name"`
	Slug     string      `json:"slug"`
	Centroid *Coordinate `json:"centroid,omitempty"`
}
