package service

import (
	"hash/fnv"
	"math"
	"strconv"
	"strings"

	"storefront/pkg/domain/model"
)

const (
	earthRadiusKm        = 6371.0
	DefaultLocalRadiusKm = 50.0
)

type Coordinate struct {
	Lat float64
	Lng float64
}

// Origin is the dispatch point every distance is measured from (Navi Mumbai).
var Origin = Coordinate{Lat: 19.0330, Lng: 73.0297}

var knownCities = map[string]Coordinate{
	"navi mumbai": {Lat: 19.0330, Lng: 73.0297},
	"mumbai":      {Lat: 19.0760, Lng: 72.8777},
	"thane":       {Lat: 19.2183, Lng: 72.9781},
	"pune":        {Lat: 18.5204, Lng: 73.8567},
	"delhi":       {Lat: 28.7041, Lng: 77.1025},
	"bangalore":   {Lat: 12.9716, Lng: 77.5946},
	"hyderabad":   {Lat: 17.3850, Lng: 78.4867},
	"chennai":     {Lat: 13.0827, Lng: 80.2707},
	"kolkata":     {Lat: 22.5726, Lng: 88.3639},
	"ahmedabad":   {Lat: 23.0225, Lng: 72.5714},
}

// DistanceEstimator approximates how far a shipping address is from Origin.
// The result is order metadata only.
type DistanceEstimator interface {
	Estimate(address model.DeliveryAddress) model.Distance
}

func NewDistanceEstimator(localRadiusKm float64) DistanceEstimator {
	if localRadiusKm <= 0 {
		localRadiusKm = DefaultLocalRadiusKm
	}
	return &distanceEstimator{localRadiusKm: localRadiusKm}
}

type distanceEstimator struct {
	localRadiusKm float64
}

func (e *distanceEstimator) Estimate(address model.DeliveryAddress) model.Distance {
	point := Geocode(address.City, address.PostalCode)
	km := math.Round(Haversine(Origin, point)*100) / 100
	return model.Distance{
		Kilometers: km,
		IsLocal:    km <= e.localRadiusKm,
	}
}

// Geocode maps a city to approximate coordinates. Unknown cities resolve to Origin.
// Six-digit postal codes nudge the point by an amount scaled from their last two digits;
// the direction of the nudge is derived from a hash of the code so repeated orders agree.
func Geocode(city, postalCode string) Coordinate {
	point, ok := knownCities[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		point = Origin
	}

	postalCode = strings.TrimSpace(postalCode)
	if len(postalCode) != 6 {
		return point
	}
	lastTwo, err := strconv.Atoi(postalCode[4:])
	if err != nil {
		return point
	}

	offset := float64(lastTwo) / 100
	latJitter, lngJitter := jitter(postalCode)
	point.Lat += (latJitter - 0.5) * offset * 0.1
	point.Lng += (lngJitter - 0.5) * offset * 0.1
	return point
}

// jitter yields two values in [0, 1) from the postal code.
func jitter(postalCode string) (float64, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(postalCode))
	sum := h.Sum64()
	return float64(sum&0xffffffff) / (1 << 32), float64(sum>>32) / (1 << 32)
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(a, b Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
