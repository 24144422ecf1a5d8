package tests

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

func TestHaversine_Properties(t *testing.T) {
	points := []service.Coordinate{
		service.Origin,
		{Lat: 28.7041, Lng: 77.1025},
		{Lat: 12.9716, Lng: 77.5946},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 0, Lng: 0},
	}

	for _, a := range points {
		assert.InDelta(t, 0, service.Haversine(a, a), 1e-9)
		for _, b := range points {
			ab := service.Haversine(a, b)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.InDelta(t, ab, service.Haversine(b, a), 1e-6)
			for _, c := range points {
				assert.LessOrEqual(t, service.Haversine(a, c), ab+service.Haversine(b, c)+1e-6)
			}
		}
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	mumbai := service.Coordinate{Lat: 19.0760, Lng: 72.8777}
	delhi := service.Coordinate{Lat: 28.7041, Lng: 77.1025}

	assert.InDelta(t, 1150, service.Haversine(mumbai, delhi), 15)
}

func TestGeocode_UnknownCityFallsBackToOrigin(t *testing.T) {
	assert.Equal(t, service.Origin, service.Geocode("Atlantis", ""))
	assert.Equal(t, service.Origin, service.Geocode("Atlantis", "12ab"))
	assert.Equal(t, service.Origin, service.Geocode("Atlantis", "4000ab"))
}

func TestGeocode_CityLookupIgnoresCase(t *testing.T) {
	assert.Equal(t, service.Geocode("pune", ""), service.Geocode("  PUNE ", ""))
	assert.NotEqual(t, service.Origin, service.Geocode("Pune", ""))
}

func TestGeocode_PostalJitterIsDeterministicAndSmall(t *testing.T) {
	base := service.Geocode("Delhi", "")
	a := service.Geocode("Delhi", "110099")
	b := service.Geocode("Delhi", "110099")

	assert.Equal(t, a, b)
	// offset is at most 0.99 * 0.1 * 0.5 degrees per axis
	assert.LessOrEqual(t, math.Abs(a.Lat-base.Lat), 0.05)
	assert.LessOrEqual(t, math.Abs(a.Lng-base.Lng), 0.05)

	assert.Equal(t, base, service.Geocode("Delhi", "110000"))
}

func TestEstimate_LocalFlagAndRounding(t *testing.T) {
	estimator := service.NewDistanceEstimator(0)

	local := estimator.Estimate(model.DeliveryAddress{City: "Navi Mumbai", PostalCode: "400703"})
	assert.True(t, local.IsLocal)
	assert.GreaterOrEqual(t, local.Kilometers, 0.0)

	far := estimator.Estimate(model.DeliveryAddress{City: "Kolkata", PostalCode: "700001"})
	assert.False(t, far.IsLocal)
	assert.Greater(t, far.Kilometers, service.DefaultLocalRadiusKm)
	assert.InDelta(t, far.Kilometers, math.Round(far.Kilometers*100)/100, 1e-9)

	unknown := estimator.Estimate(model.DeliveryAddress{City: "Nowhere"})
	assert.Equal(t, model.Distance{Kilometers: 0, IsLocal: true}, unknown)
}

func TestEstimate_CustomRadius(t *testing.T) {
	wide := service.NewDistanceEstimator(200)
	narrow := service.NewDistanceEstimator(10)
	pune := model.DeliveryAddress{City: "Pune"}

	assert.True(t, wide.Estimate(pune).IsLocal)
	assert.False(t, narrow.Estimate(pune).IsLocal)
}
