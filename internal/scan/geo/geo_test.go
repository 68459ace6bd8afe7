package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"qrflow/internal/scan/models"
)

func TestDistance(t *testing.T) {
	berlin := models.Coordinates{Latitude: 52.5200, Longitude: 13.4050}
	paris := models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}

	t.Run("distance to self is zero", func(t *testing.T) {
		assert.Zero(t, Distance(berlin, berlin))
	})

	t.Run("distance is symmetric", func(t *testing.T) {
		assert.Equal(t, Distance(berlin, paris), Distance(paris, berlin))
	})

	t.Run("known city pair within tolerance", func(t *testing.T) {
		// Berlin to Paris is roughly 878 km great-circle.
		d := Distance(berlin, paris)
		assert.InDelta(t, 878, d, 5)
	})

	t.Run("antipodal points approach half circumference", func(t *testing.T) {
		a := models.Coordinates{Latitude: 0, Longitude: 0}
		b := models.Coordinates{Latitude: 0, Longitude: 180}
		assert.InDelta(t, 20015, Distance(a, b), 10)
	})
}
