package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vsm-engine/math"
	"vsm-engine/scene"
)

func TestSunCycleWraps(t *testing.T) {
	c := NewSunCycle()
	c.Update(c.Speed * 1.25)
	assert.InDelta(t, 0.25, c.Time, 1e-5)

	c.Active = false
	c.Update(10)
	assert.InDelta(t, 0.25, c.Time, 1e-5)
}

func TestSunCycleApply(t *testing.T) {
	c := &SunCycle{}
	sun := scene.NewDirectionalLight(math.NewVec3(1, 0, 0), 1)
	c.Apply(sun)

	dir := sun.Direction()
	assert.Less(t, dir.Y, float32(-0.9), "noon sun points down")
	assert.True(t, dir.ApproxEqual(c.Direction(), 1e-4))
	assert.Equal(t, "12:00", c.TimeOfDayStr())

	c.Time = 0.5
	assert.Equal(t, "00:00", c.TimeOfDayStr())
	c.Apply(nil)
}
