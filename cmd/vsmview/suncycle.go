package main

import (
	"fmt"

	"github.com/chewxy/math32"

	"vsm-engine/math"
	"vsm-engine/scene"
)

// SunCycle swings the sun through the sky so the shadow atlas has something
// to follow.
type SunCycle struct {
	Time   float32 // 0..1: 0=noon, 0.25=sunset, 0.5=midnight, 0.75=sunrise
	Speed  float32 // full-cycle duration in seconds
	Active bool
}

func NewSunCycle() *SunCycle {
	return &SunCycle{Speed: 120, Active: true}
}

func (c *SunCycle) Update(dt float32) {
	if !c.Active {
		return
	}
	c.Time += dt / c.Speed
	for c.Time >= 1 {
		c.Time--
	}
}

// Direction is the direction sunlight travels at the current time.
func (c *SunCycle) Direction() math.Vec3 {
	s, co := math32.Sincos(c.Time * 2 * math32.Pi)
	return math.NewVec3(s, -co, 0.35).Normalize()
}

// Apply turns sun to the current direction. A nil sun is skipped.
func (c *SunCycle) Apply(sun *scene.Light) {
	if sun == nil {
		return
	}
	sun.Rotation = math.QuaternionLookRotation(c.Direction(), math.Vec3Up)
}

// TimeOfDayStr returns a human-readable time label.
func (c *SunCycle) TimeOfDayStr() string {
	hours := c.Time*24 + 12
	h := int(hours) % 24
	m := int((hours - float32(int(hours))) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}
