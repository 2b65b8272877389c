package vsm

import "errors"

var (
	// ErrConfigInvalid is returned when the settings cannot describe an
	// atlas (no cascades or a zero resolution). Nothing is allocated.
	ErrConfigInvalid = errors.New("vsm: invalid shadow configuration")

	// ErrUnsupportedFormat means the device offers none of the acceptable
	// moment or capture formats. It is fatal for the pipeline.
	ErrUnsupportedFormat = errors.New("vsm: no supported render texture format")

	// ErrPoseUnresolved is logged when the main camera or the primary light
	// is missing; the shadow camera keeps its previous pose.
	ErrPoseUnresolved = errors.New("vsm: shadow camera pose unresolved")

	// ErrTransientRenderFault may be returned by a DepthRenderer for a
	// glitch that only spoils one capture. The cascade is still composited.
	ErrTransientRenderFault = errors.New("vsm: transient render fault")
)
