// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fade

import (
	"fmt"
	"time"

	"github.com/kortschak/artdisplay/internal/raster"
)

// Config holds the timing and rendering parameters of an Animator. It is
// copied at construction and not altered afterwards.
type Config struct {
	// FadeSteps is the number of discrete steps in a cross-fade.
	FadeSteps int
	// FadeTotal is the total duration of a cross-fade.
	FadeTotal time.Duration
	// WorkingDelay is the delay before the first fade step when
	// the incoming art is still being fetched.
	WorkingDelay time.Duration
	// Threshold is the fade progress beyond which a fade is
	// complete.
	Threshold float64

	// ThrobberRate is the activity indicator frame rate in
	// frames per second.
	ThrobberRate int
	// ThrobberDelay is the delay before the activity indicator's
	// first frame is shown. If zero, the first frame is shown one
	// frame period after the art becomes pending.
	ThrobberDelay time.Duration

	// Aspect is the near-square aspect ratio range used when
	// padding incoming art.
	Aspect raster.Aspect
	// Filter is the resampling filter used for compositing.
	Filter raster.Filter
}

// DefaultConfig returns the default animation configuration: a ten step
// fade over one second, delayed by half a second for pending art, and a ten
// frame per second activity indicator.
func DefaultConfig() Config {
	return Config{
		FadeSteps:    10,
		FadeTotal:    time.Second,
		WorkingDelay: 500 * time.Millisecond,
		Threshold:    0.999,
		ThrobberRate: 10,
		Aspect:       raster.DefaultAspect,
		Filter:       raster.BiLinear,
	}
}

// Validate returns an error if the configuration is not usable.
func (c Config) Validate() error {
	switch {
	case c.FadeSteps < 1:
		return fmt.Errorf("invalid fade steps: %d", c.FadeSteps)
	case c.stepPeriod() <= 0:
		return fmt.Errorf("fade total too short for steps: %v/%d", c.FadeTotal, c.FadeSteps)
	case c.WorkingDelay < 0:
		return fmt.Errorf("invalid working delay: %v", c.WorkingDelay)
	case c.Threshold <= 0 || c.Threshold > 1:
		return fmt.Errorf("invalid fade threshold: %v", c.Threshold)
	case c.ThrobberRate < 1:
		return fmt.Errorf("invalid throbber rate: %d", c.ThrobberRate)
	case c.ThrobberDelay < 0:
		return fmt.Errorf("invalid throbber delay: %v", c.ThrobberDelay)
	case c.Aspect.Min > c.Aspect.Max || c.Aspect.Min <= 0:
		return fmt.Errorf("invalid aspect range: [%v, %v]", c.Aspect.Min, c.Aspect.Max)
	}
	return nil
}

// stepPeriod returns the period between fade steps.
func (c Config) stepPeriod() time.Duration {
	if c.FadeSteps < 1 {
		return c.FadeTotal
	}
	return c.FadeTotal / time.Duration(c.FadeSteps)
}

// framePeriod returns the period between activity indicator frames.
func (c Config) framePeriod() time.Duration {
	if c.ThrobberRate < 1 {
		return time.Second
	}
	return time.Second / time.Duration(c.ThrobberRate)
}
