package frame

import "time"

const (
	// FrameRate is the number of fixed ticks per second of wall time.
	FrameRate = 60
	// FrameTime is the fixed timestep that drives animation, independent of the achieved frame rate.
	FrameTime = time.Second / FrameRate
)

// Tick identifies one iteration of the render loop.
type Tick struct {
	// Frame counts rendered frames since start.
	Frame int64
	// Fixed is the elapsed wall time in sixtieths of a second, truncated.
	Fixed int64
}

// Timing reports how a frame used its budget.
type Timing struct {
	// Render is the time spent between Begin and End.
	Render time.Duration
	// Interval is the wall time since the previous frame ended.
	Interval time.Duration
	// Slept is the pacing delay applied after the frame.
	Slept time.Duration
}

// Clock tracks the fixed-timestep tick and the rolling frames-per-second counter.
// It is owned by a single render loop and is not safe for concurrent use.
type Clock struct {
	now   func() time.Time
	sleep func(time.Duration)

	start      time.Time
	frameStart time.Time
	lastFrame  time.Time
	tick       Tick

	second      int64
	secondCount int
	fps         int
}

// NewClock starts a clock on the wall time.
func NewClock() *Clock {
	return NewClockWith(time.Now, time.Sleep)
}

// NewClockWith starts a clock on injected time sources.
func NewClockWith(now func() time.Time, sleep func(time.Duration)) *Clock {
	if now == nil {
		now = time.Now
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	started := now()
	return &Clock{
		now:       now,
		sleep:     sleep,
		start:     started,
		lastFrame: started,
		second:    started.Unix(),
	}
}

// Begin advances the frame counter and derives the fixed tick from elapsed wall time.
func (c *Clock) Begin() Tick {
	c.frameStart = c.now()
	c.tick.Frame++
	//1.- FrameTime is rounded down to whole nanoseconds, so the tick scales elapsed time instead.
	c.tick.Fixed = int64(c.frameStart.Sub(c.start) * FrameRate / time.Second)
	return c.tick
}

// End updates the FPS counter and sleeps for whatever remains of the frame budget.
func (c *Clock) End() Timing {
	finished := c.now()
	timing := Timing{
		Render:   finished.Sub(c.frameStart),
		Interval: finished.Sub(c.lastFrame),
	}
	c.lastFrame = finished

	//1.- Publish the previous second's count once the wall second rolls over.
	current := finished.Unix()
	if current > c.second {
		c.fps = c.secondCount
		c.secondCount = 0
	} else {
		c.secondCount++
	}
	c.second = current

	//2.- Only early frames wait; a slow frame starts the next one immediately.
	timing.Slept = Pace(timing.Render)
	if timing.Slept > 0 {
		c.sleep(timing.Slept)
	}
	return timing
}

// Tick returns the most recent tick handed out by Begin.
func (c *Clock) Tick() Tick { return c.tick }

// FPS returns the frame count of the last completed wall second.
func (c *Clock) FPS() int { return c.fps }

// Pace returns how long to wait after a frame that took render, never negative.
func Pace(render time.Duration) time.Duration {
	return max(FrameTime-render, 0)
}
