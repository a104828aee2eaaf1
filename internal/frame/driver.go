package frame

import (
	"context"
	"fmt"
	"strconv"

	"sdfterm/raymarch/internal/camera"
	"sdfterm/raymarch/internal/config"
	"sdfterm/raymarch/internal/logging"
	"sdfterm/raymarch/internal/march"
	"sdfterm/raymarch/internal/scene"
	"sdfterm/raymarch/internal/shading"
	"sdfterm/raymarch/internal/terminal"
	"sdfterm/raymarch/internal/vecmath"
)

const (
	// ScaleX is the number of terminal columns painted per pixel.
	ScaleX = 2
	// LightRate divides the fixed tick into the time fed to the orbiting lights.
	LightRate = 10.0
	// OrbitRate divides the fixed tick into the eye orbit angle in radians.
	OrbitRate = 120.0
)

// Observer receives every rendered frame. Implementations must not block.
type Observer interface {
	ObserveFrame(Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Frame)

// ObserveFrame calls f.
func (f ObserverFunc) ObserveFrame(fr Frame) { f(fr) }

// Option customises a Driver.
type Option func(*Driver)

// WithClock replaces the wall clock, typically with injected time sources.
func WithClock(clock *Clock) Option {
	return func(d *Driver) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithLogger sets the logger used for per-frame diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMonitor shares a monitor with readers such as the stats endpoint.
func WithMonitor(monitor *Monitor) Option {
	return func(d *Driver) {
		if monitor != nil {
			d.monitor = monitor
		}
	}
}

// WithObserver registers a frame observer.
func WithObserver(observer Observer) Option {
	return func(d *Driver) {
		if observer != nil {
			d.observers = append(d.observers, observer)
		}
	}
}

// Driver owns the render state: scene, camera, caches and clock. It renders on
// the calling goroutine only.
type Driver struct {
	cfg        config.RenderConfig
	scene      *scene.Scene
	camera     *camera.Camera
	baseEye    vecmath.Vec3
	orbitTick  int64
	orbited    bool
	directions *camera.DirectionCache
	marcher    march.Marcher
	material   shading.Material
	surface    terminal.Surface
	clock      *Clock
	monitor    *Monitor
	observers  []Observer
	logger     *logging.Logger

	width  int
	height int
	size   vecmath.Vec2
}

// NewDriver prepares the render state for cfg. It fails when the camera basis is degenerate.
func NewDriver(cfg config.RenderConfig, surface terminal.Surface, opts ...Option) (*Driver, error) {
	if surface == nil {
		surface = terminal.Headless{}
	}
	//1.- An orbiting eye needs the look-at transform to keep facing the origin.
	eye := camera.SideEye
	if cfg.Angled {
		eye = camera.AngledEye
	}
	cam, err := camera.NewAt(eye, cfg.Angled || cfg.Orbit)
	if err != nil {
		return nil, fmt.Errorf("build camera: %w", err)
	}
	//2.- Rays use the fractional half width; the pixel loop covers whole pixels only.
	width, height := cfg.Columns/ScaleX, cfg.Lines
	d := &Driver{
		cfg:        cfg,
		scene:      scene.New(cfg.Scene, cfg.Angled, cfg.Rotate),
		camera:     cam,
		baseEye:    cam.Eye,
		directions: camera.NewDirectionCache(width, height),
		marcher:    march.Default(),
		material:   shading.DefaultMaterial(),
		surface:    surface,
		logger:     logging.L(),
		width:      width,
		height:     height,
		size:       vecmath.Vec2{X: float64(cfg.Columns) / ScaleX, Y: float64(height)},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = NewClock()
	}
	if d.monitor == nil {
		d.monitor = NewMonitor()
	}
	return d, nil
}

// Size returns the pixel grid dimensions.
func (d *Driver) Size() (int, int) { return d.width, d.height }

// Monitor exposes the render statistics.
func (d *Driver) Monitor() *Monitor { return d.monitor }

// Camera exposes the current camera.
func (d *Driver) Camera() *camera.Camera { return d.camera }

// Run renders frames until ctx is cancelled or the configured frame limit is reached.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("render loop starting",
		logging.String("scene", d.cfg.Scene.String()),
		logging.Bool("rotate", d.cfg.Rotate),
		logging.Bool("angled", d.cfg.Angled),
		logging.Bool("moving_lights", d.cfg.MovingLights),
		logging.Int("width", d.width),
		logging.Int("height", d.height),
	)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("render loop stopped", logging.Int64("frames", d.clock.Tick().Frame))
			return nil
		default:
		}
		f, err := d.Step()
		if err != nil {
			return err
		}
		if d.cfg.MaxFrames > 0 && f.Number >= int64(d.cfg.MaxFrames) {
			d.logger.Info("frame limit reached", logging.Int64("frames", f.Number))
			return nil
		}
	}
}

// Step renders, presents and paces a single frame.
func (d *Driver) Step() (Frame, error) {
	tick := d.clock.Begin()
	f := d.Render(tick)
	if err := d.surface.Refresh(); err != nil {
		return f, fmt.Errorf("refresh surface: %w", err)
	}
	for _, observer := range d.observers {
		observer.ObserveFrame(f)
	}
	timing := d.clock.End()
	d.monitor.Observe(f, timing.Render)
	d.logger.Debug("frametime",
		logging.Duration("frametime_ms", timing.Interval),
		logging.Duration("render_ms", timing.Render),
		logging.Duration("sleep_ms", timing.Slept),
		logging.Int64("frame", f.Number),
		logging.Int64("fixed_tick", f.FixedTick),
	)
	return f, nil
}

// Render draws every pixel for tick onto the surface and returns the frame.
func (d *Driver) Render(tick Tick) Frame {
	d.scene.SetTick(tick.Fixed)
	if d.cfg.Orbit {
		d.orbit(tick.Fixed)
	}
	lightTick := 0.0
	if d.cfg.MovingLights {
		lightTick = float64(tick.Fixed) / LightRate
	}

	f := NewFrame(tick, d.clock.FPS(), d.width, d.height)
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			result := d.shadePixel(x, y, lightTick)
			f.Set(x, y, result)
			pair := terminal.PairBackground
			if result.IsHit() {
				pair = terminal.PairSolid
			}
			d.surface.Put(y, x*ScaleX, pair, result.Glyph())
		}
	}
	if d.cfg.Overlay {
		d.overlay(f)
	}
	return f
}

func (d *Driver) shadePixel(x, y int, lightTick float64) shading.Result {
	coord := vecmath.Vec2{X: float64(x), Y: float64(y)}
	dir := d.directions.Lookup(x, y, func() vecmath.Vec3 {
		return d.camera.WorldDirection(d.size, coord)
	})
	eye := d.camera.Eye
	dist := d.marcher.ShortestDistance(d.scene, eye, dir, march.MinDist, march.MaxDist)
	if d.marcher.Missed(dist, march.MaxDist) {
		return shading.Miss
	}
	p := eye.Add(dir.Scale(dist))
	return shading.Shade(d.scene, d.material, p, eye, lightTick)
}

// orbit moves the eye and invalidates cached directions when the angle changes.
func (d *Driver) orbit(fixedTick int64) {
	if d.orbited && fixedTick == d.orbitTick {
		return
	}
	eye := camera.Orbit(d.baseEye, float64(fixedTick)/OrbitRate)
	cam, err := camera.NewAt(eye, true)
	if err != nil {
		d.logger.Warn("orbit camera rejected", logging.Error(err), logging.Int64("fixed_tick", fixedTick))
		return
	}
	d.camera = cam
	d.orbitTick = fixedTick
	d.orbited = true
	d.directions.Reset()
}

func (d *Driver) overlay(f Frame) {
	cols := d.width * ScaleX
	rows := d.height
	d.surface.Put(rows-3, cols-2, terminal.PairBackground, strconv.FormatInt(f.Number%60, 10))
	d.surface.Put(rows-2, cols-2, terminal.PairBackground, strconv.FormatInt(f.FixedTick%60, 10))
	d.surface.Put(rows-1, cols-6, terminal.PairBackground, "fps="+strconv.Itoa(f.FPS))
}
