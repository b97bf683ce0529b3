// Package config loads the map control tuning from defaults, an optional
// YAML file and MAPVIEW_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/viper"

	"github.com/joeblew999/plat-mapview/internal/gesture"
	"github.com/joeblew999/plat-mapview/internal/mapcontrol"
	"github.com/joeblew999/plat-mapview/internal/navigator"
	"github.com/joeblew999/plat-mapview/internal/touch"
	"github.com/joeblew999/plat-mapview/internal/viewport"
)

// EnvPrefix prefixes environment overrides, e.g. MAPVIEW_GESTURE_TAP_SLOP.
const EnvPrefix = "MAPVIEW"

// Config holds the tuning of hosted map controls.
type Config struct {
	Gesture    GestureConfig    `mapstructure:"gesture"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Navigation NavigationConfig `mapstructure:"navigation"`
	View       ViewConfig       `mapstructure:"view"`
}

// GestureConfig holds recognizer thresholds.
type GestureConfig struct {
	UnSnapRotation float64       `mapstructure:"unsnap_rotation"`
	ReSnapRotation float64       `mapstructure:"resnap_rotation"`
	TapSlop        float64       `mapstructure:"tap_slop"`
	FlingVelocity  float64       `mapstructure:"fling_velocity"`
	SwipeVelocity  float64       `mapstructure:"swipe_velocity"`
	FlingDuration  time.Duration `mapstructure:"fling_duration"`
	UseDoubleTap   bool          `mapstructure:"use_double_tap"`
	TrackingWindow time.Duration `mapstructure:"tracking_window"`
	Touch          TimingConfig  `mapstructure:"touch"`
	Mouse          TimingConfig  `mapstructure:"mouse"`
	Pen            TimingConfig  `mapstructure:"pen"`
}

// TimingConfig holds the tap timings of one device. A zero Pen row falls
// back to the touch timings.
type TimingConfig struct {
	TapMax         time.Duration `mapstructure:"tap_max"`
	LongTap        time.Duration `mapstructure:"long_tap"`
	DoubleTapDelay time.Duration `mapstructure:"double_tap_delay"`
}

// LimitsConfig holds navigation bounds and locks.
type LimitsConfig struct {
	MinResolution float64 `mapstructure:"min_resolution"`
	MaxResolution float64 `mapstructure:"max_resolution"`
	PanLock       bool    `mapstructure:"pan_lock"`
	ZoomLock      bool    `mapstructure:"zoom_lock"`
	RotationLock  bool    `mapstructure:"rotation_lock"`
	// PanExtent is minX, minY, maxX, maxY in world units. Empty means
	// unbounded.
	PanExtent []float64 `mapstructure:"pan_extent"`
}

// NavigationConfig holds animation settings.
type NavigationConfig struct {
	AnimationDuration time.Duration `mapstructure:"animation_duration"`
	ZoomFactor        float64       `mapstructure:"zoom_factor"`
	FrameInterval     time.Duration `mapstructure:"frame_interval"`
}

// ViewConfig is the initial view of a new control.
type ViewConfig struct {
	Lon      float64 `mapstructure:"lon"`
	Lat      float64 `mapstructure:"lat"`
	Level    float64 `mapstructure:"level"`
	Rotation float64 `mapstructure:"rotation"`
	Width    float64 `mapstructure:"width"`
	Height   float64 `mapstructure:"height"`
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	g := gesture.DefaultConfig()
	touchT := g.Timing(touch.DeviceTouch)
	mouseT := g.Timing(touch.DeviceMouse)
	v.SetDefault("gesture.unsnap_rotation", g.UnSnapRotation)
	v.SetDefault("gesture.resnap_rotation", g.ReSnapRotation)
	v.SetDefault("gesture.tap_slop", g.TapSlop)
	v.SetDefault("gesture.fling_velocity", g.FlingVelocity)
	v.SetDefault("gesture.swipe_velocity", g.SwipeVelocity)
	v.SetDefault("gesture.fling_duration", g.FlingDuration)
	v.SetDefault("gesture.use_double_tap", g.UseDoubleTap)
	v.SetDefault("gesture.tracking_window", g.TrackingWindow)
	v.SetDefault("gesture.touch.tap_max", touchT.TapMax)
	v.SetDefault("gesture.touch.long_tap", touchT.LongTap)
	v.SetDefault("gesture.touch.double_tap_delay", touchT.DoubleTapDelay)
	v.SetDefault("gesture.mouse.tap_max", mouseT.TapMax)
	v.SetDefault("gesture.mouse.long_tap", mouseT.LongTap)
	v.SetDefault("gesture.mouse.double_tap_delay", mouseT.DoubleTapDelay)
	v.SetDefault("gesture.pen.tap_max", time.Duration(0))
	v.SetDefault("gesture.pen.long_tap", time.Duration(0))
	v.SetDefault("gesture.pen.double_tap_delay", time.Duration(0))

	l := navigator.DefaultLimits()
	v.SetDefault("limits.min_resolution", l.MinResolution)
	v.SetDefault("limits.max_resolution", l.MaxResolution)
	v.SetDefault("limits.pan_lock", false)
	v.SetDefault("limits.zoom_lock", false)
	v.SetDefault("limits.rotation_lock", false)
	v.SetDefault("limits.pan_extent", []float64{})

	n := navigator.DefaultOptions()
	v.SetDefault("navigation.animation_duration", n.AnimationDuration)
	v.SetDefault("navigation.zoom_factor", n.ZoomFactor)
	v.SetDefault("navigation.frame_interval", 16*time.Millisecond)

	v.SetDefault("view.lon", 0.0)
	v.SetDefault("view.lat", 0.0)
	v.SetDefault("view.level", 2.0)
	v.SetDefault("view.rotation", 0.0)
	v.SetDefault("view.width", 0.0)
	v.SetDefault("view.height", 0.0)
}

// Default returns the configuration with every default applied.
func Default() Config {
	c, err := decode(newViper())
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return c
}

// Load reads defaults, then path (YAML) when set, then the environment.
// Without a path a mapview.yaml in the working directory is used when
// present.
func Load(path string) (Config, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("mapview")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	c, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Validate rejects settings the control cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Limits.MinResolution <= 0 || c.Limits.MaxResolution <= 0 {
		errs = append(errs, errors.New("limits: resolutions must be positive"))
	}
	if c.Limits.MinResolution > c.Limits.MaxResolution {
		errs = append(errs, fmt.Errorf("limits: min_resolution %v above max_resolution %v", c.Limits.MinResolution, c.Limits.MaxResolution))
	}
	if n := len(c.Limits.PanExtent); n != 0 && n != 4 {
		errs = append(errs, fmt.Errorf("limits: pan_extent needs 4 values, got %d", n))
	}
	if c.Gesture.TapSlop < 0 {
		errs = append(errs, errors.New("gesture: tap_slop must not be negative"))
	}
	if c.Gesture.FlingVelocity < 0 || c.Gesture.SwipeVelocity < 0 {
		errs = append(errs, errors.New("gesture: velocities must not be negative"))
	}
	if c.Navigation.ZoomFactor <= 1 {
		errs = append(errs, fmt.Errorf("navigation: zoom_factor %v must be above 1", c.Navigation.ZoomFactor))
	}
	if c.Navigation.FrameInterval <= 0 {
		errs = append(errs, errors.New("navigation: frame_interval must be positive"))
	}
	return errors.Join(errs...)
}

// GestureConfig maps the gesture section onto recognizer settings.
func (c Config) GestureConfig() gesture.Config {
	g := c.Gesture
	timings := map[touch.Device]gesture.Timing{
		touch.DeviceTouch: g.Touch.timing(),
		touch.DeviceMouse: g.Mouse.timing(),
	}
	if g.Pen != (TimingConfig{}) {
		timings[touch.DevicePen] = g.Pen.timing()
	}
	return gesture.Config{
		UnSnapRotation: g.UnSnapRotation,
		ReSnapRotation: g.ReSnapRotation,
		TapSlop:        g.TapSlop,
		FlingVelocity:  g.FlingVelocity,
		SwipeVelocity:  g.SwipeVelocity,
		FlingDuration:  g.FlingDuration,
		UseDoubleTap:   g.UseDoubleTap,
		TrackingWindow: g.TrackingWindow,
		Timings:        timings,
	}
}

func (t TimingConfig) timing() gesture.Timing {
	return gesture.Timing{TapMax: t.TapMax, LongTap: t.LongTap, DoubleTapDelay: t.DoubleTapDelay}
}

// NavigatorLimits maps the limits section.
func (c Config) NavigatorLimits() navigator.Limits {
	l := navigator.Limits{
		MinResolution: c.Limits.MinResolution,
		MaxResolution: c.Limits.MaxResolution,
		PanLock:       c.Limits.PanLock,
		ZoomLock:      c.Limits.ZoomLock,
		RotationLock:  c.Limits.RotationLock,
	}
	if e := c.Limits.PanExtent; len(e) == 4 {
		b := orb.Bound{Min: orb.Point{e[0], e[1]}, Max: orb.Point{e[0], e[1]}}.Extend(orb.Point{e[2], e[3]})
		l.PanExtent = &b
	}
	return l
}

// NavigatorOptions maps the navigation section.
func (c Config) NavigatorOptions() navigator.Options {
	return navigator.Options{
		AnimationDuration: c.Navigation.AnimationDuration,
		ZoomFactor:        c.Navigation.ZoomFactor,
	}
}

// InitialViewport returns the configured start view in web mercator.
func (c Config) InitialViewport() viewport.Viewport {
	center := navigator.LonLatToMercator(c.View.Lon, c.View.Lat)
	return viewport.Viewport{
		Center:     center,
		Resolution: navigator.LevelResolution(c.View.Level),
		Rotation:   c.View.Rotation,
		Width:      c.View.Width,
		Height:     c.View.Height,
	}
}

// ControlOptions assembles options for a new control. Clock and scheduler
// are left to the host.
func (c Config) ControlOptions() mapcontrol.Options {
	return mapcontrol.Options{
		Gesture:    c.GestureConfig(),
		Limits:     c.NavigatorLimits(),
		Navigation: c.NavigatorOptions(),
		Viewport:   c.InitialViewport(),
	}
}
