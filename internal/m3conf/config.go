// Public domain.

// Package m3conf holds the model3d configuration:  physical constants,
// coordinate conventions and fit settings.  Default returns the values the
// model was developed with; Load overlays a YAML file on them.
package m3conf

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration.
type Config struct {
	Physics Physics `yaml:"physics"`
	Camera  Camera  `yaml:"camera"`
	Fit     Fit     `yaml:"fit"`
	Site    Site    `yaml:"site"`
	Debug   bool    `yaml:"debug"`   // trace fit states
	Display bool    `yaml:"display"` // keep per-pixel model signal
}

// Physics holds detector and atmosphere constants.
type Physics struct {
	MirrorArea    float64 `yaml:"mirror_area"`    // m², default per telescope
	PixelDiameter float64 `yaml:"pixel_diameter"` // deg, default per telescope
	EtaCoeff      float64 `yaml:"eta_coeff"`      // Cherenkov half-angle at zenith, rad
	ExcessNoise   float64 `yaml:"excess_noise"`   // single pe width / mean
	GaussLimit    float64 `yaml:"gauss_limit"`    // pe; larger model signals use a Gaussian
	PoissonWindow float64 `yaml:"poisson_window"` // standard deviations summed
	PDFFloor      float64 `yaml:"pdf_floor"`
	MinPed        float64 `yaml:"min_ped"` // pe

	// start value scaling of photon yield from image size
	NcPerSize         float64 `yaml:"nc_per_size"`
	NcCorrection      float64 `yaml:"nc_correction"`
	NominalTelescopes float64 `yaml:"nominal_telescopes"`

	Atmosphere Atmosphere `yaml:"atmosphere"`
}

// Atmosphere is an exponential depth profile with a linear temperature
// lapse, used for the depth of shower maximum and reduced width.
type Atmosphere struct {
	ScaleHeight float64 `yaml:"scale_height"` // km
	Depth0      float64 `yaml:"depth0"`       // vertical depth at sea level, g/cm²
	P0          float64 `yaml:"p0"`           // Pa
	T0          float64 `yaml:"t0"`           // K
	Lapse       float64 `yaml:"lapse"`        // K/km
	Gravity     float64 `yaml:"gravity"`      // m/s²
	MolarMass   float64 `yaml:"molar_mass"`   // g/mol
	GasConstant float64 `yaml:"gas_constant"` // J/(mol K)
}

// Camera fixes the sign of camera y in the sky basis.  YSign applies to
// pixel coordinates, OffsetYSign to source offsets from the geometric
// reconstruction.
type Camera struct {
	YSign       float64 `yaml:"y_sign"`
	OffsetYSign float64 `yaml:"offset_y_sign"`
}

// Fit holds the orchestrator and solver settings.  Arrays indexed by
// parameter follow m3data.Params order.
type Fit struct {
	Solver string `yaml:"solver"` // "twostage" or "lm"

	MinImages         int        `yaml:"min_images"`
	MinPixels         int        `yaml:"min_pixels"`
	MaxPointingSpread float64    `yaml:"max_pointing_spread"` // deg
	CoreCut           float64    `yaml:"core_cut"`            // m
	MaxHeight         float64    `yaml:"max_height"`          // m, start value sanity
	MaxStartGoodness  float64    `yaml:"max_start_goodness"`
	GammaSigmaT       [2]float64 `yaml:"gamma_sigma_t"` // m, open interval
	StartSigmaL       float64    `yaml:"start_sigma_l"` // m, fallback

	// Bounds.  Direction and core are relative to the start value,
	// the rest absolute.
	ElRange   float64    `yaml:"el_range"`   // deg
	AzRange   float64    `yaml:"az_range"`   // deg
	CoreRange float64    `yaml:"core_range"` // m
	Height    [2]float64 `yaml:"height"`
	SigmaL    [2]float64 `yaml:"sigma_l"`
	SigmaT    [2]float64 `yaml:"sigma_t"`
	LogNc     [2]float64 `yaml:"log_nc"`

	// numerical derivative step:  max(StepFrac·|start|, StepMin)
	StepFrac [8]float64 `yaml:"step_frac"`
	StepMin  [8]float64 `yaml:"step_min"`

	MaxCalls      int     `yaml:"max_calls"`      // twostage evaluations, gradients included
	Tolerance     float64 `yaml:"tolerance"`      // converged at edm < .002·tolerance
	MaxIterations int     `yaml:"max_iterations"` // lm
	StepTolerance float64 `yaml:"step_tolerance"` // lm, relative

	Simplex Simplex `yaml:"simplex"`
}

// Simplex configures the optional first stage of the twostage solver.
// It frees height, sigmaT and logNc within its own bounds.
type Simplex struct {
	Enable bool       `yaml:"enable"`
	Calls  int        `yaml:"calls"`
	Height [2]float64 `yaml:"height"`
	SigmaT [2]float64 `yaml:"sigma_t"`
	LogNc  [2]float64 `yaml:"log_nc"`
}

// Site is the observatory location, used for equatorial output.
type Site struct {
	Latitude  float64 `yaml:"latitude"`  // deg
	Longitude float64 `yaml:"longitude"` // deg, east positive
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Physics: Physics{
			MirrorArea:        111,
			PixelDiameter:     .148,
			EtaCoeff:          .015,
			ExcessNoise:       .35,
			GaussLimit:        25,
			PoissonWindow:     5,
			PDFFloor:          1e-25,
			MinPed:            .01,
			NcPerSize:         370,
			NcCorrection:      .97179,
			NominalTelescopes: 4,
			Atmosphere: Atmosphere{
				ScaleHeight: 6.4,
				Depth0:      1300,
				P0:          101325,
				T0:          288.15,
				Lapse:       6.5,
				Gravity:     9.80665,
				MolarMass:   28.9644,
				GasConstant: 8.31447,
			},
		},
		Camera: Camera{YSign: -1, OffsetYSign: 1},
		Fit: Fit{
			Solver:            "twostage",
			MinImages:         2,
			MinPixels:         9,
			MaxPointingSpread: .5,
			CoreCut:           9999,
			MaxHeight:         1e5,
			MaxStartGoodness:  100,
			GammaSigmaT:       [2]float64{5, 25},
			StartSigmaL:       3000,
			ElRange:           10,
			AzRange:           10,
			CoreRange:         250,
			Height:            [2]float64{1000, 20000},
			SigmaL:            [2]float64{100, 10000},
			SigmaT:            [2]float64{1, 80},
			LogNc:             [2]float64{10, 20},
			StepFrac:          [8]float64{1e-5, 1e-5, 1e-2, 1e-2, 1e-3, 1e-3, 1e-2, 1e-3},
			StepMin:           [8]float64{1e-5, 1e-5, .5, .5, 1, 1, .01, 1e-4},
			MaxCalls:          20000,
			Tolerance:         .1,
			MaxIterations:     50,
			StepTolerance:     1e-7,
			Simplex: Simplex{
				Calls:  100,
				Height: [2]float64{2000, 25000},
				SigmaT: [2]float64{1, 80},
				LogNc:  [2]float64{10, 20},
			},
		},
		// VERITAS, Fred Lawrence Whipple Observatory
		Site: Site{Latitude: 31.675, Longitude: -110.952},
	}
}

// Load reads a YAML configuration file.  Settings missing from the file
// keep their default values.
func Load(fn string) (*Config, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err = yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	if err = c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return c, nil
}

// ErrConfig is wrapped by validation errors.
var ErrConfig = errors.New("invalid configuration")

// Validate checks settings for consistency.
func (c *Config) Validate() error {
	p := &c.Physics
	f := &c.Fit
	bad := func(format string, a ...interface{}) error {
		return fmt.Errorf("%w: "+format, append([]interface{}{ErrConfig}, a...)...)
	}
	switch {
	case p.MirrorArea <= 0:
		return bad("mirror_area %g", p.MirrorArea)
	case p.PixelDiameter <= 0:
		return bad("pixel_diameter %g", p.PixelDiameter)
	case p.EtaCoeff <= 0:
		return bad("eta_coeff %g", p.EtaCoeff)
	case p.ExcessNoise < 0:
		return bad("excess_noise %g", p.ExcessNoise)
	case p.GaussLimit <= 0 || p.PoissonWindow <= 0:
		return bad("gauss_limit %g, poisson_window %g",
			p.GaussLimit, p.PoissonWindow)
	case p.PDFFloor <= 0 || p.MinPed <= 0:
		return bad("pdf_floor %g, min_ped %g", p.PDFFloor, p.MinPed)
	case c.Camera.YSign != 1 && c.Camera.YSign != -1:
		return bad("camera y_sign %g", c.Camera.YSign)
	case c.Camera.OffsetYSign != 1 && c.Camera.OffsetYSign != -1:
		return bad("camera offset_y_sign %g", c.Camera.OffsetYSign)
	case f.MinPixels <= 8:
		return bad("min_pixels %d must exceed the 8 fit parameters",
			f.MinPixels)
	case f.GammaSigmaT[0] >= f.GammaSigmaT[1]:
		return bad("gamma_sigma_t %v", f.GammaSigmaT)
	case f.ElRange <= 0 || f.AzRange <= 0 || f.CoreRange <= 0:
		return bad("el_range %g, az_range %g, core_range %g",
			f.ElRange, f.AzRange, f.CoreRange)
	case f.MaxCalls <= 0 || f.MaxIterations <= 0:
		return bad("max_calls %d, max_iterations %d",
			f.MaxCalls, f.MaxIterations)
	}
	for _, r := range []struct {
		name string
		b    [2]float64
	}{
		{"height", f.Height},
		{"sigma_l", f.SigmaL},
		{"sigma_t", f.SigmaT},
		{"log_nc", f.LogNc},
	} {
		if !(r.b[0] < r.b[1]) {
			return bad("%s bounds %v", r.name, r.b)
		}
	}
	if f.SigmaT[0] <= 0 {
		return bad("sigma_t lower bound %g must be positive", f.SigmaT[0])
	}
	for i := range f.StepFrac {
		if f.StepFrac[i] <= 0 || f.StepMin[i] <= 0 {
			return bad("derivative step %d: frac %g, min %g",
				i, f.StepFrac[i], f.StepMin[i])
		}
	}
	return nil
}
