package model

import (
	"fmt"
	"math"
)

const (
	solarConstantKWm2 = 1.367
	stcIrradianceKWm2 = 1.0
	nominalCellTempC  = 47.0
	stcCellTempC      = 25.0
	// Irradiance and ambient temperature at nominal operating cell temperature conditions.
	noctIrradianceKWm2 = 0.8
	noctAmbientC       = 20.0

	extraterrestrialSubsteps = 10
)

// SolarSpec defines a PV module type and the site it is installed at.
// Angles are in degrees; azimuth is 0 due south, positive clockwise.
// TimeZone is in hours east of GMT (CET = 1, PST = -8).
//
// DeratingFactor and Albedo are empirical; treat them as calibration data.
// The temperature model is only applied when TempCoefficient is non-zero and a
// temperature series is supplied.
type SolarSpec struct {
	Latitude  float64
	Longitude float64
	TimeZone  float64
	Slope     float64
	Azimuth   float64

	ModuleCapacityKW float64
	DeratingFactor   float64
	Albedo           float64

	TempCoefficient float64 // fractional power change per degC, typically negative
	NOCT            float64 // degC, default 47
	STCTemperature  float64 // degC, default 25

	Cost AssetCost
}

func (s SolarSpec) Validate() error {
	if s.ModuleCapacityKW <= 0 {
		return fmt.Errorf("%w: solar module capacity must be > 0", ErrInvalidSpec)
	}
	if s.DeratingFactor <= 0 || s.DeratingFactor > 1 {
		return fmt.Errorf("%w: solar derating factor must be in (0, 1]", ErrInvalidSpec)
	}
	if s.Albedo < 0 || s.Albedo > 1 {
		return fmt.Errorf("%w: solar albedo must be in [0, 1]", ErrInvalidSpec)
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("%w: solar latitude must be in [-90, 90]", ErrInvalidSpec)
	}
	if s.Slope < 0 || s.Slope > 90 {
		return fmt.Errorf("%w: solar slope must be in [0, 90]", ErrInvalidSpec)
	}
	return s.Cost.Validate("solar")
}

// SolarResource is the environmental input of the solar model.
// Temperature is optional; leave Values nil when not modeled.
type SolarResource struct {
	Irradiance  TimeSeries // global horizontal, kW/m^2
	Temperature TimeSeries // ambient, degC
}

// SimulateSolar returns the AC power output (kW) of count modules for every
// timestep of the irradiance series. Output is clipped to [0, rated array capacity].
func SimulateSolar(spec SolarSpec, res SolarResource, count float64) (TimeSeries, error) {
	if err := CheckAligned(res.Irradiance, "irradiance", map[string]TimeSeries{"temperature": res.Temperature}); err != nil {
		return TimeSeries{}, err
	}
	if err := (Configuration{Solar: count}).Validate(); err != nil {
		return TimeSeries{}, err
	}
	if err := spec.Validate(); err != nil {
		return TimeSeries{}, err
	}

	out := res.Irradiance.Zeros()
	if count == 0 {
		return out, nil
	}
	withTemp := spec.TempCoefficient != 0 && res.Temperature.Values != nil
	arrayKW := count * spec.ModuleCapacityKW
	dt := res.Irradiance.StepHours

	for i, g := range res.Irradiance.Values {
		ts := res.Irradiance.TimeAt(i)
		civil := float64(ts.Hour()) + float64(ts.Minute())/60
		gt := spec.incidentRadiation(ts.YearDay(), civil, dt, math.Max(0, g))

		p := arrayKW * spec.DeratingFactor * (gt / stcIrradianceKWm2)
		if withTemp {
			p *= spec.temperatureFactor(res.Temperature.Values[i], gt)
		}
		out.Values[i] = clamp(p, 0, arrayKW)
	}
	return out, nil
}

// incidentRadiation computes the radiation (kW/m^2) on the tilted array surface
// for day-of-year n and civil time t (hours) from global horizontal irradiance g,
// using the Erbs diffuse correlation and the HDKR anisotropic sky model.
func (s SolarSpec) incidentRadiation(n int, civil, dt, g float64) float64 {
	if g <= 0 {
		return 0
	}
	dec := solarDeclination(n)
	omega := s.hourAngle(n, civil)
	cosIncidence, cosZenith := s.incidence(dec, omega)

	g0 := s.extraterrestrialHorizontal(n, civil, dt, dec)
	kt := 0.0
	if g0 > 0 {
		kt = math.Min(g/g0, 1)
	}
	gd := diffuseFraction(kt) * g
	gb := g - gd

	ai := 0.0
	if g0 > 0 {
		ai = gb / g0
	}
	f := math.Sqrt(gb / g)

	// Near the horizon the beam ratio blows up; treat it as unity there.
	rb := 1.0
	if cosZenith > math.Cos(deg2rad(89)) {
		rb = math.Max(cosIncidence, 0) / cosZenith
	}

	beta := deg2rad(s.Slope)
	beam := (gb + gd*ai) * rb
	diffuse := gd * (1 - ai) * ((1 + math.Cos(beta)) / 2) * (1 + f*math.Pow(math.Sin(beta/2), 3))
	ground := g * s.Albedo * ((1 - math.Cos(beta)) / 2)
	return math.Max(0, beam+diffuse+ground)
}

func (s SolarSpec) temperatureFactor(ambientC, gt float64) float64 {
	noct := s.NOCT
	if noct == 0 {
		noct = nominalCellTempC
	}
	stc := s.STCTemperature
	if stc == 0 {
		stc = stcCellTempC
	}
	cellC := ambientC + (noct-noctAmbientC)*(gt/noctIrradianceKWm2)
	return math.Max(0, 1+s.TempCoefficient*(cellC-stc))
}

// solarDeclination returns the declination (degrees) for day-of-year n.
func solarDeclination(n int) float64 {
	return 23.45 * math.Sin(2*math.Pi/365*float64(284+n))
}

// equationOfTime returns the correction (hours) between mean and apparent solar time.
func equationOfTime(n int) float64 {
	b := 2 * math.Pi * float64(n-1) / 365
	return 3.82 * (0.000075 + 0.001868*math.Cos(b) - 0.032077*math.Sin(b) -
		0.014615*math.Cos(2*b) - 0.04089*math.Sin(2*b))
}

// solarTime converts civil time (hours) to apparent solar time (hours).
func (s SolarSpec) solarTime(n int, civil float64) float64 {
	return civil + s.Longitude/15 - s.TimeZone + equationOfTime(n)
}

// hourAngle returns the hour angle (degrees) at the given civil time.
func (s SolarSpec) hourAngle(n int, civil float64) float64 {
	return (s.solarTime(n, civil) - 12) * 15
}

// incidence returns cos(angle of incidence) on the array and cos(zenith angle).
func (s SolarSpec) incidence(decDeg, omegaDeg float64) (cosIncidence, cosZenith float64) {
	lat := deg2rad(s.Latitude)
	slope := deg2rad(s.Slope)
	az := deg2rad(s.Azimuth)
	dec := deg2rad(decDeg)
	omega := deg2rad(omegaDeg)

	cosIncidence = math.Sin(dec)*math.Sin(lat)*math.Cos(slope) -
		math.Sin(dec)*math.Cos(lat)*math.Sin(slope)*math.Cos(az) +
		math.Cos(dec)*math.Cos(lat)*math.Cos(slope)*math.Cos(omega) +
		math.Cos(dec)*math.Sin(lat)*math.Sin(slope)*math.Cos(az)*math.Cos(omega) +
		math.Cos(dec)*math.Sin(slope)*math.Sin(az)*math.Sin(omega)
	cosZenith = math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(omega)
	return clamp(cosIncidence, -1, 1), clamp(cosZenith, -1, 1)
}

// extraterrestrialNormal returns the extraterrestrial normal radiation (kW/m^2).
func extraterrestrialNormal(n int) float64 {
	return solarConstantKWm2 * (1 + 0.033*math.Cos(2*math.Pi*float64(n)/365))
}

// extraterrestrialHorizontal returns the average extraterrestrial horizontal
// radiation (kW/m^2) over [civil, civil+dt). The interval is integrated in
// sub-steps so that sunrise and sunset inside a step are handled.
func (s SolarSpec) extraterrestrialHorizontal(n int, civil, dt, decDeg float64) float64 {
	lat := deg2rad(s.Latitude)
	dec := deg2rad(decDeg)
	gon := extraterrestrialNormal(n)
	sub := dt / extraterrestrialSubsteps

	energy := 0.0
	for k := 0; k < extraterrestrialSubsteps; k++ {
		t1 := civil + float64(k)*sub
		w1 := deg2rad(s.hourAngle(n, t1))
		w2 := deg2rad(s.hourAngle(n, t1+sub))
		e := (12 / math.Pi) * gon * (math.Cos(lat)*math.Cos(dec)*(math.Sin(w2)-math.Sin(w1)) +
			(w2-w1)*math.Sin(lat)*math.Sin(dec))
		if e > 0 {
			energy += e
		}
	}
	return energy / dt
}

// diffuseFraction is the Erbs correlation for the diffuse share of global
// horizontal radiation at clearness index kt.
func diffuseFraction(kt float64) float64 {
	switch {
	case kt <= 0.22:
		return 1 - 0.09*kt
	case kt <= 0.8:
		return 0.9511 - 0.1604*kt + 4.388*kt*kt - 16.638*math.Pow(kt, 3) + 12.336*math.Pow(kt, 4)
	default:
		return 0.165
	}
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
