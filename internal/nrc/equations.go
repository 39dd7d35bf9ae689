// Package nrc implements the beef cattle nutrient requirement equations used
// to turn a diet energy concentration (CNEm) into animal requirements.
package nrc

import (
	"fmt"
	"math"
	"strings"
)

// DMIEquation selects the dry matter intake prediction.
type DMIEquation int

const (
	// NRC2016 is the quadratic-in-CNEm intake prediction.
	NRC2016 DMIEquation = iota
	// NRC1996 is the legacy prediction with a CNEm < 1 branch.
	NRC1996
)

func (e DMIEquation) String() string {
	switch e {
	case NRC2016:
		return "NRC2016"
	case NRC1996:
		return "NRC1996"
	default:
		return fmt.Sprintf("DMIEquation(%d)", int(e))
	}
}

// ParseDMIEquation resolves a configured equation name. The empty string maps to NRC2016.
func ParseDMIEquation(value string) (DMIEquation, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "NRC2016", "2016":
		return NRC2016, nil
	case "NRC1996", "1996":
		return NRC1996, nil
	default:
		return 0, fmt.Errorf("unknown DMI equation %q", value)
	}
}

// Metabolizable protein regime coefficients (NRC 8th ed.).
const (
	etherExtractThreshold = 0.039

	lowFatSlope      = 0.087
	highFatSlope     = 0.096
	fatTDNAdjustment = 2.55

	rupDigestibility = 0.8
)

// midWeight is the mean of initial and final shrunk body weight. A zero
// final weight means no target was given.
func midWeight(sbw, finalWeight float64) float64 {
	if finalWeight == 0 {
		finalWeight = sbw
	}
	return (sbw + finalWeight) / 2
}

// MaintenanceProtein returns metabolizable protein for maintenance in g/day.
func MaintenanceProtein(sbw float64) (float64, error) {
	if err := requireNonNegative("maintenanceProtein", Arg{"sbw", sbw}); err != nil {
		return 0, err
	}
	return 3.8 * math.Pow(sbw, 0.75), nil
}

// DryMatterIntake returns predicted intake in kg/day.
func DryMatterIntake(cnem, sbw, finalWeight float64, eq DMIEquation) (float64, error) {
	if err := requireNonNegative("dryMatterIntake",
		Arg{"cnem", cnem}, Arg{"sbw", sbw}, Arg{"finalWeight", finalWeight}); err != nil {
		return 0, err
	}
	p := midWeight(sbw, finalWeight)
	switch eq {
	case NRC2016:
		return 0.007259 * p * (1.71167 + 2.64747*cnem - cnem*cnem), nil
	case NRC1996:
		divisor := cnem
		if cnem < 1 {
			divisor = 0.95
		}
		return math.Pow(p, 0.75) * (-0.0869 + 0.2435*cnem - 0.0466*cnem*cnem) / divisor, nil
	default:
		return 0, fmt.Errorf("nrc: unsupported DMI equation %v", eq)
	}
}

// MaintenanceEnergy returns net energy for maintenance in Mcal/day.
func MaintenanceEnergy(sbw, bcs, be, l, sex, a2 float64) (float64, error) {
	if err := requireNonNegative("maintenanceEnergy",
		Arg{"sbw", sbw}, Arg{"bcs", bcs}, Arg{"be", be}, Arg{"l", l}, Arg{"sex", sex}, Arg{"a2", a2}); err != nil {
		return 0, err
	}
	return math.Pow(sbw, 0.75) * (0.077 * be * l * (0.8 + 0.05*(bcs-1)*sex + a2)), nil
}

// PeNDFRequirement returns the physically effective NDF fraction needed to hold ruminal pH.
func PeNDFRequirement(ph float64) (float64, error) {
	if err := requireNonNegative("peNDFRequirement", Arg{"ph", ph}); err != nil {
		return 0, err
	}
	return 0.01 * (ph - 5.46) / 0.038, nil
}

// ConcentrationEnergyForGain converts CNEm into the diet NEg concentration.
func ConcentrationEnergyForGain(cnem float64) (float64, error) {
	if err := requireNonNegative("concentrationEnergyForGain", Arg{"cnem", cnem}); err != nil {
		return 0, err
	}
	return 0.8902*cnem - 0.4359, nil
}

// NetEnergyForGain returns retained energy in Mcal/day. ok is false when
// intake does not cover maintenance, which makes the trial infeasible.
func NetEnergyForGain(cneg, dmi, cnem, nem float64) (neg float64, ok bool, err error) {
	if err := requireNonNegative("netEnergyForGain",
		Arg{"cneg", cneg}, Arg{"dmi", dmi}, Arg{"cnem", cnem}, Arg{"nem", nem}); err != nil {
		return 0, false, err
	}
	if cnem == 0 {
		return 0, false, &DomainError{Equation: "netEnergyForGain", Args: []Arg{{"cnem", cnem}}}
	}
	surplus := dmi - nem/cnem
	if surplus < 0 {
		return 0, false, nil
	}
	return surplus * cneg, true, nil
}

// ShrunkWeightGain returns daily gain in kg/day for a known final weight.
func ShrunkWeightGain(neg, sbw, finalWeight float64) (float64, error) {
	if err := requireNonNegative("shrunkWeightGain",
		Arg{"neg", neg}, Arg{"sbw", sbw}, Arg{"finalWeight", finalWeight}); err != nil {
		return 0, err
	}
	p := midWeight(sbw, finalWeight)
	if p == 0 {
		return 0, &DomainError{Equation: "shrunkWeightGain", Args: []Arg{{"sbw", sbw}, {"finalWeight", finalWeight}}}
	}
	return 13.91 * math.Pow(neg, 0.9116) / math.Pow(p, 0.6836), nil
}

// FinalWeightForDuration solves the final shrunk body weight reached after
// feedingDays at the given retained energy.
func FinalWeightForDuration(neg, sbw, feedingDays float64) (float64, error) {
	if err := requireNonNegative("finalWeightForDuration",
		Arg{"neg", neg}, Arg{"sbw", sbw}, Arg{"feedingDays", feedingDays}); err != nil {
		return 0, err
	}
	inner := 0.1 * (16745.7 + sbw*(267.93+1.07172*sbw) + 260.259*math.Pow(neg, 2279.0/2500.0)*feedingDays)
	return 3.05463 * (-40.9215 + math.Sqrt(inner)), nil
}

// ShrunkWeightGainForDuration returns daily gain when the feeding period
// length is fixed instead of the target weight.
func ShrunkWeightGainForDuration(neg, sbw, feedingDays float64) (float64, error) {
	final, err := FinalWeightForDuration(neg, sbw, feedingDays)
	if err != nil {
		return 0, err
	}
	return ShrunkWeightGain(neg, sbw, final)
}

// MetabolizableProtein returns the metabolizable protein supplied per unit
// of an ingredient. dm above 1 is read as a percentage and rescaled.
// Forage and concentrate currently share the same RUP digestibility.
func MetabolizableProtein(dm, tdn, cp, rup float64, forage bool, ee float64) (float64, error) {
	if err := requireNonNegative("metabolizableProtein",
		Arg{"dm", dm}, Arg{"tdn", tdn}, Arg{"cp", cp}, Arg{"rup", rup}, Arg{"ee", ee}); err != nil {
		return 0, err
	}
	pct := 1.0
	if dm > 1 {
		pct = 0.01
	}

	var b, c float64
	if ee < etherExtractThreshold {
		b, c = lowFatSlope, tdn
	} else {
		b, c = highFatSlope, tdn-fatTDNAdjustment*ee
	}
	return 0.64*b*c*pct*0.001 + rup*pct*cp*pct*rupDigestibility, nil
}
