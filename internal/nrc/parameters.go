package nrc

import "errors"

// ErrGrowthTarget is returned when an animal does not carry exactly one of
// a target weight or a feeding duration.
var ErrGrowthTarget = errors.New("exactly one of target weight and feeding days must be set")

// Animal describes the animal and environment a diet is formulated for.
type Animal struct {
	SBW          float64 // shrunk body weight, kg
	BCS          float64 // body condition score
	BE           float64 // breed factor
	L            float64 // lactation factor
	Sex          float64 // sex factor
	A2           float64 // age/environment adjustment
	PH           float64 // target ruminal pH
	TargetWeight float64 // final shrunk body weight, kg; 0 when feeding days is used
	FeedingDays  float64 // 0 when a target weight is used
	DMI          DMIEquation
}

// CheckGrowthTarget enforces that exactly one growth target is present.
func (a Animal) CheckGrowthTarget() error {
	hasWeight := a.TargetWeight > 0
	hasDays := a.FeedingDays > 0
	if hasWeight == hasDays {
		return ErrGrowthTarget
	}
	return nil
}

// Parameters are the requirements derived for one trial CNEm.
type Parameters struct {
	CNEm     float64
	MPm      float64 // g/day
	DMI      float64 // kg/day
	NEm      float64 // Mcal/day
	PeNDF    float64
	CNEg     float64
	NEg      float64 // Mcal/day
	SWG      float64 // kg/day
	Feasible bool
}

// Compute evaluates every requirement for the trial concentration. A result
// with Feasible == false and a nil error means intake cannot cover
// maintenance at this concentration.
func Compute(cnem float64, a Animal) (Parameters, error) {
	p := Parameters{CNEm: cnem}
	if err := a.CheckGrowthTarget(); err != nil {
		return p, err
	}

	var err error
	if p.MPm, err = MaintenanceProtein(a.SBW); err != nil {
		return p, err
	}
	if p.DMI, err = DryMatterIntake(cnem, a.SBW, a.TargetWeight, a.DMI); err != nil {
		return p, err
	}
	if p.NEm, err = MaintenanceEnergy(a.SBW, a.BCS, a.BE, a.L, a.Sex, a.A2); err != nil {
		return p, err
	}
	if p.PeNDF, err = PeNDFRequirement(a.PH); err != nil {
		return p, err
	}
	if p.CNEg, err = ConcentrationEnergyForGain(cnem); err != nil {
		return p, err
	}

	neg, ok, err := NetEnergyForGain(p.CNEg, p.DMI, cnem, p.NEm)
	if err != nil {
		return p, err
	}
	if !ok {
		return p, nil
	}
	p.NEg = neg

	if a.TargetWeight > 0 {
		p.SWG, err = ShrunkWeightGain(neg, a.SBW, a.TargetWeight)
	} else {
		p.SWG, err = ShrunkWeightGainForDuration(neg, a.SBW, a.FeedingDays)
	}
	if err != nil {
		return p, err
	}
	p.Feasible = true
	return p, nil
}
