package simulation

import (
	"math"
	"math/rand"
	"time"
)

// DataGen produces successive sensor readings as a bounded random walk
// around a configured mean. Readings drift step by step, with the odds of
// reversing direction growing as the value wanders away from the mean.
type DataGen struct {
	// sensor data mean value
	mean float64
	// sensor data standard deviation value
	standardDeviation float64
	// stepSizeFactor is used when calculating the next value.
	stepSizeFactor float64
	// sensor data current value
	value float64

	rnd *rand.Rand
}

func NewDataGen(mean, standardDeviation float64) *DataGen {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &DataGen{
		mean:              mean,
		standardDeviation: math.Abs(standardDeviation),
		stepSizeFactor:    math.Abs(standardDeviation) / 10,
		value:             mean - rnd.Float64(),
		rnd:               rnd,
	}
}

// Next computes and returns the next reading.
func (g *DataGen) Next() float64 {
	// first calculate how much the value will be changed
	valueChange := g.rnd.Float64() * g.stepSizeFactor
	// second decide if the value is increased or decreased
	factor := g.decideFactor()
	// apply valueChange and factor to value and return
	g.value += valueChange * factor
	return g.value
}

func (g *DataGen) decideFactor() float64 {
	var (
		continueDirection, changeDirection float64
		distance                           float64 // the distance from the mean.
	)
	// depending on if the current value is smaller or bigger than the mean
	// the direction changes.
	if g.value > g.mean {
		distance = g.value - g.mean
		continueDirection = 1
		changeDirection = -1
	} else {
		distance = g.mean - g.value
		continueDirection = -1
		changeDirection = 1
	}
	// the chance is calculated by taking half of the standardDeviation
	// and subtracting the distance divided by 50. This is done because
	// chance with a distance of zero would mean a 50/50 chance for the
	// randomValue to be higher or lower.
	// The division by 50 was found by empiric testing different values.
	chance := (g.standardDeviation / 2) - (distance / 50)
	randomValue := g.standardDeviation * g.rnd.Float64()
	// if the random value is smaller than the chance we continue in the
	// current direction if not we change the direction.
	if randomValue < chance {
		return continueDirection
	}
	return changeDirection
}
