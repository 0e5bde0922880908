package domain

// Bar carries the price extremes of the latest completed period for an
// instrument/timeframe. Only the extremes are available to the engine, not
// a full tick stream.
type Bar struct {
	High float64
	Low  float64
}
