package domain

// Proposal is a structured trade proposal extracted from free oracle text.
// A nil field means the corresponding label was absent from the reply.
type Proposal struct {
	Direction  *Direction
	Entry      *float64
	StopLoss   *float64
	TakeProfit *float64
	Rationale  string
}

// Actionable reports whether the proposal carries everything needed to open
// a position. A proposal without a direction is "no signal"; a direction
// without price levels cannot be reconciled later and is treated the same.
func (p *Proposal) Actionable() bool {
	return p != nil && p.Direction != nil && p.Entry != nil &&
		p.StopLoss != nil && p.TakeProfit != nil
}
