package model

// Action labels what the plant did in one dispatch step. The values appear
// in the ledger CSV.
type Action string

const (
	ActionCharge    Action = "charge"
	ActionDischarge Action = "discharge"
	ActionIdle      Action = "idle"
	// ActionCurtail: surplus was left over after storage took what it could.
	ActionCurtail Action = "curtail"
	// ActionShortage: part of the load went unserved.
	ActionShortage Action = "shortage"
)

// ClassifyStep labels a step from its storage transfer and the energy that
// was curtailed or left unmet. Shortage outranks curtailment, which outranks
// the storage direction.
func ClassifyStep(t Transfer, curtailedKWh, unmetKWh float64) Action {
	switch {
	case unmetKWh > 0:
		return ActionShortage
	case curtailedKWh > 0:
		return ActionCurtail
	case t.PowerKW < 0:
		return ActionCharge
	case t.PowerKW > 0:
		return ActionDischarge
	}
	return ActionIdle
}
