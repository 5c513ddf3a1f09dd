package booking

// State enumerates the single authoritative conversation stage. Exactly one
// machine instance exists per conversation; the confirmation sub-flow lives
// inside it rather than as a second machine that could diverge.
type State string

const (
	StateGreeting       State = "greeting"
	StateNameCollection State = "name_collection"
	StateVehicleDetails State = "vehicle_details"
	StateDateSelection  State = "date_selection"
	StateConfirmation   State = "confirmation"
	StateCompleted      State = "completed"
	StateCancelled      State = "cancelled"
)

// collectionOrder is the forward path through the data-collection stages.
var collectionOrder = []State{
	StateGreeting,
	StateNameCollection,
	StateVehicleDetails,
	StateDateSelection,
}

// allowedTransitions is the complete legal transition table. Anything absent
// fails loudly with IllegalTransitionError.
var allowedTransitions = map[State][]State{
	StateGreeting:       {StateNameCollection, StateConfirmation},
	StateNameCollection: {StateVehicleDetails, StateConfirmation},
	StateVehicleDetails: {StateDateSelection, StateConfirmation},
	StateDateSelection:  {StateConfirmation},
	StateConfirmation:   {StateConfirmation, StateCompleted, StateCancelled},
	StateCompleted:      {},
	StateCancelled:      {},
}

// stageSection maps each collection stage to the scratchpad section it is
// allowed to populate. Greeting collects nothing.
var stageSection = map[State]string{
	StateNameCollection: SectionCustomer,
	StateVehicleDetails: SectionVehicle,
	StateDateSelection:  SectionAppointment,
}

// stageGate lists the fields that must be filled before a collection stage
// advances on its own.
var stageGate = map[State][]FieldRef{
	StateNameCollection: {{Section: SectionCustomer, Field: "first_name"}},
	StateVehicleDetails: {
		{Section: SectionVehicle, Field: "brand"},
		{Section: SectionVehicle, Field: "plate"},
	},
	StateDateSelection: {{Section: SectionAppointment, Field: "date"}},
}

// Machine is the conversation state machine. The exported field exists only
// for session serialization; mutate through Transition and its helpers.
type Machine struct {
	Current State `json:"current"`
}

// NewMachine starts a machine at greeting.
func NewMachine() *Machine {
	return &Machine{Current: StateGreeting}
}

// Transition moves to the target state or fails with IllegalTransitionError.
func (m *Machine) Transition(to State) error {
	for _, legal := range allowedTransitions[m.Current] {
		if legal == to {
			m.Current = to
			return nil
		}
	}
	return &IllegalTransitionError{From: m.Current, To: to}
}

// Terminal reports whether the machine reached completed or cancelled.
func (m *Machine) Terminal() bool {
	return m.Current == StateCompleted || m.Current == StateCancelled
}

// Collecting reports whether the current state still accepts field writes.
func (m *Machine) Collecting() bool {
	for _, s := range collectionOrder {
		if m.Current == s {
			return true
		}
	}
	return false
}

// CollectionSection returns the scratchpad section the current stage may
// populate; empty during greeting, confirmation, and terminal states.
func (m *Machine) CollectionSection() string {
	return stageSection[m.Current]
}

// AdvanceCollection walks the machine forward through collection stages while
// each stage's gating fields are filled. A skip signal advances one stage
// regardless of gate, but never past date_selection: confirmation is reached
// only through EnterConfirmation.
func (m *Machine) AdvanceCollection(pad *Scratchpad, skip bool) error {
	if !m.Collecting() {
		return nil
	}
	if m.Current == StateGreeting {
		if err := m.Transition(StateNameCollection); err != nil {
			return err
		}
	}
	for m.Current != StateDateSelection {
		if !skip && !stageSatisfied(m.Current, pad) {
			return nil
		}
		next := nextCollectionStage(m.Current)
		if err := m.Transition(next); err != nil {
			return err
		}
		skip = false
	}
	return nil
}

// EnterConfirmation moves any collection stage into confirmation. With
// allowPartial unset the gate requires full required-field completeness; with
// it set a partial confirmation is permitted and the renderer highlights the
// gaps. An unmet gate is not an error: the machine stays where collection
// prompts remain legal and entered is false. Re-entering from confirmation is
// legal.
func (m *Machine) EnterConfirmation(pad *Scratchpad, required []FieldRef, allowPartial bool) (entered bool, err error) {
	if m.Current == StateConfirmation {
		return true, nil
	}
	if !allowPartial && pad.Completeness(required) < 1.0 {
		return false, nil
	}
	if err := m.Transition(StateConfirmation); err != nil {
		return false, err
	}
	return true, nil
}

func nextCollectionStage(s State) State {
	for i, stage := range collectionOrder {
		if stage == s && i+1 < len(collectionOrder) {
			return collectionOrder[i+1]
		}
	}
	return StateConfirmation
}

func stageSatisfied(s State, pad *Scratchpad) bool {
	for _, ref := range stageGate[s] {
		if !pad.GetField(ref.Section, ref.Field).HasValue() {
			return false
		}
	}
	return true
}
