package provision

// State is the furthest step a provisioning run has completed.
type State int

const (
	StateConfigured State = iota
	StateAuthenticated
	StatePolicyRegistered
	StateLocatorCreated
	StateEndpointEnsuredRunning
	StatePathsResolved
	StateTokensIssued
	StateDone
)

var stateNames = map[State]string{
	StateConfigured:             "Configured",
	StateAuthenticated:          "Authenticated",
	StatePolicyRegistered:       "PolicyRegistered",
	StateLocatorCreated:         "LocatorCreated",
	StateEndpointEnsuredRunning: "EndpointEnsuredRunning",
	StatePathsResolved:          "PathsResolved",
	StateTokensIssued:           "TokensIssued",
	StateDone:                   "Done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
