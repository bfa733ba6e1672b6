package codec

type SidecarState string

const (
	StateIdle        SidecarState = "Idle"
	StateDisabled    SidecarState = "Disabled"
	StateLaunching   SidecarState = "Launching"
	StateVerifying   SidecarState = "Verifying"
	StateSleeping    SidecarState = "Sleeping"
	StateStopped     SidecarState = "Stopped"
	StateCircuitOpen SidecarState = "CircuitOpen"
)
