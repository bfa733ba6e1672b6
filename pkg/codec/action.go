package codec

type ActionCtl int

const (
	ActionStatus ActionCtl = iota
	ActionEvents
	ActionShutdown
)

var ActionResponse = map[ActionCtl]string{
	ActionStatus:   "Check sidecar status successfully",
	ActionEvents:   "Fetch supervision events successfully",
	ActionShutdown: "Shutdown prepared",
}

type ActionMsg struct {
	Action ActionCtl `cbor:""`
	Names  []string  `cbor:",omitempty"`
	Limit  int       `cbor:",omitempty"`
}
