package codec

import "time"

type ResponseCtl int

const (
	ResponseNormal ResponseCtl = iota
	ResponseShutdown
	ResponseMsgErr
)

type SidecarInfo struct {
	Name     string       `json:"name"`
	State    SidecarState `json:"state"`
	Pid      int          `json:"pid"`
	Port     int          `json:"port"`
	Failures int          `json:"failures"`
	Launches uint64       `json:"launches"`
	StartAt  time.Time    `json:"start_at"`
}

type EventKind string

const (
	EventSupervisorStart EventKind = "supervisor-start"
	EventSupervisorStop  EventKind = "supervisor-stop"
	EventLaunch          EventKind = "launch"
	EventLaunchFailed    EventKind = "launch-failed"
	EventCircuitOpen     EventKind = "circuit-open"
	EventStop            EventKind = "stop"
)

// Event 是事件日志中的一条监督记录
type Event struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Kind    EventKind `json:"kind"`
	Sidecar string    `json:"sidecar,omitempty"`
	Pid     int       `json:"pid,omitempty"`
	Port    int       `json:"port,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

type ResponseMsg struct {
	Code     int            `json:"code"`
	Message  string         `json:"message"`
	Sidecars []*SidecarInfo `json:"sidecars,omitempty"`
	Events   []*Event       `json:"events,omitempty"`
}
