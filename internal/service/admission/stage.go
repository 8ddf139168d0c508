package admission

// Stage is the position of one booking attempt in the admission flow.
//
//	Validating -> CheckingEvent -> Reserving -> Recording -> Confirmed
//	                                    |            |
//	                                    v            v
//	                           Full / NotFound   Compensating -> failed
type Stage int

const (
	StageValidating Stage = iota
	StageCheckingEvent
	StageReserving
	StageRecording
	StageCompensating
	StageConfirmed
)

func (s Stage) String() string {
	switch s {
	case StageValidating:
		return "validating"
	case StageCheckingEvent:
		return "checking_event"
	case StageReserving:
		return "reserving"
	case StageRecording:
		return "recording"
	case StageCompensating:
		return "compensating"
	case StageConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}
