package pipeline

// Stage is a position in the linear run state machine.
type Stage int

const (
	StageStart Stage = iota
	StageKeyResolved
	StageDownloaded
	StageExpanded
	StageSegmentsLocated
	StageTransformed
	StageOutputProduced
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageStart:           "start",
	StageKeyResolved:     "key_resolved",
	StageDownloaded:      "downloaded",
	StageExpanded:        "expanded",
	StageSegmentsLocated: "segments_located",
	StageTransformed:     "transformed",
	StageOutputProduced:  "output_produced",
	StageDone:            "done",
	StageFailed:          "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}
