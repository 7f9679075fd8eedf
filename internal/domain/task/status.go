package task

// Status values are stored and transmitted as these exact literals.
type Status string

const (
	StatusTodo       Status = "à faire"
	StatusInProgress Status = "en cours"
	StatusDone       Status = "terminé"
	StatusValidated  Status = "validé"
)

var AllStatuses = []Status{StatusTodo, StatusInProgress, StatusDone, StatusValidated}

// UserTargets are the only statuses an owner may request.
var UserTargets = []Status{StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusValidated:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusValidated
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	return s, s.Valid()
}

func statusStrings(ss []Status) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, string(s))
	}
	return out
}
