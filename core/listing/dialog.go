package listing

// DialogKind tags the active dialog of a screen.
type DialogKind int

const (
	NoDialog DialogKind = iota
	AddDialog
	EditDialog
	ViewDialog
)

var dialogNames = [...]string{"none", "add", "edit", "view"}

func (k DialogKind) String() string {
	if k < NoDialog || k > ViewDialog {
		return "unknown"
	}
	return dialogNames[k]
}

func (k DialogKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseDialogKind is the inverse of DialogKind.String.
func ParseDialogKind(s string) (DialogKind, bool) {
	for i, name := range dialogNames {
		if name == s {
			return DialogKind(i), true
		}
	}
	return NoDialog, false
}

// Dialog is the one dialog open on a screen. Record is the subject of Edit and View;
// Draft holds the last submitted form so a failed mutation can be retried.
type Dialog[T any] struct {
	Kind   DialogKind `json:"kind"`
	Record *T         `json:"record,omitempty"`
	Draft  *T         `json:"draft,omitempty"`
}

func (d Dialog[T]) Open() bool { return d.Kind != NoDialog }
