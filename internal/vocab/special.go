package vocab

import "fmt"

// Special identifies a structural vocabulary entry.
type Special int

const (
	Pad Special = iota
	Unknown
	Classifier
	Separator
	Mask
	numSpecials
)

// Specials lists every special role in id-table order.
var Specials = [...]Special{Pad, Unknown, Classifier, Separator, Mask}

// Token returns the literal vocabulary string of the role.
func (s Special) Token() string {
	switch s {
	case Pad:
		return "[PAD]"
	case Unknown:
		return "[UNK]"
	case Classifier:
		return "[CLS]"
	case Separator:
		return "[SEP]"
	case Mask:
		return "[MASK]"
	default:
		return fmt.Sprintf("Special(%d)", int(s))
	}
}

func (s Special) String() string { return s.Token() }

// MissingSpecialError is returned when a vocabulary lacks a required special token.
type MissingSpecialError struct {
	Special Special
}

func (e *MissingSpecialError) Error() string {
	return fmt.Sprintf("vocabulary is missing required special token %s", e.Special.Token())
}
