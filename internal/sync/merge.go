package sync

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/nhle/notesync/internal/model"
)

// Prefixes marking lines that only one side of a merge has.
const (
	LeftMarker  = "< "
	RightMarker = "> "
)

// MergeTexts builds an editable merge of texts by folding a line diff
// over them from the left. Lines common to both sides are kept as is;
// lines only on the left get LeftMarker and lines only on the right get
// RightMarker.
func MergeTexts(texts ...string) string {
	if len(texts) == 0 {
		return ""
	}
	merged := texts[0]
	for _, next := range texts[1:] {
		merged = mergePair(merged, next)
	}
	return merged
}

// MergeNote merges the bodies of note in message-id order.
func MergeNote(note model.Note) string {
	bodies := note.SortedBodies()
	texts := make([]string, 0, len(bodies))
	for _, b := range bodies {
		texts = append(texts, b.Text)
	}
	return MergeTexts(texts...)
}

func mergePair(left, right string) string {
	a := strings.Split(left, "\n")
	b := strings.Split(right, "\n")

	var out []string
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'e':
			out = append(out, a[op.I1:op.I2]...)
		case 'd':
			out = appendMarked(out, LeftMarker, a[op.I1:op.I2])
		case 'i':
			out = appendMarked(out, RightMarker, b[op.J1:op.J2])
		case 'r':
			out = appendMarked(out, LeftMarker, a[op.I1:op.I2])
			out = appendMarked(out, RightMarker, b[op.J1:op.J2])
		}
	}
	return strings.Join(out, "\n")
}

func appendMarked(out []string, marker string, lines []string) []string {
	for _, l := range lines {
		out = append(out, marker+l)
	}
	return out
}
