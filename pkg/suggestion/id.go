package suggestion

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// idNamespace scopes the name-based UUIDs produced by [AssignIDs].
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/MrWong99/redline/suggestion"))

// AssignIDs returns a copy of batch in which every suggestion without an ID
// has been given a deterministic name-based UUID derived from its content and
// its position in the batch. Running the same batch twice yields the same IDs.
func AssignIDs(batch []Suggestion) []Suggestion {
	out := make([]Suggestion, len(batch))
	for i, s := range batch {
		if s.ID == "" {
			s.ID = uuid.NewSHA1(idNamespace, []byte(idName(i, s))).String()
		}
		out[i] = s
	}
	return out
}

func idName(pos int, s Suggestion) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(pos))
	for _, part := range []string{s.OriginalText, s.SuggestedText, optInt(s.From), optInt(s.To), optInt(s.SegmentIndex)} {
		sb.WriteByte(0)
		sb.WriteString(part)
	}
	return sb.String()
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}
