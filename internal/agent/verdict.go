package agent

import (
	"strings"
	"unicode"
)

// Verdict is the arbiter's judgement on a batch of sampled runs.
type Verdict struct {
	Accepted    bool
	Explanation string
}

var acceptWords = map[string]bool{
	"yes": true, "y": true, "accept": true, "accepted": true, "approve": true, "approved": true,
}

// ParseVerdict reads an arbiter reply. The reply is an acceptance when its
// first word is yes, y, accept or approve; anything else is a rejection
// carrying the full reply as the explanation.
func ParseVerdict(reply string) Verdict {
	reply = strings.TrimSpace(reply)
	first := strings.FieldsFunc(reply, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(first) > 0 && acceptWords[strings.ToLower(first[0])] {
		return Verdict{Accepted: true, Explanation: reply}
	}
	if reply == "" {
		reply = "arbiter gave no explanation"
	}
	return Verdict{Explanation: reply}
}
