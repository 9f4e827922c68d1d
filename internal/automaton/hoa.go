package automaton

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedHOA is returned for translator output that is not a
// readable HOA document.
var ErrMalformedHOA = errors.New("automaton: malformed HOA")

var (
	stateLineRe = regexp.MustCompile(`^State:\s*(\d+)(?:\s+"[^"]*")?\s*(\{[\d\s]*\})?`)
	edgeLineRe  = regexp.MustCompile(`^\[([^\]]*)\]\s*(\d+)`)
	apIndexRe   = regexp.MustCompile(`\d+`)
	quotedRe    = regexp.MustCompile(`"([^"]*)"`)
)

// ParseHOA reads a state-based automaton in Hanoi Omega-Automata format,
// as written by "ltl2tgba -B -H". Edge labels are rendered with
// proposition names ("a & !b"); the always-true label is "1".
func ParseHOA(text string) (*Automaton, error) {
	a := &Automaton{}
	numStates := -1
	haveStart := false
	inBody := false
	cur := -1

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if !inBody {
			key, val, _ := strings.Cut(line, ":")
			val = strings.TrimSpace(val)
			switch key {
			case "States":
				n, err := strconv.Atoi(val)
				if err != nil {
					return nil, fmt.Errorf("%w: States %q", ErrMalformedHOA, val)
				}
				numStates = n
			case "Start":
				n, err := strconv.Atoi(val)
				if err != nil {
					return nil, fmt.Errorf("%w: Start %q (alternating automata are not supported)", ErrMalformedHOA, val)
				}
				a.Initial = n
				haveStart = true
			case "AP":
				for _, m := range quotedRe.FindAllStringSubmatch(val, -1) {
					a.APs = append(a.APs, m[1])
				}
			case "--BODY--":
				inBody = true
			}
			continue
		}

		if line == "--END--" {
			break
		}
		if m := stateLineRe.FindStringSubmatch(line); m != nil {
			id, _ := strconv.Atoi(m[1])
			if numStates >= 0 && id >= numStates {
				return nil, fmt.Errorf("%w: state %d beyond declared %d", ErrMalformedHOA, id, numStates)
			}
			for len(a.States) <= id {
				a.States = append(a.States, State{ID: len(a.States)})
			}
			a.States[id].Accepting = m[2] != ""
			cur = id
			continue
		}
		if m := edgeLineRe.FindStringSubmatch(line); m != nil {
			if cur < 0 {
				return nil, fmt.Errorf("%w: edge before any State line", ErrMalformedHOA)
			}
			dst, _ := strconv.Atoi(m[2])
			label, err := a.renderLabel(m[1])
			if err != nil {
				return nil, err
			}
			a.States[cur].Edges = append(a.States[cur].Edges, Edge{Dst: dst, Label: label, SelfLoop: dst == cur})
			continue
		}
		return nil, fmt.Errorf("%w: unexpected body line %q", ErrMalformedHOA, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("automaton: read HOA: %w", err)
	}

	if !inBody || !haveStart {
		return nil, fmt.Errorf("%w: missing Start or --BODY--", ErrMalformedHOA)
	}
	for len(a.States) < numStates {
		a.States = append(a.States, State{ID: len(a.States)})
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHOA, err)
	}
	return a, nil
}

func (a *Automaton) renderLabel(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "t":
		return "1", nil
	case "f":
		return "0", nil
	}

	var badIndex error
	named := apIndexRe.ReplaceAllStringFunc(raw, func(idx string) string {
		i, _ := strconv.Atoi(idx)
		if i >= len(a.APs) {
			badIndex = fmt.Errorf("%w: label %q references AP %d of %d", ErrMalformedHOA, raw, i, len(a.APs))
			return idx
		}
		return a.APs[i]
	})
	if badIndex != nil {
		return "", badIndex
	}

	r := strings.NewReplacer("&", " & ", "|", " | ")
	return strings.Join(strings.Fields(r.Replace(named)), " "), nil
}
