package agent

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoCodeBlock is returned when generator output holds no fenced block
// in the requested language.
var ErrNoCodeBlock = errors.New("agent: no code block")

var fenceRe = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+-]*)[^\\n]*\\n(.*?)```")

// ExtractBlock returns the body of the first fenced block tagged lang
// (case-insensitive). If none is tagged, a single untagged block is
// accepted. Anything else is ErrNoCodeBlock.
func ExtractBlock(text, lang string) (string, error) {
	var untagged []string
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		tag, body := m[1], strings.TrimSpace(m[2])
		if strings.EqualFold(tag, lang) {
			if body == "" {
				return "", fmt.Errorf("%w: empty %s block", ErrNoCodeBlock, lang)
			}
			return body, nil
		}
		if tag == "" && body != "" {
			untagged = append(untagged, body)
		}
	}
	if len(untagged) == 1 {
		return untagged[0], nil
	}
	return "", fmt.Errorf("%w: want %s", ErrNoCodeBlock, lang)
}
