package subst

// scanState is the state of the placeholder scanner.
type scanState int

const (
	stateIdle scanState = iota
	stateInToken
)

// Unmatched scans template for {key} tokens and returns, in the order found,
// every key that row does not define. A '{' always starts a fresh token
// (discarding any partial one), a space cancels the current token, and '}'
// closes it. A token left open at the end of the template is ignored.
//
// Keys are reported once per occurrence; callers that want one warning per key
// deduplicate.
func Unmatched(template string, row Row) []string {
	var (
		missing []string
		state   = stateIdle
		buf     []rune
	)

	for _, c := range template {
		switch state {
		case stateIdle:
			if c == '{' {
				state = stateInToken
				buf = buf[:0]
			}
		case stateInToken:
			switch c {
			case '{':
				buf = buf[:0]
			case ' ':
				state = stateIdle
			case '}':
				if key := string(buf); !row.Has(key) {
					missing = append(missing, key)
				}
				state = stateIdle
			default:
				buf = append(buf, c)
			}
		}
	}

	return missing
}
