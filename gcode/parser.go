package gcode

// Command is one parsed line of the host protocol: a classic
// letter+number G-code word (G1, M112) or a bare-word extension
// command (PING, VERSION, STATUS, WIND), plus its letter parameters.
type Command struct {
	Type       byte // 'G' or 'M', 0 for bare-word commands
	Number     int
	Word       string // set for bare-word commands
	Parameters map[byte]float64
	Comment    string
}

// HasParameter checks if a parameter exists in the command.
func (cmd *Command) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present.
func (cmd *Command) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}

// ParseLine parses a single command line. Returns nil for blank and
// comment-only lines.
func ParseLine(line string) (*Command, error) {
	if len(line) == 0 {
		return nil, nil
	}

	cmd := &Command{
		Parameters: make(map[byte]float64),
	}

	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}

	if i >= len(line) {
		return nil, nil
	}

	if line[i] == ';' || line[i] == '(' {
		return nil, nil
	}

	// A letter run longer than one character is a bare-word command.
	wordEnd := i
	for wordEnd < len(line) && isLetter(line[wordEnd]) {
		wordEnd++
	}

	switch {
	case wordEnd-i > 1:
		word := make([]byte, wordEnd-i)
		for j := i; j < wordEnd; j++ {
			word[j-i] = toUpper(line[j])
		}
		cmd.Word = string(word)
		i = wordEnd

	case line[i] == 'G' || line[i] == 'M' ||
		line[i] == 'g' || line[i] == 'm':
		cmd.Type = toUpper(line[i])
		i++

		num, newPos := parseInt(line, i)
		if newPos == i {
			return nil, ErrBadCommand
		}
		cmd.Number = num
		i = newPos

	default:
		return nil, ErrBadCommand
	}

	// Parse parameters
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}

		if i >= len(line) {
			break
		}

		if line[i] == ';' || line[i] == '(' {
			cmd.Comment = line[i:]
			break
		}

		if !isLetter(line[i]) {
			return nil, ErrBadCommand
		}
		letter := toUpper(line[i])
		i++

		value, newPos := parseFloat(line, i)
		if newPos == i {
			return nil, ErrBadCommand
		}
		cmd.Parameters[letter] = value
		i = newPos
	}

	return cmd, nil
}

// parseInt parses an integer from the string starting at pos.
func parseInt(s string, pos int) (int, int) {
	if pos >= len(s) {
		return 0, pos
	}

	start := pos
	negative := false
	if s[pos] == '-' {
		negative = true
		pos++
	} else if s[pos] == '+' {
		pos++
	}

	digitsStart := pos
	value := 0
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		value = value*10 + int(s[pos]-'0')
		pos++
	}

	if pos == digitsStart {
		return 0, start
	}

	if negative {
		value = -value
	}
	return value, pos
}

// parseFloat parses a floating-point number from the string starting at pos.
func parseFloat(s string, pos int) (float64, int) {
	if pos >= len(s) {
		return 0, pos
	}

	start := pos
	negative := false
	if s[pos] == '-' {
		negative = true
		pos++
	} else if s[pos] == '+' {
		pos++
	}

	digitsStart := pos
	intPart := 0
	fracPart := 0.0
	fracDigits := 0

	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		intPart = intPart*10 + int(s[pos]-'0')
		pos++
	}

	if pos < len(s) && s[pos] == '.' {
		pos++
		fracStart := pos
		for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
			fracPart = fracPart*10.0 + float64(s[pos]-'0')
			pos++
		}
		fracDigits = pos - fracStart
	}

	if pos == digitsStart || (pos == digitsStart+1 && s[digitsStart] == '.') {
		return 0, start
	}

	value := float64(intPart)
	if fracDigits > 0 {
		divisor := 1.0
		for i := 0; i < fracDigits; i++ {
			divisor *= 10.0
		}
		value += fracPart / divisor
	}

	if negative {
		value = -value
	}
	return value, pos
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
