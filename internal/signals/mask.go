package signals

// syntax is the result of one pass over a source file.
type syntax struct {
	masked []byte
	jsx    bool
	parsed bool
}

// maskCommentsText blanks line and block comments while leaving string,
// template and regex-free code intact. Newlines inside comments are kept so
// byte offsets and line numbers stay valid.
func maskCommentsText(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	const (
		code = iota
		lineComment
		blockComment
		single
		double
		template
	)

	state := code
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch state {
		case code:
			switch {
			case c == '/' && i+1 < len(out) && out[i+1] == '/':
				state = lineComment
				out[i], out[i+1] = ' ', ' '
				i++
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				state = blockComment
				out[i], out[i+1] = ' ', ' '
				i++
			case c == '\'':
				state = single
			case c == '"':
				state = double
			case c == '`':
				state = template
			}
		case lineComment:
			if c == '\n' {
				state = code
			} else {
				out[i] = ' '
			}
		case blockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				state = code
			} else if c != '\n' {
				out[i] = ' '
			}
		case single, double, template:
			if c == '\\' {
				i++
				continue
			}
			if (state == single && c == '\'') || (state == double && c == '"') || (state == template && c == '`') {
				state = code
			}
			if c == '\n' && state != template {
				state = code
			}
		}
	}
	return out
}

// blank replaces src[start:end] with spaces, keeping newlines.
func blank(buf []byte, start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(buf) {
		end = len(buf)
	}
	for i := start; i < end; i++ {
		if buf[i] != '\n' && buf[i] != '\r' {
			buf[i] = ' '
		}
	}
}
