package term

import (
	"strconv"

	tea "charm.land/bubbletea/v2"
)

// DetachKey is the chord that leaves typing mode. It is never forwarded to
// the program running in a pane.
const DetachKey = "ctrl+]"

// IsDetachKey reports whether ev is the typing-mode exit chord.
func IsDetachKey(ev tea.KeyPressMsg) bool {
	return ev.String() == DetachKey
}

// Final bytes of the CSI sequences for cursor keys.
var cursorFinal = map[rune]byte{
	tea.KeyUp:    'A',
	tea.KeyDown:  'B',
	tea.KeyRight: 'C',
	tea.KeyLeft:  'D',
	tea.KeyHome:  'H',
	tea.KeyEnd:   'F',
}

// Parameters of the "CSI n ~" editing keys.
var tildeParam = map[rune]int{
	tea.KeyInsert: 2,
	tea.KeyDelete: 3,
	tea.KeyPgUp:   5,
	tea.KeyPgDown: 6,
}

var functionSeq = map[rune]string{
	tea.KeyF1:  "\x1bOP",
	tea.KeyF2:  "\x1bOQ",
	tea.KeyF3:  "\x1bOR",
	tea.KeyF4:  "\x1bOS",
	tea.KeyF5:  "\x1b[15~",
	tea.KeyF6:  "\x1b[17~",
	tea.KeyF7:  "\x1b[18~",
	tea.KeyF8:  "\x1b[19~",
	tea.KeyF9:  "\x1b[20~",
	tea.KeyF10: "\x1b[21~",
	tea.KeyF11: "\x1b[23~",
	tea.KeyF12: "\x1b[24~",
}

// EncodeKeyPress turns a key press from the presenter's terminal into the
// bytes an xterm would send to the program in a pane. It returns nil for
// the detach chord and for keys a pane has no encoding for.
func EncodeKeyPress(ev tea.KeyPressMsg) []byte {
	if IsDetachKey(ev) {
		return nil
	}
	k := ev.Key()
	alt := k.Mod&tea.ModAlt != 0

	if k.Text != "" {
		return metaPrefix([]byte(k.Text), alt)
	}

	switch k.Code {
	case tea.KeyEscape:
		return []byte{0x1b}
	case tea.KeyEnter:
		return metaPrefix([]byte{'\r'}, alt)
	case tea.KeyBackspace:
		return metaPrefix([]byte{0x7f}, alt)
	case tea.KeyTab:
		if k.Mod&tea.ModShift != 0 {
			return []byte("\x1b[Z")
		}
		return metaPrefix([]byte{'\t'}, alt)
	}

	if final, ok := cursorFinal[k.Code]; ok {
		if mod := modifierParam(k.Mod); mod > 1 {
			return []byte("\x1b[1;" + strconv.Itoa(mod) + string(final))
		}
		return []byte{0x1b, '[', final}
	}
	if n, ok := tildeParam[k.Code]; ok {
		seq := "\x1b[" + strconv.Itoa(n)
		if mod := modifierParam(k.Mod); mod > 1 {
			seq += ";" + strconv.Itoa(mod)
		}
		return []byte(seq + "~")
	}
	if seq, ok := functionSeq[k.Code]; ok {
		return []byte(seq)
	}

	if k.Mod&tea.ModCtrl != 0 {
		if c, ok := controlByte(k.Code); ok {
			return metaPrefix([]byte{c}, alt)
		}
	}
	return nil
}

func metaPrefix(b []byte, alt bool) []byte {
	if !alt {
		return b
	}
	return append([]byte{0x1b}, b...)
}

// modifierParam is the xterm modifier parameter: 1 plus shift(1), alt(2)
// and ctrl(4).
func modifierParam(m tea.KeyMod) int {
	p := 1
	if m&tea.ModShift != 0 {
		p++
	}
	if m&tea.ModAlt != 0 {
		p += 2
	}
	if m&tea.ModCtrl != 0 {
		p += 4
	}
	return p
}

// controlByte maps ctrl+<key> to its C0 code. Letters are case-insensitive;
// '@' through '_' map onto 0x00-0x1f and '?' is DEL.
func controlByte(r rune) (byte, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(r-'a') + 1, true
	case r >= '@' && r <= '_':
		return byte(r) & 0x1f, true
	case r == ' ':
		return 0, true
	case r == '?':
		return 0x7f, true
	}
	return 0, false
}
