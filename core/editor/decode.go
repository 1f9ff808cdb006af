package editor

import (
	"bufio"
	"context"
	"io"
	"unicode"
	"unicode/utf8"
)

// KeyKind identifies an editing action.
type KeyKind int

const (
	KeyRune KeyKind = iota
	// KeyText inserts Text atomically, e.g. a paste.
	KeyText
	KeyCompositionStart
	// KeyCompositionEnd commits the composed Text.
	KeyCompositionEnd
	KeyEnter
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyWordLeft
	KeyWordRight
	KeyKillEnd
	KeyKillStart
	KeyKillWordBack
	KeyTab
	KeyInterrupt
	KeyClear
	KeyEOF
)

// Key is a single keystroke or input event.
type Key struct {
	Kind KeyKind
	Rune rune
	Text string
}

// RuneKey creates a printable key.
func RuneKey(r rune) Key {
	return Key{Kind: KeyRune, Rune: r}
}

// TextKeys creates a key per rune of s.
func TextKeys(s string) []Key {
	var out []Key
	for _, r := range s {
		out = append(out, RuneKey(r))
	}
	return out
}

// Decode reads a VT100/xterm byte stream and emits keys until the reader
// fails or ctx is done. The channel is closed on return.
func Decode(ctx context.Context, r io.Reader, out chan<- Key) {
	defer close(out)
	d := &decoder{br: bufio.NewReader(r), out: out, ctx: ctx}
	d.run()
}

type decoder struct {
	br  *bufio.Reader
	out chan<- Key
	ctx context.Context
}

func (d *decoder) emit(k Key) bool {
	select {
	case d.out <- k:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *decoder) run() {
	lastWasCR := false
	for {
		b, err := d.br.ReadByte()
		if err != nil {
			return
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}

		var k Key
		switch b {
		case 0x1b:
			var ok bool
			if k, ok = d.escape(); !ok {
				continue
			}
		case '\r', '\n':
			k = Key{Kind: KeyEnter}
			lastWasCR = b == '\r'
		case 0x7f, 0x08:
			k = Key{Kind: KeyBackspace}
		case 0x01:
			k = Key{Kind: KeyHome}
		case 0x05:
			k = Key{Kind: KeyEnd}
		case 0x02:
			k = Key{Kind: KeyLeft}
		case 0x06:
			k = Key{Kind: KeyRight}
		case 0x10:
			k = Key{Kind: KeyUp}
		case 0x0e:
			k = Key{Kind: KeyDown}
		case 0x15:
			k = Key{Kind: KeyKillStart}
		case 0x0b:
			k = Key{Kind: KeyKillEnd}
		case 0x17:
			k = Key{Kind: KeyKillWordBack}
		case 0x04:
			k = Key{Kind: KeyEOF}
		case 0x03:
			k = Key{Kind: KeyInterrupt}
		case 0x0c:
			k = Key{Kind: KeyClear}
		case 0x09:
			k = Key{Kind: KeyTab}
		default:
			if b < utf8.RuneSelf {
				if b < 0x20 {
					continue
				}
				k = RuneKey(rune(b))
				break
			}
			_ = d.br.UnreadByte()
			rn, _, err := d.br.ReadRune()
			if err != nil {
				return
			}
			k = RuneKey(rn)
		}

		if !d.emit(k) {
			return
		}
	}
}

func (d *decoder) escape() (Key, bool) {
	b, err := d.br.ReadByte()
	if err != nil {
		return Key{}, false
	}
	switch b {
	case '[':
		return d.csi()
	case 'O':
		return d.ss3()
	case 'b', 'B':
		return Key{Kind: KeyWordLeft}, true
	case 'f', 'F':
		return Key{Kind: KeyWordRight}, true
	case 'd', 'D':
		return Key{Kind: KeyKillEnd}, true
	case 0x7f:
		return Key{Kind: KeyKillWordBack}, true
	}
	return Key{}, false
}

func (d *decoder) csi() (Key, bool) {
	var seq []byte
	for {
		b, err := d.br.ReadByte()
		if err != nil {
			return Key{}, false
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return Key{}, false
		}
	}

	switch string(seq) {
	case "A":
		return Key{Kind: KeyUp}, true
	case "B":
		return Key{Kind: KeyDown}, true
	case "C":
		return Key{Kind: KeyRight}, true
	case "D":
		return Key{Kind: KeyLeft}, true
	case "H", "1~", "7~":
		return Key{Kind: KeyHome}, true
	case "F", "4~", "8~":
		return Key{Kind: KeyEnd}, true
	case "3~":
		return Key{Kind: KeyDelete}, true
	case "1;5C", "1;3C":
		return Key{Kind: KeyWordRight}, true
	case "1;5D", "1;3D":
		return Key{Kind: KeyWordLeft}, true
	}
	return Key{}, false
}

func (d *decoder) ss3() (Key, bool) {
	b, err := d.br.ReadByte()
	if err != nil {
		return Key{}, false
	}
	switch b {
	case 'A':
		return Key{Kind: KeyUp}, true
	case 'B':
		return Key{Kind: KeyDown}, true
	case 'C':
		return Key{Kind: KeyRight}, true
	case 'D':
		return Key{Kind: KeyLeft}, true
	case 'H':
		return Key{Kind: KeyHome}, true
	case 'F':
		return Key{Kind: KeyEnd}, true
	}
	return Key{}, false
}
