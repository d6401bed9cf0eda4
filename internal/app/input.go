package app

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// Input is a single-line edit buffer. The cursor is a byte offset that
// always sits on a rune boundary.
type Input struct {
	text   string
	cursor int
}

func (in *Input) Text() string { return in.text }
func (in *Input) Cursor() int  { return in.cursor }
func (in *Input) Len() int     { return len(in.text) }

// Column is the display width of the text left of the cursor.
func (in *Input) Column() int { return runewidth.StringWidth(in.text[:in.cursor]) }

// Insert puts r at the cursor. Invalid runes are ignored.
func (in *Input) Insert(r rune) {
	if !utf8.ValidRune(r) {
		return
	}
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	in.text = in.text[:in.cursor] + string(buf[:n]) + in.text[in.cursor:]
	in.cursor += n
}

// DeleteBack removes the rune before the cursor.
func (in *Input) DeleteBack() {
	if in.cursor == 0 {
		return
	}
	_, size := utf8.DecodeLastRuneInString(in.text[:in.cursor])
	in.text = in.text[:in.cursor-size] + in.text[in.cursor:]
	in.cursor -= size
}

// DeleteForward removes the rune under the cursor.
func (in *Input) DeleteForward() {
	if in.cursor >= len(in.text) {
		return
	}
	_, size := utf8.DecodeRuneInString(in.text[in.cursor:])
	in.text = in.text[:in.cursor] + in.text[in.cursor+size:]
}

func (in *Input) Left() {
	if in.cursor == 0 {
		return
	}
	_, size := utf8.DecodeLastRuneInString(in.text[:in.cursor])
	in.cursor -= size
}

func (in *Input) Right() {
	if in.cursor >= len(in.text) {
		return
	}
	_, size := utf8.DecodeRuneInString(in.text[in.cursor:])
	in.cursor += size
}

func (in *Input) Home() { in.cursor = 0 }
func (in *Input) End()  { in.cursor = len(in.text) }

// Set replaces the text and moves the cursor to the end.
func (in *Input) Set(s string) {
	in.text = s
	in.cursor = len(s)
}

func (in *Input) Clear() { in.Set("") }
