package screen

import (
	"sync"
)

// Surface is the display the buffer is rendered to. Every frame receives
// exactly rows lines of exactly cols cells each.
type Surface interface {
	SetGrid(rows, cols int)
	Render(rows []Line) error
}

// Buffer is a rows x cols grid of styled lines with a write cursor.
//
// Every row is always exactly cols cells wide.
type Buffer struct {
	mu sync.Mutex

	rows    []Line
	cols    int
	cursorX int
	cursorY int

	// scrolls counts how many rows have been discarded off the top.
	scrolls int
}

// NewBuffer creates a blank buffer.
func NewBuffer(rows, cols int) *Buffer {
	b := &Buffer{}
	b.reset(rows, cols)
	return b
}

func (b *Buffer) reset(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	b.cols = cols
	b.rows = make([]Line, rows)
	for i := range b.rows {
		b.rows[i] = Blank(cols)
	}
	b.cursorX, b.cursorY = 0, 0
}

// Size returns the grid dimensions.
func (b *Buffer) Size() (rows, cols int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows), b.cols
}

// Cursor returns the write position.
func (b *Buffer) Cursor() (x, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursorX, b.cursorY
}

// Scrolls returns the number of rows scrolled off the top so far.
func (b *Buffer) Scrolls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scrolls
}

// Rows returns a snapshot of the grid.
func (b *Buffer) Rows() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Line, len(b.rows))
	copy(out, b.rows)
	return out
}

// Text returns the plain text of each row.
func (b *Buffer) Text() []string {
	rows := b.Rows()
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.String()
	}
	return out
}

// Clear blanks the grid and homes the cursor.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset(len(b.rows), b.cols)
}

// Resize changes the grid dimensions, clearing its contents.
func (b *Buffer) Resize(rows, cols int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset(rows, cols)
}

// Write appends line at the cursor, wrapping onto following rows when it
// doesn't fit. It never emits a trailing newline.
func (b *Buffer) Write(line Line) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.write(line)
}

// WriteLine writes line and moves to the start of the next row.
func (b *Buffer) WriteLine(line Line) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, part := range line.SplitLines() {
		if i > 0 {
			b.newline()
		}
		b.write(part)
	}
	b.newline()
}

// WriteMarkup parses markup and writes it as a line.
func (b *Buffer) WriteMarkup(markup string) {
	b.WriteLine(ParseMarkup(markup))
}

// Newline moves the cursor to the start of the next row, scrolling if the
// cursor is on the last row.
func (b *Buffer) Newline() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.newline()
}

// OverwriteAt replaces the cells starting at col of row with fragment. The
// row is re-padded and truncated to exactly cols cells. Applying the same
// overwrite twice yields the same row as applying it once.
func (b *Buffer) OverwriteAt(row, col int, fragment Line) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overwriteAt(row, col, fragment)
}

// Reserve scrolls the grid so line written at the cursor, plus one cell for
// the cursor itself, fits on screen without further scrolling. It returns the
// number of rows the line occupies.
func (b *Buffer) Reserve(line Line) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	needed := b.rowsNeeded(b.cursorX, line.Sanitize(b.cols))
	if needed > len(b.rows) {
		needed = len(b.rows)
	}
	for b.cursorY+needed > len(b.rows) {
		b.scroll()
		b.cursorY--
	}
	return needed
}

// Compose renders a frame. If overlay is non-nil it is written over a copy of
// the grid starting at the cursor, the way the live input line is shown
// without committing it to the buffer.
func (b *Buffer) Compose(overlay Line) []Line {
	b.mu.Lock()
	frame := &Buffer{
		rows:    make([]Line, len(b.rows)),
		cols:    b.cols,
		cursorX: b.cursorX,
		cursorY: b.cursorY,
	}
	copy(frame.rows, b.rows)
	b.mu.Unlock()

	if overlay != nil {
		frame.write(overlay)
	}
	return frame.rows
}

// Render composes a frame and sends it to the surface.
func (b *Buffer) Render(surface Surface, overlay Line) error {
	return surface.Render(b.Compose(overlay))
}

func (b *Buffer) write(line Line) {
	line = line.Sanitize(b.cols)
	for line.Width() > 0 {
		width := line.Width()
		if b.cursorX+width <= b.cols {
			b.overwriteAt(b.cursorY, b.cursorX, line)
			b.cursorX += width
			return
		}

		space := b.cols - b.cursorX
		head, tail := line.SplitAt(space)
		if space <= 0 || head.Width() == 0 {
			b.newline()
			continue
		}
		b.overwriteAt(b.cursorY, b.cursorX, head)
		b.newline()
		line = tail
	}
}

// rowsNeeded simulates write from column x and counts the rows touched,
// including the cell the cursor ends on.
func (b *Buffer) rowsNeeded(x int, line Line) int {
	rows := 1
	for line.Width() > 0 {
		width := line.Width()
		if x+width <= b.cols {
			x += width
			break
		}
		space := b.cols - x
		head, tail := line.SplitAt(space)
		rows++
		x = 0
		if space <= 0 || head.Width() == 0 {
			continue
		}
		line = tail
	}
	if x >= b.cols {
		rows++
	}
	return rows
}

func (b *Buffer) newline() {
	b.cursorY++
	b.cursorX = 0
	if b.cursorY >= len(b.rows) {
		b.scroll()
		b.cursorY = len(b.rows) - 1
	}
}

func (b *Buffer) scroll() {
	copy(b.rows, b.rows[1:])
	b.rows[len(b.rows)-1] = Blank(b.cols)
	b.scrolls++
}

func (b *Buffer) overwriteAt(row, col int, fragment Line) {
	if row < 0 || row >= len(b.rows) {
		return
	}
	if col < 0 {
		col = 0
	}

	current := b.rows[row]
	next := current.Slice(0, col).Pad(col).
		Append(fragment, current.Slice(col+fragment.Width(), b.cols))
	b.rows[row] = next.Fit(b.cols)
}
