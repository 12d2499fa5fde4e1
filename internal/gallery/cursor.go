package gallery

// Cursor is the lightbox position over a gallery of n images. Moves wrap
// around in both directions.
type Cursor struct {
	index int
	n     int
}

func NewCursor(n int) *Cursor {
	if n < 0 {
		n = 0
	}
	return &Cursor{n: n}
}

func (c *Cursor) Index() int { return c.index }

func (c *Cursor) Len() int { return c.n }

// Select jumps to i, wrapped into range.
func (c *Cursor) Select(i int) int {
	c.index = c.wrap(i)
	return c.index
}

// Step moves by delta positions.
func (c *Cursor) Step(delta int) int {
	return c.Select(c.index + delta)
}

func (c *Cursor) Next() int { return c.Step(1) }

func (c *Cursor) Prev() int { return c.Step(-1) }

func (c *Cursor) wrap(i int) int {
	if c.n == 0 {
		return 0
	}
	i %= c.n
	if i < 0 {
		i += c.n
	}
	return i
}
