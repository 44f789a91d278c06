package mapview

const (
	SelectedColor = "red"
)

var (
	palette = []string{
		"#e6194B", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4",
		"#46f0f0", "#f032e6", "#bcf60c", "#fabebe", "#008080", "#e6beff",
		"#9A6324", "#fffac8", "#800000", "#aaffc3", "#808000", "#ffd8b1",
		"#000075", "#808080",
	}
)

// Colors hands out palette colours to airlines in first-seen order,
// wrapping around once the palette is exhausted.
type Colors struct {
	assigned map[string]string
}

func NewColors() *Colors {
	return &Colors{assigned: make(map[string]string)}
}

func (c *Colors) Color(airline string) string {
	if color, found := c.assigned[airline]; found {
		return color
	}
	color := palette[len(c.assigned)%len(palette)]
	c.assigned[airline] = color
	return color
}
