package core

// Palette lists the colour tags handed out to connections, as hex RGB.
var Palette = []string{
	"FF0000",
	"0000FF",
	"00AA00",
	"FF8800",
	"AA00AA",
	"008888",
	"CC0066",
	"6600CC",
}

// DefaultColor is reported for clients without an assignment.
const DefaultColor = "0000FF"
