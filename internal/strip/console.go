package strip

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Console рисует кольцо строкой цветных точек в терминале (разработка без ленты).
type Console struct {
	*Buffer
	w   io.Writer
	sb  strings.Builder
	dot string
}

// NewConsole создаёт Sink на n светодиодов, пишущий в w.
func NewConsole(w io.Writer, n int) *Console {
	return &Console{Buffer: NewBuffer(n), w: w, dot: "●"}
}

// Flush перерисовывает строку поверх предыдущей.
func (c *Console) Flush() error {
	c.sb.Reset()
	c.sb.WriteString("\r")
	for _, p := range c.pix {
		color := lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", p.R, p.G, p.B))
		c.sb.WriteString(lipgloss.NewStyle().Foreground(color).Render(c.dot))
	}
	_, err := io.WriteString(c.w, c.sb.String())
	return err
}

// Close завершает строку.
func (c *Console) Close() error {
	_, err := io.WriteString(c.w, "\n")
	return err
}
