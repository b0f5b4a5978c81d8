package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Component string

const (
	ComponentGlassFlow  Component = "GlassFlow"
	ComponentKafka      Component = "Kafka"
	ComponentClickhouse Component = "Clickhouse"
)

var (
	ErrNoStatusKind       = errors.New("at least one of success, failure or warning must be set")
	ErrMultipleStatusKind = errors.New("only one of success, failure or warning can be set")
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	// 256 colores: 208 naranja, 110 azul cielo
	orange  = color.New(color.Bold, color.Attribute(38), color.Attribute(5), color.Attribute(208))
	skyBlue = color.New(color.Bold, color.Attribute(38), color.Attribute(5), color.Attribute(110))
	bold    = color.New(color.Bold)
)

// Line es una línea de estado. Debe tener exactamente uno de Success, Failure o Warning.
type Line struct {
	Message   string
	Status    string
	Success   bool
	Failure   bool
	Warning   bool
	Component Component
}

type Console struct {
	out io.Writer
	in  *bufio.Reader
}

func New(out io.Writer, in io.Reader) *Console {
	return &Console{out: out, in: bufio.NewReader(in)}
}

func NewStd() *Console {
	return New(os.Stdout, os.Stdin)
}

// DisableColor apaga los colores, por ejemplo cuando la salida no es una terminal.
func DisableColor() {
	color.NoColor = true
}

func (c *Console) Log(line Line) error {
	icon, status, err := statusParts(line)
	if err != nil {
		return err
	}

	tag := componentTag(line.Component)

	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.Style().Options = table.OptionsNoBordersAndSeparators
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 2},
		{Number: 2, WidthMin: 12},
		{Number: 3, WidthMin: 70, WidthMax: 70},
		{Number: 4, WidthMax: 40},
	})
	t.AppendRow(table.Row{icon, tag, line.Message, status})
	t.Render()

	return nil
}

func statusParts(line Line) (icon string, status string, err error) {
	set := 0
	for _, b := range []bool{line.Success, line.Failure, line.Warning} {
		if b {
			set++
		}
	}

	switch {
	case set == 0:
		return "", "", ErrNoStatusKind
	case set > 1:
		return "", "", ErrMultipleStatusKind
	case line.Success:
		return green.Sprint("✔"), green.Sprint(line.Status), nil
	case line.Failure:
		return red.Sprint("✗"), red.Sprint(line.Status), nil
	default:
		return yellow.Sprint("⚠"), yellow.Sprint(line.Status), nil
	}
}

func componentTag(component Component) string {
	tag := "[" + string(component) + "]"
	switch component {
	case ComponentGlassFlow:
		return orange.Sprint(tag)
	case ComponentKafka:
		return skyBlue.Sprint(tag)
	case ComponentClickhouse:
		return color.New(color.Bold, color.FgYellow).Sprint(tag)
	}
	return bold.Sprint(tag)
}

func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

func (c *Console) Title(title string) {
	fmt.Fprintf(c.out, "\n=== %s ===\n", bold.Sprint(title))
}

func (c *Console) Highlight(format string, a ...any) {
	fmt.Fprintln(c.out, color.New(color.Bold, color.FgBlue).Sprintf(format, a...))
}

// KeyValues imprime una tabla de dos columnas sin encabezado.
func (c *Console) KeyValues(rows [][2]string) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.Style().Options = table.OptionsNoBordersAndSeparators
	for _, r := range rows {
		t.AppendRow(table.Row{r[0], yellow.Sprint(r[1])})
	}
	t.Render()
}

// PrintRecords imprime filas de ClickHouse con los nombres de columna como encabezado.
func (c *Console) PrintRecords(title string, columns []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		t.AppendRow(row)
	}

	t.Render()
}

// Spinner muestra un spinner con el mensaje hasta que se llame a stop.
func (c *Console) Spinner(message string) (stop func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.out))
	s.Suffix = " " + message
	s.Start()

	return s.Stop
}

// AskYesNo pregunta hasta obtener una respuesta. Con respuesta vacía usa defaultYes.
func (c *Console) AskYesNo(question string, defaultYes bool) (bool, error) {
	prompt := " [y/N] "
	if defaultYes {
		prompt = " [Y/n] "
	}

	for {
		fmt.Fprint(c.out, question+prompt)

		resp, err := c.in.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return false, fmt.Errorf("read answer: %w", err)
			}
			if resp == "" {
				return defaultYes, nil
			}
		}

		switch strings.ToLower(strings.TrimSpace(resp)) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}

		fmt.Fprintln(c.out, "Please respond with 'yes' or 'no' (or 'y' or 'n').")
	}
}

func (c *Console) WaitForEnter(message string) error {
	fmt.Fprint(c.out, message)
	if _, err := c.in.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func alignRight(n int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, n)
	for i := range cfgs {
		cfgs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignRight}
	}
	return cfgs
}
