// Package cli provides an interactive shell over an RTree.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/peterstace/spatialjoin/internal/dataset"
	"github.com/peterstace/spatialjoin/internal/join"
	"github.com/peterstace/spatialjoin/rtree"
)

type Cli struct {
	scanner *bufio.Scanner
	out     io.Writer
	tree    *rtree.RTree
	src     rand.Source

	// towers and cities are kept from the last LOAD for JOIN.
	towers, cities []rtree.Circle

	ok, fail, info *color.Color
}

func NewCli(s *bufio.Scanner, out io.Writer, t *rtree.RTree, src rand.Source) *Cli {
	return &Cli{
		scanner: s,
		out:     out,
		tree:    t,
		src:     src,
		ok:      color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		info:    color.New(color.FgCyan),
	}
}

// Start reads commands until EXIT or the end of the input.
func (c *Cli) Start() {
	c.printHelp()
	c.printPrompt()
	for c.scanner.Scan() {
		if !c.processInput(c.scanner.Text()) {
			return
		}
		c.printPrompt()
	}
}

func (c *Cli) printHelp() {
	fmt.Fprintln(c.out, `
R-Tree CLI

Available Commands:
  LOAD <dir> [limit]       Bulk load the tower and city CSV files in dir
  GEN <n>                  Bulk load n synthetic circles
  INSERT <x> <y> <r>       Insert a circle
  DEL <x> <y> <r>          Remove a circle
  QUERY <x1> <y1> <x2> <y2> List circles intersecting a box
  JOIN                     Join the loaded towers against the loaded cities
  SIZE                     Show the number of circles and the tree height
  LEAVES                   List the leaf boxes
  CHECK                    Verify the tree structure
  EXIT                     Terminate this session`)
}

func (c *Cli) printPrompt() {
	fmt.Fprint(c.out, "> ")
}

// processInput runs a single command. It returns false when the session
// should end.
func (c *Cli) processInput(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return true
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]
	switch command {
	default:
		c.fail.Fprintf(c.out, "Unknown command \"%s\"\n", command)
	case "help":
		c.printHelp()
	case "load":
		c.processLoadCommand(args)
	case "gen":
		c.processGenCommand(args)
	case "insert":
		c.processInsertCommand(args)
	case "del":
		c.processDeleteCommand(args)
	case "query":
		c.processQueryCommand(args)
	case "join":
		c.processJoinCommand()
	case "size":
		fmt.Fprintf(c.out, "%d circles, height %d\n", c.tree.Len(), c.tree.Height())
	case "leaves":
		c.processLeavesCommand()
	case "check":
		if err := c.tree.Check(); err != nil {
			c.fail.Fprintln(c.out, err)
		} else {
			c.ok.Fprintln(c.out, "OK")
		}
	case "exit":
		return false
	}
	return true
}

func (c *Cli) processLoadCommand(args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(c.out, "Usage: LOAD <dir> [limit]")
		return
	}
	var limit int
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(c.out, "Usage: LOAD <dir> [limit]")
			return
		}
		limit = n
	}
	towers, cities, err := dataset.LoadBoth(args[0], limit, c.src)
	if err != nil {
		c.fail.Fprintln(c.out, err)
		return
	}
	all := append(append([]rtree.Circle(nil), towers...), cities...)
	if err := c.tree.BulkLoad(all); err != nil {
		c.fail.Fprintln(c.out, err)
		return
	}
	c.towers, c.cities = towers, cities
	c.ok.Fprintf(c.out, "Loaded %d towers and %d cities\n", len(towers), len(cities))
}

func (c *Cli) processGenCommand(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: GEN <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		fmt.Fprintln(c.out, "Usage: GEN <n>")
		return
	}
	if err := c.tree.BulkLoad(dataset.Synthetic(n, c.src)); err != nil {
		c.fail.Fprintln(c.out, err)
		return
	}
	c.ok.Fprintf(c.out, "Generated %d circles\n", n)
}

func (c *Cli) processInsertCommand(args []string) {
	circle, err := parseCircle(args)
	if err != nil {
		fmt.Fprintln(c.out, "Usage: INSERT <x> <y> <r>")
		return
	}
	if err := c.tree.Insert(circle); err != nil {
		c.fail.Fprintln(c.out, err)
		return
	}
	c.ok.Fprintf(c.out, "Inserted %v\n", circle)
}

func (c *Cli) processDeleteCommand(args []string) {
	circle, err := parseCircle(args)
	if err != nil {
		fmt.Fprintln(c.out, "Usage: DEL <x> <y> <r>")
		return
	}
	if !c.tree.Delete(circle) {
		fmt.Fprintln(c.out, "Circle not found.")
		return
	}
	c.ok.Fprintf(c.out, "Deleted %v\n", circle)
}

func (c *Cli) processQueryCommand(args []string) {
	vals, err := parseFloats(args, 4)
	if err != nil {
		fmt.Fprintln(c.out, "Usage: QUERY <x1> <y1> <x2> <y2>")
		return
	}
	bb := rtree.BBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}
	if err := bb.Validate(); err != nil {
		c.fail.Fprintln(c.out, err)
		return
	}
	found := c.tree.RangeQuery(bb)
	for _, f := range found {
		fmt.Fprintf(c.out, "  (%g, %g) r=%g\n", f.X, f.Y, f.Radius)
	}
	c.info.Fprintf(c.out, "%d found\n", len(found))
}

func (c *Cli) processJoinCommand() {
	pairs, err := join.NestedLoop(c.towers, c.cities)
	if err != nil {
		c.fail.Fprintln(c.out, err)
		return
	}
	c.info.Fprintf(c.out, "%d tower/city pairs\n", len(pairs))
}

func (c *Cli) processLeavesCommand() {
	var n int
	c.tree.Leaves(func(s rtree.LeafSummary) {
		n++
		fmt.Fprintf(c.out, "  [%g %g %g %g] %d\n", s.BBox.MinX, s.BBox.MinY, s.BBox.MaxX, s.BBox.MaxY, s.Count)
	})
	c.info.Fprintf(c.out, "%d leaves\n", n)
}

func parseCircle(args []string) (rtree.Circle, error) {
	vals, err := parseFloats(args, 3)
	if err != nil {
		return rtree.Circle{}, err
	}
	return rtree.Circle{X: vals[0], Y: vals[1], Radius: vals[2]}, nil
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	vals := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
