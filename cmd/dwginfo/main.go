// dwginfo exercises the raw query surface of the dwg package against one
// drawing file: version, total entity count, section locators, the typed
// per-entity tuple projections, layer colors, and any diagnostics.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rkm/dwg/dwg"
)

func main() {
	limit := flag.Int("limit", 0, "cap the number of records printed per section (0 = unlimited)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: dwginfo [-limit N] <file.dwg>")
		os.Exit(1)
	}
	filename := flag.Arg(0)

	fmt.Printf("=== Analyzing %s ===\n\n", filename)

	c, err := dwg.Open(filename)
	if err != nil {
		fmt.Printf("ERROR: failed to open file: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	fmt.Printf("Version: %s\n", c.Version())
	fmt.Printf("Total entities: %d\n\n", c.TotalEntities())

	fmt.Println("Sections:")
	for _, s := range c.SectionLocators(*limit) {
		fmt.Printf("  %-20s offset=%d size=%d\n", s.Name, s.Offset, s.Size)
	}
	fmt.Println()

	fmt.Println("Lines:")
	for _, l := range c.Lines(*limit) {
		fmt.Printf("  0x%X: (%g,%g,%g) -> (%g,%g,%g)\n", l.Handle, l.SX, l.SY, l.SZ, l.EX, l.EY, l.EZ)
	}
	fmt.Println()

	fmt.Println("Circles:")
	for _, ci := range c.Circles(*limit) {
		fmt.Printf("  0x%X: center=(%g,%g,%g) r=%g\n", ci.Handle, ci.CX, ci.CY, ci.CZ, ci.R)
	}
	fmt.Println()

	fmt.Println("Arcs:")
	for _, a := range c.Arcs(*limit) {
		fmt.Printf("  0x%X: center=(%g,%g,%g) r=%g start=%g end=%g\n", a.Handle, a.CX, a.CY, a.CZ, a.R, a.StartRad, a.EndRad)
	}
	fmt.Println()

	fmt.Println("Points:")
	for _, p := range c.Points(*limit) {
		fmt.Printf("  0x%X: (%g,%g,%g)\n", p.Handle, p.X, p.Y, p.Z)
	}
	fmt.Println()

	fmt.Println("LWPolylines:")
	for _, p := range c.LWPolylines(*limit) {
		fmt.Printf("  0x%X: closed=%v points=%d\n", p.Handle, p.Closed, len(p.Points))
	}
	fmt.Println()

	fmt.Println("Inserts:")
	for _, ins := range c.Inserts(*limit) {
		fmt.Printf("  0x%X: block=0x%X at (%g,%g,%g) rot=%g\n", ins.Handle, ins.BlockHandle, ins.X, ins.Y, ins.Z, ins.Rotation)
	}
	fmt.Println()

	fmt.Println("Layer colors:")
	for _, lc := range c.LayerColors(*limit) {
		fmt.Printf("  0x%X: color-index=%d\n", lc.Handle, lc.ColorIndex)
	}
	fmt.Println()

	diags := c.Diagnostics()
	if len(diags) > 0 {
		fmt.Printf("Diagnostics (%d):\n", len(diags))
		for _, d := range diags {
			fmt.Printf("  handle=0x%X offset=%d type=0x%X: %s\n", d.Handle, d.Offset, d.TypeCode, d.Reason)
		}
	}
}
