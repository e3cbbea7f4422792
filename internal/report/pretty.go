package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// PrettyOpts controls text rendering.
type PrettyOpts struct {
	Color bool
	// Summary prints only the header line of each type.
	Summary bool
}

type palette struct {
	name   *color.Color
	dim    *color.Color
	err    *color.Color
	accent *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		name:   color.New(color.FgCyan, color.Bold),
		dim:    color.New(color.Faint),
		err:    color.New(color.FgRed, color.Bold),
		accent: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.name, p.dim, p.err, p.accent} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// WritePretty renders r as human-readable tables.
func WritePretty(w io.Writer, r *Report, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	var b strings.Builder
	if r.Source != "" {
		fmt.Fprintf(&b, "%s %s\n", p.dim.Sprint("source:"), r.Source)
	}
	fmt.Fprintf(&b, "%s %s (pointer %d, discriminant %d)\n\n", p.dim.Sprint("profile:"), r.Profile.Name, r.Profile.PointerWidth, r.Profile.DefaultDiscriminantWidth)

	for i := range r.Types {
		writeType(&b, p, &r.Types[i], opts)
	}
	if r.Errors > 0 {
		fmt.Fprintf(&b, "%s\n", p.err.Sprintf("%d type(s) failed", r.Errors))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeType(b *strings.Builder, p palette, t *Type, opts PrettyOpts) {
	header := p.name.Sprint(t.Name)
	if t.Label != "" && t.Label != t.Name {
		header += " " + p.dim.Sprint("= "+t.Label)
	}
	fmt.Fprintf(b, "%s  %s  %s\n", header, t.Kind, p.dim.Sprint(t.Policy))
	if t.Error != "" {
		fmt.Fprintf(b, "  %s %s\n\n", p.err.Sprint("error:"), t.Error)
		return
	}
	line := fmt.Sprintf("  size %d  align %d", t.Size, t.Align)
	if t.Padding > 0 {
		line += fmt.Sprintf("  padding %d", t.Padding)
	}
	if t.Packed {
		line += "  packed"
	}
	if t.Uninhabited {
		line += "  uninhabited"
	}
	b.WriteString(line + "\n")
	if opts.Summary {
		b.WriteString("\n")
		return
	}

	if len(t.Members) > 0 {
		nameWidth := 6
		for _, m := range t.Members {
			nameWidth = max(nameWidth, runewidth.StringWidth(m.Name))
		}
		fmt.Fprintf(b, "  %s\n", p.dim.Sprintf("%6s %5s %5s  %s  %s", "offset", "size", "align", runewidth.FillRight("member", nameWidth), "type"))
		order := t.Order
		if len(order) != len(t.Members) {
			order = make([]int, len(t.Members))
			for i := range order {
				order[i] = i
			}
		}
		for _, idx := range order {
			m := t.Members[idx]
			fmt.Fprintf(b, "  %6d %5d %5d  %s  %s\n", m.Offset, m.Size, m.Align, runewidth.FillRight(m.Name, nameWidth), m.Type)
		}
	}

	if t.Encoding != "" {
		tag := t.Encoding
		if t.Discriminant != nil {
			tag += fmt.Sprintf(" u%d @%d", 8*t.Discriminant.Width, t.Discriminant.Offset)
		}
		fmt.Fprintf(b, "  %s %s\n", p.dim.Sprint("tag:"), tag)
		nameWidth := 4
		for _, v := range t.Variants {
			nameWidth = max(nameWidth, runewidth.StringWidth(v.Name))
		}
		for _, v := range t.Variants {
			value := p.dim.Sprint("(dataful)")
			if v.Tagged {
				value = p.accent.Sprintf("= %d", v.Value)
			}
			payload := ""
			if v.Payload != "" {
				payload = "(" + v.Payload + ")"
				if t.Discriminant != nil {
					payload += fmt.Sprintf(" @%d", v.PayloadOffset)
				}
			}
			fmt.Fprintf(b, "    %s %s %s\n", runewidth.FillRight(v.Name, nameWidth), value, payload)
		}
	}

	if t.Niche != nil {
		n := t.Niche
		fmt.Fprintf(b, "  %s u%d @%d valid %d..=%d, %d free\n", p.dim.Sprint("niche:"), 8*n.Width, n.Offset, n.Start, n.End, n.Available)
	}
	b.WriteString("\n")
}

// WriteProfiles renders a table of profiles.
func WriteProfiles(w io.Writer, profiles []Profile, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	nameWidth := 4
	for _, prof := range profiles {
		nameWidth = max(nameWidth, runewidth.StringWidth(prof.Name))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", p.dim.Sprintf("%s  %3s  %4s  %s", runewidth.FillRight("name", nameWidth), "ptr", "disc", "scalar alignment"))
	for _, prof := range profiles {
		cells := make([]string, len(prof.ScalarAlign))
		for i, sa := range prof.ScalarAlign {
			cells[i] = fmt.Sprintf("%d:%d", sa.Width, sa.Align)
		}
		fmt.Fprintf(&b, "%s  %3d  %4d  %s\n", p.name.Sprint(runewidth.FillRight(prof.Name, nameWidth)), prof.PointerWidth, prof.DefaultDiscriminantWidth, strings.Join(cells, " "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
