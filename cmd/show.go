package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arcanaland/cardpack/internal/archive"
	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/fsys"
	"github.com/arcanaland/cardpack/internal/validator"
)

var showCmd = &cobra.Command{
	Use:   "show <project-dir|archive>",
	Short: "Display a card project or archive",
	Long: `Show prints the metadata and the base cards of a card project directory or
card archive, wrapped to the terminal width. With --art, an image resource of
the card (PNG, JPEG or GIF) is rendered as ANSI art next to the details.

Examples:
  cardpack show ./my-card
  cardpack show my-card.card --art assets/cover.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openSource(args[0])
		if err != nil {
			return err
		}

		data, err := src.Read(card.MetadataPath)
		if err != nil {
			return fmt.Errorf("error reading metadata: %w", err)
		}
		metadata, err := card.ParseMetadata(data)
		if err != nil {
			return fmt.Errorf("error parsing metadata: %w", err)
		}

		var structure *card.Structure
		if data, err := src.Read(card.StructurePath); err == nil {
			if structure, err = card.ParseStructure(data); err != nil {
				return fmt.Errorf("error parsing structure: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading structure: %w", err)
		}

		ansiArt := ""
		if artPath, _ := cmd.Flags().GetString("art"); artPath != "" {
			raw, err := src.Read(artPath)
			if err != nil {
				return fmt.Errorf("error reading %s: %w", artPath, err)
			}
			size, _ := cmd.Flags().GetInt("art-size")
			if ansiArt, err = renderAnsiArt(raw, size, size*4/5); err != nil {
				return fmt.Errorf("error rendering %s: %w", artPath, err)
			}
		}

		displayCard(src, metadata, structure, ansiArt)
		return nil
	},
}

func init() {
	showCmd.Flags().String("art", "", "Image resource inside the card to render as ANSI art")
	showCmd.Flags().Int("art-size", 32, "Width of the rendered art in columns")
}

// openSource opens a project directory or a card archive for reading.
func openSource(path string) (validator.Source, error) {
	osfs := fsys.NewOS()
	isDir, err := osfs.IsDir(path)
	if err != nil {
		return nil, fmt.Errorf("card not found: %s", path)
	}
	if isDir {
		return validator.NewDirSource(osfs, path), nil
	}

	data, err := osfs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	codec := archive.NewZip()
	if !codec.Validate(data) {
		return nil, fmt.Errorf("%s is not a card archive", path)
	}
	return validator.NewArchiveSource(codec, data, path)
}

// infoLines builds the right-hand column of the show output.
func infoLines(src validator.Source, m *card.Metadata, s *card.Structure, width int) []string {
	label := func(s string) string { return colorize.CyanString("%-9s", s) }

	lines := []string{
		label("Card:") + colorize.HiWhiteString("%s", m.Name),
		label("ID:") + colorize.HiWhiteString("%s", m.CardID),
	}
	if m.StandardsVersion != "" {
		lines = append(lines, label("Version:")+colorize.HiWhiteString("%s", m.StandardsVersion))
	}
	if len(m.Tags) > 0 {
		lines = append(lines, label("Tags:")+colorize.HiWhiteString("%s", strings.Join(m.Tags, " · ")))
	}

	if m.Description != "" {
		lines = append(lines, "", colorize.CyanString("Description:"))
		lines = append(lines, wrapText(m.Description, width)...)
	}

	if s == nil {
		return append(lines, "", colorize.YellowString("No structure document"))
	}

	lines = append(lines, "", colorize.CyanString("Base cards (%d):", len(s.Structure)))
	for _, ref := range s.Structure {
		lines = append(lines, fmt.Sprintf("• %s %s", colorize.HiWhiteString("%s", ref.ID), colorize.HiBlackString("(%s)", ref.Type)))
		if preview := contentPreview(src, ref.ID); preview != "" {
			for _, l := range wrapText(preview, width-2) {
				lines = append(lines, "  "+l)
			}
		}
	}
	return lines
}

// contentPreview renders the scalar fields of a base card's data object.
func contentPreview(src validator.Source, id string) string {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ""
	}
	data, err := src.Read(card.ContentPath(id))
	if err != nil {
		return colorize.YellowString("missing content")
	}
	content, err := card.ParseContent(data)
	if err != nil {
		return colorize.RedString("unreadable content")
	}
	obj, ok := content.DataObject()
	if !ok {
		return ""
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string, int, float64, bool:
			parts = append(parts, fmt.Sprintf("%s: %v", k, v))
		}
	}
	return strings.Join(parts, ", ")
}

// displayCard prints the ANSI art, if any, on the left and the details on
// the right.
func displayCard(src validator.Source, m *card.Metadata, s *card.Structure, ansiArt string) {
	var ansiLines []string
	if ansiArt != "" {
		ansiLines = strings.Split(ansiArt, "\n")
	}
	maxAnsiWidth := 0
	for _, line := range ansiLines {
		// Calculate the visible width (excluding ANSI escape sequences)
		maxAnsiWidth = max(maxAnsiWidth, len([]rune(stripAnsi(line))))
	}

	// Get terminal width
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80 // Default if we can't get terminal width
	}

	spacing := 0
	if maxAnsiWidth > 0 {
		spacing = 4
	}
	infoStartCol := maxAnsiWidth + spacing

	infoWidth := width - infoStartCol - 2 // Leave a small margin
	if infoWidth < 20 {
		infoWidth = 20 // Minimum width for text
	}
	info := infoLines(src, m, s, infoWidth)

	fmt.Println()
	for i := 0; i < max(len(ansiLines), len(info)); i++ {
		fmt.Print("  ")
		if i < len(ansiLines) {
			fmt.Print(ansiLines[i])
			fmt.Print(strings.Repeat(" ", infoStartCol-len([]rune(stripAnsi(ansiLines[i])))))
		} else {
			fmt.Print(strings.Repeat(" ", infoStartCol))
		}
		if i < len(info) {
			fmt.Print(info[i])
		}
		fmt.Println()
	}
	fmt.Println()
}
