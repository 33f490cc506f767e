// Package pptx extracts slide text and speaker notes from PPTX
// archives.
package pptx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor parses PPTX decks.
type Extractor struct{}

// New creates a new PPTX extractor.
func New() *Extractor {
	return &Extractor{}
}

var (
	slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	notesName = regexp.MustCompile(`^ppt/notesSlides/notesSlide(\d+)\.xml$`)
)

// Extract returns the slides of the deck at path, in source order.
// Slides are renumbered densely 1..N by sorted part order so indexes
// line up with the page numbering of a rendered PDF even when slide
// parts are gapped. Boilerplate lines that repeat on every slide
// (footers, copyright banners) are stripped from the slide bodies.
func (e *Extractor) Extract(_ context.Context, remoteID, path string) ([]domain.Slide, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, domain.Contentf("opening deck archive: %v", err)
	}
	defer reader.Close()

	texts := make(map[int]string)
	notes := make(map[int]string)

	for _, file := range reader.File {
		if m := slideName.FindStringSubmatch(file.Name); m != nil {
			var no int
			fmt.Sscanf(m[1], "%d", &no)
			text, err := parseShapeText(file)
			if err != nil {
				return nil, err
			}
			texts[no] = text
			continue
		}
		if m := notesName.FindStringSubmatch(file.Name); m != nil {
			var no int
			fmt.Sscanf(m[1], "%d", &no)
			text, err := parseShapeText(file)
			if err != nil {
				return nil, err
			}
			notes[no] = text
		}
	}

	if len(texts) == 0 {
		return nil, domain.Contentf("deck contains no slides")
	}

	numbers := make([]int, 0, len(texts))
	for no := range texts {
		numbers = append(numbers, no)
	}
	sort.Ints(numbers)

	boilerplate := findBoilerplate(texts, numbers)

	slides := make([]domain.Slide, 0, len(numbers))
	for i, no := range numbers {
		slides = append(slides, domain.Slide{
			RemoteID: remoteID,
			Index:    i + 1,
			Text:     stripLines(texts[no], boilerplate),
			Notes:    notes[no],
		})
	}
	return slides, nil
}

// slideXML captures the DrawingML text runs of one slide part. Text
// lives in a:p paragraphs containing a:r runs with a:t elements;
// everything else in the slide tree is ignored.
type slideXML struct {
	Paragraphs []paragraph `xml:"cSld>spTree>sp>txBody>p"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text string `xml:"t"`
}

// parseShapeText extracts the cleaned text of one slide or notes part.
func parseShapeText(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", domain.Contentf("opening %s: %v", file.Name, err)
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return "", domain.Contentf("reading %s: %v", file.Name, err)
	}

	var slide slideXML
	if err := xml.Unmarshal(content, &slide); err != nil {
		return "", domain.Contentf("parsing %s: %v", file.Name, err)
	}

	var result strings.Builder
	for _, para := range slide.Paragraphs {
		var line strings.Builder
		for _, r := range para.Runs {
			line.WriteString(r.Text)
		}
		cleaned := cleanWhitespace(line.String())
		if cleaned == "" {
			continue
		}
		if result.Len() > 0 {
			result.WriteString("\n")
		}
		result.WriteString(cleaned)
	}
	return result.String(), nil
}

// cleanWhitespace collapses runs of whitespace into single spaces.
func cleanWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// findBoilerplate returns the lines present on every slide of a
// multi-slide deck. Slide numbers in footers differ per slide and so
// never qualify.
func findBoilerplate(texts map[int]string, numbers []int) map[string]bool {
	if len(numbers) < 2 {
		return nil
	}

	counts := make(map[string]int)
	for _, no := range numbers {
		seen := make(map[string]bool)
		for _, line := range strings.Split(texts[no], "\n") {
			if line != "" && !seen[line] {
				seen[line] = true
				counts[line]++
			}
		}
	}

	boilerplate := make(map[string]bool)
	for line, count := range counts {
		if count == len(numbers) {
			boilerplate[line] = true
		}
	}
	return boilerplate
}

// stripLines removes the given lines from text.
func stripLines(text string, drop map[string]bool) string {
	if len(drop) == 0 {
		return text
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if !drop[line] {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
