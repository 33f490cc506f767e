package pptx

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
)

// writeDeck builds a minimal PPTX archive from slide-part contents.
func writeDeck(t *testing.T, parts map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, content := range parts {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

// slidePart wraps paragraph markup in the slide part skeleton.
func slidePart(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody>` + body + `</p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
}

func notesPart(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notes xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
         xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody>` + body + `</p:txBody></p:sp></p:spTree></p:cSld>
</p:notes>`
}

func para(runs ...string) string {
	out := "<a:p>"
	for _, r := range runs {
		out += "<a:r><a:t>" + r + "</a:t></a:r>"
	}
	return out + "</a:p>"
}

func TestExtract_SlidesInOrder(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide2.xml":  slidePart(para("Second slide")),
		"ppt/slides/slide10.xml": slidePart(para("Tenth slide")),
		"ppt/slides/slide1.xml":  slidePart(para("First slide")),
	})

	slides, err := New().Extract(context.Background(), "deck-1", path)
	require.NoError(t, err)
	require.Len(t, slides, 3)

	// Numeric order, not lexical: slide10 comes after slide2.
	assert.Equal(t, 1, slides[0].Index)
	assert.Equal(t, "First slide", slides[0].Text)
	assert.Equal(t, 2, slides[1].Index)
	assert.Equal(t, "Second slide", slides[1].Text)
	assert.Equal(t, 3, slides[2].Index)
	assert.Equal(t, "Tenth slide", slides[2].Text)

	for _, s := range slides {
		assert.Equal(t, "deck-1", s.RemoteID)
	}
}

func TestExtract_GappedPartsNumberedDensely(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide3.xml": slidePart(para("Opening")),
		"ppt/slides/slide7.xml": slidePart(para("Closing")),
	})

	slides, err := New().Extract(context.Background(), "deck-1", path)
	require.NoError(t, err)
	require.Len(t, slides, 2)

	// Indexes match the page order of a rendered PDF, not the part
	// numbers in the archive.
	assert.Equal(t, 1, slides[0].Index)
	assert.Equal(t, "Opening", slides[0].Text)
	assert.Equal(t, 2, slides[1].Index)
	assert.Equal(t, "Closing", slides[1].Text)
}

func TestExtract_JoinsRunsAndParagraphs(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide1.xml": slidePart(
			para("Split ", "across ", "runs") + para("Second line"),
		),
	})

	slides, err := New().Extract(context.Background(), "deck-1", path)
	require.NoError(t, err)
	require.Len(t, slides, 1)
	assert.Equal(t, "Split across runs\nSecond line", slides[0].Text)
}

func TestExtract_CleansWhitespace(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide1.xml": slidePart(
			para("  Too   much\t whitespace  ") + para("   ") + para("Next"),
		),
	})

	slides, err := New().Extract(context.Background(), "deck-1", path)
	require.NoError(t, err)
	assert.Equal(t, "Too much whitespace\nNext", slides[0].Text)
}

func TestExtract_Notes(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide1.xml":           slidePart(para("Body")),
		"ppt/slides/slide2.xml":           slidePart(para("No notes here")),
		"ppt/notesSlides/notesSlide1.xml": notesPart(para("Remember the demo")),
	})

	slides, err := New().Extract(context.Background(), "deck-1", path)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Equal(t, "Remember the demo", slides[0].Notes)
	assert.Empty(t, slides[1].Notes)
}

func TestExtract_StripsRepeatedFooter(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide1.xml": slidePart(para("Intro") + para("ACME Confidential")),
		"ppt/slides/slide2.xml": slidePart(para("Middle") + para("ACME Confidential")),
		"ppt/slides/slide3.xml": slidePart(para("End") + para("ACME Confidential")),
	})

	slides, err := New().Extract(context.Background(), "deck-1", path)
	require.NoError(t, err)
	require.Len(t, slides, 3)
	assert.Equal(t, "Intro", slides[0].Text)
	assert.Equal(t, "Middle", slides[1].Text)
	assert.Equal(t, "End", slides[2].Text)
}

func TestExtract_KeepsLinesNotOnEverySlide(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide1.xml": slidePart(para("Shared title") + para("One")),
		"ppt/slides/slide2.xml": slidePart(para("Shared title") + para("Two")),
		"ppt/slides/slide3.xml": slidePart(para("Different") + para("Three")),
	})

	slides, err := New().Extract(context.Background(), "deck-1", path)
	require.NoError(t, err)
	assert.Equal(t, "Shared title\nOne", slides[0].Text)
	assert.Equal(t, "Different\nThree", slides[2].Text)
}

func TestExtract_SingleSlideKeepsEverything(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide1.xml": slidePart(para("Only slide") + para("Footer")),
	})

	slides, err := New().Extract(context.Background(), "deck-1", path)
	require.NoError(t, err)
	assert.Equal(t, "Only slide\nFooter", slides[0].Text)
}

func TestExtract_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0o600))

	_, err := New().Extract(context.Background(), "deck-1", path)
	require.Error(t, err)
	assert.True(t, domain.IsContent(err))
}

func TestExtract_NoSlides(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"docProps/core.xml": "<coreProperties/>",
	})

	_, err := New().Extract(context.Background(), "deck-1", path)
	require.Error(t, err)
	assert.True(t, domain.IsContent(err))
}

func TestExtract_MalformedSlideXML(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide1.xml": "<p:sld><unclosed",
	})

	_, err := New().Extract(context.Background(), "deck-1", path)
	require.Error(t, err)
	assert.True(t, domain.IsContent(err))
}
