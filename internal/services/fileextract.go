package services

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor turns an uploaded source file into plain text. It never
// fails: anything it cannot read degrades to an empty (or partial) string.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Extract dispatches on the file extension.
func (s *TextExtractor) Extract(path string) (text string) {
	defer func() {
		// ledongthuc/pdf panics on some malformed xref tables.
		if r := recover(); r != nil {
			log.Printf("Text extraction panicked for %s: %v", path, r)
		}
	}()

	ext := strings.ToLower(filepath.Ext(path))

	var err error
	switch {
	case ext == ".pdf":
		text, err = s.extractPDF(path)
	case ext == ".docx":
		text, err = s.extractDOCX(path)
	case ext == ".txt":
		text, err = s.extractTXT(path)
	case imageExtensions[ext]:
		text = imagePlaceholder(path)
	default:
		err = fmt.Errorf("unsupported file type for text extraction: %q", ext)
	}

	if err != nil {
		log.Printf("Error extracting text from %s: %v", path, err)
	}
	return text
}

// ExtractAll concatenates the text of every path in order.
func (s *TextExtractor) ExtractAll(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(s.Extract(p))
	}
	return b.String()
}

func imagePlaceholder(path string) string {
	return fmt.Sprintf("[Image File: %s - Content requires Visual AI]", filepath.Base(path))
}

// extractTXT drops byte sequences that are not valid UTF-8.
func (s *TextExtractor) extractTXT(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), ""), nil
}

// extractPDF writes each page followed by a newline; a page that yields no
// text still contributes its newline.
func (s *TextExtractor) extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		b.WriteString(pageText(reader, pageIndex))
		b.WriteString("\n")
	}

	return b.String(), nil
}

func pageText(reader *pdf.Reader, pageIndex int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	page := reader.Page(pageIndex)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return content
}

func (s *TextExtractor) extractDOCX(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		documentXML, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return docxParagraphs(documentXML), nil
	}

	return "", fmt.Errorf("docx document.xml not found")
}

var (
	docxParagraphPattern = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?/>|<w:p(?:\s[^>]*)?>.*?</w:p>`)
	xmlTagPattern        = regexp.MustCompile(`<[^>]+>`)
	xmlEntityReplacer    = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
)

// docxParagraphs returns the text of every <w:p> paragraph, each followed by
// a newline.
func docxParagraphs(src []byte) string {
	var b strings.Builder
	for _, para := range docxParagraphPattern.FindAll(src, -1) {
		s := string(para)
		s = strings.ReplaceAll(s, "<w:tab/>", "\t")
		s = strings.ReplaceAll(s, "<w:br/>", "\n")
		s = xmlTagPattern.ReplaceAllString(s, "")
		b.WriteString(xmlEntityReplacer.Replace(s))
		b.WriteString("\n")
	}
	return b.String()
}
