package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	// defaultDocxBodyPath is where the main document body usually lives
	// inside the OOXML package. Some producers relocate it and declare the
	// real path in [Content_Types].xml.
	defaultDocxBodyPath = "word/document.xml"
	ooxmlContentTypes   = "[Content_Types].xml"
	docxBodyContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// textRunRe matches the inner text of <w:t> runs, with or without attributes
// such as xml:space="preserve".
var textRunRe = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// Override elements in [Content_Types].xml may list attributes in either
// order, so both are tried.
var (
	overridePartFirst = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxBodyContentType) + `"`)
	overrideTypeFirst = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxBodyContentType) + `"[^>]+PartName="([^"]+)"`)
)

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// docxBodyPath resolves the main document path from [Content_Types].xml,
// returning "" when the package carries no usable declaration.
func docxBodyPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != ooxmlContentTypes {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return ""
		}
		for _, re := range []*regexp.Regexp{overridePartFirst, overrideTypeFirst} {
			if m := re.FindSubmatch(data); len(m) > 1 {
				return strings.TrimPrefix(string(m[1]), "/")
			}
		}
		return ""
	}
	return ""
}

// extractDOCX extracts text from .docx bytes. The format is a ZIP holding an
// XML body; all <w:t> text runs are collected so content survives regardless
// of paragraph or run attributes (naive <w:p>...</w:p> matching fails on
// real-world documents that carry attributes like w:rsidR).
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	bodyPath := docxBodyPath(zr)
	if bodyPath == "" {
		bodyPath = defaultDocxBodyPath
	}

	var body []byte
	for _, f := range zr.File {
		if f.Name == bodyPath {
			if body, err = readZipFile(f); err != nil {
				return "", fmt.Errorf("extract DOCX: read %s: %w", f.Name, err)
			}
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", bodyPath)
	}

	runs := textRunRe.FindAllSubmatch(body, -1)
	parts := make([]string, 0, len(runs))
	for _, run := range runs {
		parts = append(parts, strings.TrimSpace(string(run[1])))
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}
