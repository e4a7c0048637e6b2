package surface

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// epubBook is a parsed EPUB container: package metadata plus the ordered
// spine. Chapter markup is read from the archive lazily, one spine item at
// a time.
type epubBook struct {
	title    string
	author   string
	language string
	zr       *zip.Reader
	spine    []spineItem
}

type spineItem struct {
	href  string
	label string
}

func parseEPUB(data []byte) (*epubBook, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}

	containerBytes, err := readZipFile(zr, "META-INF/container.xml")
	if err != nil {
		return nil, fmt.Errorf("invalid epub (missing container.xml): %w", err)
	}

	opfPath, err := findOPFPath(containerBytes)
	if err != nil || strings.TrimSpace(opfPath) == "" {
		return nil, fmt.Errorf("invalid epub (missing package path)")
	}

	opfBytes, err := readZipFile(zr, opfPath)
	if err != nil {
		return nil, fmt.Errorf("invalid epub (missing package file): %w", err)
	}

	meta, hrefs := parseOPF(opfBytes)

	// Spine hrefs are relative to the OPF directory.
	opfDir := path.Dir(opfPath)
	if opfDir == "." {
		opfDir = ""
	}

	spine := make([]spineItem, 0, len(hrefs))
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(href); err == nil && unescaped != "" {
			href = unescaped
		}
		full := path.Clean(path.Join(opfDir, href))
		spine = append(spine, spineItem{href: full, label: chapterLabel(href)})
	}
	if len(spine) == 0 {
		return nil, fmt.Errorf("invalid epub (empty spine)")
	}

	return &epubBook{
		title:    meta.title,
		author:   meta.author,
		language: meta.language,
		zr:       zr,
		spine:    spine,
	}, nil
}

// chapterParagraphs extracts the paragraph text of one spine item.
func (b *epubBook) chapterParagraphs(item spineItem) ([]string, error) {
	raw, err := readZipFile(b.zr, item.href)
	if err != nil {
		return nil, fmt.Errorf("spine item %s: %w", item.href, err)
	}
	return htmlParagraphs(raw), nil
}

func chapterLabel(href string) string {
	base := path.Base(href)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	// Exact match first, then case-insensitive.
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	lower := strings.ToLower(name)
	for _, f := range zr.File {
		if strings.ToLower(f.Name) == lower {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

func findOPFPath(containerXML []byte) (string, error) {
	type rootfile struct {
		FullPath string `xml:"full-path,attr"`
	}
	type rootfiles struct {
		Rootfiles []rootfile `xml:"rootfile"`
	}
	type container struct {
		Rootfiles rootfiles `xml:"rootfiles"`
	}

	var c container
	if err := xml.Unmarshal(containerXML, &c); err != nil {
		return "", err
	}
	for _, rf := range c.Rootfiles.Rootfiles {
		if strings.TrimSpace(rf.FullPath) != "" {
			return strings.TrimSpace(rf.FullPath), nil
		}
	}
	return "", fmt.Errorf("rootfile not found")
}

type opfMeta struct {
	title    string
	author   string
	language string
}

// parseOPF walks the package document with namespace-agnostic matching on
// Name.Local, collecting metadata, the manifest and the spine order.
func parseOPF(opf []byte) (opfMeta, []string) {
	var meta opfMeta
	manifest := map[string]string{}
	spineIDs := make([]string, 0, 64)

	dec := xml.NewDecoder(bytes.NewReader(opf))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch strings.ToLower(se.Name.Local) {
		case "title":
			if meta.title == "" {
				meta.title = strings.TrimSpace(readElementText(dec))
			}
		case "creator":
			if meta.author == "" {
				meta.author = strings.TrimSpace(readElementText(dec))
			}
		case "language":
			if meta.language == "" {
				meta.language = strings.TrimSpace(readElementText(dec))
			}
		case "item":
			var id, href string
			for _, a := range se.Attr {
				switch strings.ToLower(a.Name.Local) {
				case "id":
					id = a.Value
				case "href":
					href = a.Value
				}
			}
			if id != "" && href != "" {
				manifest[id] = href
			}
		case "itemref":
			for _, a := range se.Attr {
				if strings.ToLower(a.Name.Local) == "idref" {
					if a.Value != "" {
						spineIDs = append(spineIDs, a.Value)
					}
					break
				}
			}
		}
	}

	hrefs := make([]string, 0, len(spineIDs))
	for _, id := range spineIDs {
		if href, ok := manifest[id]; ok && href != "" {
			hrefs = append(hrefs, href)
		}
	}
	return meta, hrefs
}

func readElementText(dec *xml.Decoder) string {
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			out.Write([]byte(t))
		case xml.EndElement:
			return out.String()
		}
	}
	return out.String()
}

// htmlParagraphs converts chapter markup to paragraph text: block elements
// delimit paragraphs, script/style/head subtrees are skipped.
func htmlParagraphs(raw []byte) []string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil || doc == nil {
		return nil
	}

	block := map[string]bool{
		"p": true, "div": true, "section": true, "article": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"li": true, "ul": true, "ol": true, "blockquote": true,
	}
	skip := map[string]bool{
		"script": true, "style": true, "head": true, "title": true, "nav": true,
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode {
			tag := strings.ToLower(n.Data)
			if skip[tag] {
				return
			}
			if tag == "br" {
				sb.WriteString("\n")
			}
			if block[tag] {
				sb.WriteString("\n\n")
			}
		}
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") && !strings.HasSuffix(sb.String(), " ") {
					sb.WriteString(" ")
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && block[strings.ToLower(n.Data)] {
			sb.WriteString("\n\n")
		}
	}
	walk(doc)

	return splitParagraphs(sb.String())
}
