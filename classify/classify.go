// Package classify maps file names to the kinds used to pick a preview
// strategy and an icon.
package classify

import (
	"strings"

	"github.com/fioncat/vbrowse/types"
)

type Kind int

const (
	Other Kind = iota
	Text
	Image
	PDF
	Document
	Archive
	Audio
	Video
	Folder
)

var kindNames = map[Kind]string{
	Other:    "other",
	Text:     "text",
	Image:    "image",
	PDF:      "pdf",
	Document: "document",
	Archive:  "archive",
	Audio:    "audio",
	Video:    "video",
	Folder:   "folder",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Other]
}

var extensionKinds = map[string]Kind{
	"txt":      Text,
	"md":       Text,
	"markdown": Text,
	"log":      Text,
	"csv":      Text,
	"json":     Text,
	"yaml":     Text,
	"yml":      Text,
	"xml":      Text,
	"ini":      Text,

	"jpg":  Image,
	"jpeg": Image,
	"png":  Image,
	"gif":  Image,
	"bmp":  Image,
	"webp": Image,
	"svg":  Image,

	"pdf": PDF,

	"doc":  Document,
	"docx": Document,
	"xls":  Document,
	"xlsx": Document,
	"ppt":  Document,
	"pptx": Document,

	"zip": Archive,
	"rar": Archive,
	"7z":  Archive,
	"tar": Archive,
	"gz":  Archive,

	"mp3":  Audio,
	"wav":  Audio,
	"flac": Audio,

	"mp4": Video,
	"avi": Video,
	"mov": Video,
}

// Extension returns the lowercased text after the last ".", or "" when the
// name has no ".".
func Extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

func Classify(name string) Kind {
	kind, ok := extensionKinds[Extension(name)]
	if !ok {
		return Other
	}
	return kind
}

// ClassifyEntry classifies folders as Folder regardless of their name.
func ClassifyEntry(ent *types.Entry) Kind {
	if ent.IsFolder() {
		return Folder
	}
	return Classify(ent.Name)
}

func IsMarkdown(name string) bool {
	switch Extension(name) {
	case "md", "markdown":
		return true
	}
	return false
}

var kindIcons = map[Kind]string{
	Folder:   "fas fa-folder",
	Text:     "fas fa-file-alt",
	Image:    "fas fa-file-image",
	PDF:      "fas fa-file-pdf",
	Document: "fas fa-file-word",
	Archive:  "fas fa-file-archive",
	Audio:    "fas fa-file-audio",
	Video:    "fas fa-file-video",
	Other:    "fas fa-file",
}

// Icon returns the icon class for a kind. Unknown kinds get the Other icon.
func Icon(kind Kind) string {
	if icon, ok := kindIcons[kind]; ok {
		return icon
	}
	return kindIcons[Other]
}

var kindGlyphs = map[Kind]string{
	Folder:   "[DIR]",
	Text:     "[TXT]",
	Image:    "[IMG]",
	PDF:      "[PDF]",
	Document: "[DOC]",
	Archive:  "[ARC]",
	Audio:    "[AUD]",
	Video:    "[VID]",
	Other:    "[---]",
}

// Glyph is the terminal counterpart of Icon.
func Glyph(kind Kind) string {
	if glyph, ok := kindGlyphs[kind]; ok {
		return glyph
	}
	return kindGlyphs[Other]
}
