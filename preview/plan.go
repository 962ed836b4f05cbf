package preview

import (
	"fmt"

	"github.com/fioncat/vbrowse/classify"
	"github.com/fioncat/vbrowse/types"
)

type Strategy int

const (
	// StrategyNone is used for folders, which are navigated instead of
	// previewed.
	StrategyNone Strategy = iota
	StrategyInlineText
	StrategyInlineImage
	StrategyExternalOnly
)

func (s Strategy) String() string {
	switch s {
	case StrategyInlineText:
		return "inline-text"
	case StrategyInlineImage:
		return "inline-image"
	case StrategyExternalOnly:
		return "external-only"
	}
	return "none"
}

// StrategyFor picks how a file of the given kind is shown.
func StrategyFor(kind classify.Kind) Strategy {
	switch kind {
	case classify.Folder:
		return StrategyNone
	case classify.Text:
		return StrategyInlineText
	case classify.Image:
		return StrategyInlineImage
	}
	return StrategyExternalOnly
}

type ActionKind string

const (
	ActionDownload     ActionKind = "download"
	ActionOpenExternal ActionKind = "open"
)

type Action struct {
	Kind  ActionKind
	Label string
	URL   string
}

const (
	OfflinePlaceholder = "Preview is not available when browsing without a content server. Download the file or open it externally."

	UnavailablePlaceholder = "The file content could not be loaded."

	pdfPlaceholder = "PDF documents are not rendered inline. Download the file or open it in a PDF reader."
)

func kindPlaceholder(kind classify.Kind) string {
	return fmt.Sprintf("No inline preview for %s files. Download the file or open it externally.", kind)
}

// Plan describes how an opened entry is presented.
type Plan struct {
	Entry    *types.Entry
	Kind     classify.Kind
	Strategy Strategy

	// Navigated is set when the entry was a folder and opening it moved the
	// navigation session instead.
	Navigated bool

	Content   string
	HTML      string
	Truncated bool

	// FetchedFrom is the candidate URL the content was loaded from.
	FetchedFrom string

	Placeholder string

	AccessURL string
	Actions   []Action
}

func fileActions(accessURL string) []Action {
	return []Action{
		{Kind: ActionDownload, Label: "Download", URL: accessURL},
		{Kind: ActionOpenExternal, Label: "Open in new window", URL: accessURL},
	}
}
