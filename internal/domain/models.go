package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Domain contains core models shared by the ingestion pipeline.

const (
	DefaultTitle       = "No title"
	DefaultDescription = "No description"

	// FailureMessage is the operator-facing error recorded for every failed section.
	FailureMessage = "Failed to download articles"

	DescriptionKeySubline     = "subline"
	DescriptionKeyDescription = "description"
)

// ImageType tags an image by where it was found in the item.
type ImageType string

const (
	ImageTypeContent   ImageType = "content"
	ImageTypeThumbnail ImageType = "thumbnail"
	ImageTypeEmbedded  ImageType = "main_image"
)

type Category struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

type ImageDescriptor struct {
	URL         string    `json:"url"`
	Width       *string   `json:"width,omitempty"`
	Height      *string   `json:"height,omitempty"`
	Credit      *string   `json:"credit,omitempty"`
	AltText     *string   `json:"alt_text,omitempty"`
	Description *string   `json:"description,omitempty"`
	Type        ImageType `json:"type"`
}

// Article is one normalized feed item.
type Article struct {
	Title       string
	Link        *string
	Description string
	PubDate     *string
	Author      *string
	GUID        *string
	Categories  []Category
	Images      []ImageDescriptor

	// DescriptionKey selects the JSON key used for Description.
	DescriptionKey string
}

type articleWire struct {
	Title       string            `json:"title"`
	Link        *string           `json:"link"`
	Subline     *string           `json:"subline,omitempty"`
	Description *string           `json:"description,omitempty"`
	PubDate     *string           `json:"pub_date"`
	Author      *string           `json:"author"`
	GUID        *string           `json:"guid,omitempty"`
	Categories  []Category        `json:"categories,omitempty"`
	Images      []ImageDescriptor `json:"images"`
}

// MarshalJSON writes the description under the provider's key and always emits an images list.
func (a Article) MarshalJSON() ([]byte, error) {
	desc := a.Description
	w := articleWire{
		Title:      a.Title,
		Link:       a.Link,
		PubDate:    a.PubDate,
		Author:     a.Author,
		GUID:       a.GUID,
		Categories: a.Categories,
		Images:     a.Images,
	}
	if w.Images == nil {
		w.Images = []ImageDescriptor{}
	}
	if a.DescriptionKey == DescriptionKeyDescription {
		w.Description = &desc
	} else {
		w.Subline = &desc
	}

	// HTML escaping is left to the caller's encoder; an inner json.Marshal would force it.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// IngestBatch is the unit appended to the result sink: success xor failure.
type IngestBatch struct {
	Date     string    `json:"date"`
	Provider string    `json:"website"`
	Section  string    `json:"section"`
	Articles []Article `json:"articles,omitempty"`
	Error    string    `json:"error,omitempty"`

	cause error
}

// NewSuccessBatch builds a batch carrying extracted articles.
func NewSuccessBatch(date, provider, section string, articles []Article) IngestBatch {
	return IngestBatch{Date: date, Provider: provider, Section: section, Articles: articles}
}

// NewFailureBatch builds a failure record; cause is kept for logging only.
func NewFailureBatch(date, provider, section string, cause error) IngestBatch {
	return IngestBatch{Date: date, Provider: provider, Section: section, Error: FailureMessage, cause: cause}
}

// Failed reports whether the batch records a failed section.
func (b IngestBatch) Failed() bool { return b.Error != "" }

// Cause returns the underlying error of a failure batch.
func (b IngestBatch) Cause() error { return b.cause }

// BatchDate formats t as D/M/YYYY without zero padding.
func BatchDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}
