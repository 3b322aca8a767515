package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBatchDate(t *testing.T) {
	assert.Equal(t, "5/3/2024", BatchDate(time.Date(2024, time.March, 5, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "31/12/1999", BatchDate(time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC)))
}

func TestArticleJSONUsesSublineByDefault(t *testing.T) {
	a := Article{Title: DefaultTitle, Description: DefaultDescription}

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"No title","link":null,"subline":"No description","pub_date":null,"author":null,"images":[]}`, string(raw))
}

func TestArticleJSONDescriptionKey(t *testing.T) {
	a := Article{
		Title:          "t",
		Link:           strPtr("https://example.test/a"),
		Description:    "d",
		GUID:           strPtr("g-1"),
		Categories:     []Category{{Name: "World", Domain: "https://example.test/world"}},
		DescriptionKey: DescriptionKeyDescription,
	}

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "t",
		"link": "https://example.test/a",
		"description": "d",
		"pub_date": null,
		"author": null,
		"guid": "g-1",
		"categories": [{"name": "World", "domain": "https://example.test/world"}],
		"images": []
	}`, string(raw))
	assert.NotContains(t, string(raw), "subline")
}

func TestArticleJSONKeepsMarkup(t *testing.T) {
	a := Article{Title: "A & B <live>", Description: "<p>x</p>"}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(a))
	assert.Contains(t, buf.String(), `"title":"A & B <live>"`)
	assert.Contains(t, buf.String(), `"subline":"<p>x</p>"`)
}

func TestImageDescriptorOmitsUnsetAttributes(t *testing.T) {
	raw, err := json.Marshal(ImageDescriptor{URL: "https://img.test/1.jpg", Width: strPtr("640"), Type: ImageTypeContent})
	require.NoError(t, err)
	assert.Equal(t, `{"url":"https://img.test/1.jpg","width":"640","type":"content"}`, string(raw))
}

func TestFailureBatch(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	b := NewFailureBatch("1/1/2024", "CNN", "edition", cause)

	assert.True(t, b.Failed())
	assert.Equal(t, cause, b.Cause())
	assert.Empty(t, b.Articles)

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{"date":"1/1/2024","website":"CNN","section":"edition","error":"Failed to download articles"}`, string(raw))
}

func TestSuccessBatch(t *testing.T) {
	b := NewSuccessBatch("1/1/2024", "BBC", "world", []Article{{Title: "x", Description: DefaultDescription}})

	assert.False(t, b.Failed())
	assert.NoError(t, b.Cause())

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"error"`)
	assert.Contains(t, string(raw), `"website":"BBC"`)
}
