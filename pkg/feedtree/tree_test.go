package feedtree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
     xmlns:media="http://search.yahoo.com/mrss/"
     xmlns:dc="http://purl.org/dc/elements/1.1/"
     xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>World</title>
    <item>
      <title>  First  </title>
      <dc:creator>Jane Doe</dc:creator>
      <content:encoded><![CDATA[<p><img src='http://x/y.jpg' alt='cap'/></p>]]></content:encoded>
      <media:group>
        <media:content url="http://x/a.jpg" medium="image"/>
      </media:group>
    </item>
    <item>
      <title>Second</title>
    </item>
  </channel>
</rss>`

func TestParseBuildsNamespacedTree(t *testing.T) {
	doc, err := Parse([]byte(sampleFeed))
	require.NoError(t, err)
	require.NotNil(t, doc.Root)

	assert.Equal(t, "rss", doc.Root.Name)
	channel := doc.Root.Find(MustCompilePath("channel"))
	require.NotNil(t, channel)

	items := channel.FindAll(MustCompilePath("item"))
	require.Len(t, items, 2)

	first := items[0]
	title, ok := first.Lookup(MustCompilePath("title"))
	assert.True(t, ok)
	assert.Equal(t, "First", title)

	creator := first.Find(MustCompilePath("dc:creator"))
	require.NotNil(t, creator)
	assert.Equal(t, "http://purl.org/dc/elements/1.1/", creator.Space)
	assert.Equal(t, "Jane Doe", creator.Value())

	content, ok := first.Lookup(MustCompilePath("{http://purl.org/rss/1.0/modules/content/}encoded"))
	assert.True(t, ok)
	assert.Equal(t, "<p><img src='http://x/y.jpg' alt='cap'/></p>", content)

	// direct child lookup does not see nested media elements, descendant lookup does
	assert.Nil(t, first.Find(MustCompilePath("media:content")))
	media := first.Find(MustCompilePath(".//media:content"))
	require.NotNil(t, media)
	url, ok := media.Attr("url")
	assert.True(t, ok)
	assert.Equal(t, "http://x/a.jpg", url)
}

func TestDescendantLookupFromRoot(t *testing.T) {
	doc, err := Parse([]byte(sampleFeed))
	require.NoError(t, err)

	items := doc.Root.FindAll(MustCompilePath(".//item"))
	assert.Len(t, items, 2)

	_, ok := items[1].Lookup(MustCompilePath("description"))
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind ParseErrorKind
	}{
		{name: "empty", raw: "   \n", kind: KindEmpty},
		{name: "html page", raw: "<html><body>Service unavailable</body></html>", kind: KindUnsupported},
		{name: "plain text", raw: "not a feed at all", kind: KindUnsupported},
		{name: "truncated", raw: `<rss version="2.0"><channel><item><title>x</title>`, kind: KindMalformed},
		{name: "mismatched", raw: `<rss version="2.0"><channel><item></channel></rss>`, kind: KindMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tc.kind, perr.Kind)
		})
	}
}

func TestLenientParserAcceptsHTMLEntities(t *testing.T) {
	raw := `<rss version="2.0"><channel><item><title>Caf&eacute;&nbsp;news</title></item></channel></rss>`

	_, err := Parse([]byte(raw))
	require.Error(t, err)

	doc, err := Parser{Lenient: true}.Parse([]byte(raw))
	require.NoError(t, err)
	items := doc.Root.FindAll(MustCompilePath("channel/item"))
	assert.Len(t, items, 1)
}

func TestCompilePath(t *testing.T) {
	valid := []string{
		"title",
		"channel/item",
		".//item",
		"./title",
		".//{http://purl.org/dc/elements/1.1/}creator",
		"media:group/media:content",
		"channel//item",
		"*",
	}
	for _, expr := range valid {
		p, err := CompilePath(expr, nil)
		require.NoError(t, err, expr)
		assert.False(t, p.IsZero(), expr)
		assert.Equal(t, expr, p.String())
	}

	invalid := []string{
		"",
		"/rss/channel",
		"channel/",
		"foo:bar",
		"{http://x/unterminated",
		"{http://x/}",
		"media:",
	}
	for _, expr := range invalid {
		_, err := CompilePath(expr, nil)
		assert.Error(t, err, expr)
	}
}

func TestCompilePathCustomNamespaces(t *testing.T) {
	ns := map[string]string{"x": "urn:example"}
	p, err := CompilePath(".//x:thing", ns)
	require.NoError(t, err)

	doc, err := Parse([]byte(`<rss xmlns:e="urn:example"><channel><e:thing>ok</e:thing></channel></rss>`))
	require.NoError(t, err)
	v, ok := doc.Root.Lookup(p)
	assert.True(t, ok)
	assert.Equal(t, "ok", v)
}

func TestZeroPathFindsNothing(t *testing.T) {
	doc, err := Parse([]byte(sampleFeed))
	require.NoError(t, err)

	var p Path
	assert.True(t, p.IsZero())
	assert.Nil(t, doc.Root.Find(p))
	assert.Empty(t, doc.Root.FindAll(p))
}
