package providers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/extract"
	"github.com/samvad-hq/samvad-feed-harvester/pkg/feedtree"
)

func TestDefaultCatalog(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, p := range cat.All() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"BBC", "CNN", "RT", "NYT", "Guardian", "NPR", "WashingtonPost"}, ids)

	bbc, ok := cat.ByID("bbc")
	require.True(t, ok)
	assert.Len(t, bbc.Sections, 19)
	assert.False(t, bbc.InsecureTLS)
	minDelay, maxDelay := bbc.Delay.Bounds()
	assert.Equal(t, "500ms", minDelay.String())
	assert.Equal(t, "1.5s", maxDelay.String())

	sources := bbc.Sources()
	require.Len(t, sources, 19)
	assert.Equal(t, "http://feeds.bbci.co.uk/news/world/rss.xml", sources[0].URL)
	assert.Equal(t, "http://feeds.bbci.co.uk/news/world/africa/rss.xml", sources[9].URL)
	assert.NotNil(t, sources[0].Profile)
	assert.NotContains(t, sources[0].Transport.Headers, "User-Agent")

	npr, ok := cat.ByID("NPR")
	require.True(t, ok)
	assert.True(t, npr.InsecureTLS)
	nprSources := npr.Sources()
	require.Len(t, nprSources, 12)
	assert.Equal(t, "https://feeds.npr.org/1001/rss.xml", nprSources[0].URL)
	assert.Contains(t, nprSources[0].Transport.Headers["User-Agent"], "Mozilla/5.0")
	assert.True(t, nprSources[0].Transport.InsecureTLS)
	assert.Equal(t, extract.LocationChannel, nprSources[0].Profile.Location())

	wapo, ok := cat.ByID("washingtonpost")
	require.True(t, ok)
	assert.Equal(t, npr.UserAgent, wapo.UserAgent)
	assert.Len(t, wapo.Sources(), 12)

	cnn, ok := cat.ByID("CNN")
	require.True(t, ok)
	assert.Equal(t, "http://rss.cnn.com/rss/edition.rss", cnn.Sources()[0].URL)
}

func TestParseCatalogJSON(t *testing.T) {
	raw := `{"providers":[{"id":"Example","url_template":"https://example.com/{section}.xml",
		"sections":["a",{"name":"b","url":"https://other.example.com/b"}],
		"delay":{"min":0,"max":0.1},
		"profile":{"fields":{"title":"title"}}}]}`

	cat, err := ParseCatalog([]byte(raw), ".json")
	require.NoError(t, err)

	p, ok := cat.ByID("example")
	require.True(t, ok)
	sources := p.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "https://example.com/a.xml", sources[0].URL)
	assert.Equal(t, "https://other.example.com/b", sources[1].URL)
	assert.Equal(t, "b", sources[1].Section)
}

func TestParseCatalogValidation(t *testing.T) {
	cases := map[string]string{
		"no providers":     `providers: []`,
		"missing id":       "providers:\n  - url_template: https://x/{section}\n    sections: [a]\n",
		"no sections":      "providers:\n  - id: x\n    url_template: https://x/{section}\n",
		"no placeholder":   "providers:\n  - id: x\n    url_template: https://x/feed\n    sections: [a]\n",
		"duplicate id":     "providers:\n  - id: x\n    url_template: https://x/{section}\n    sections: [a]\n  - id: X\n    url_template: https://x/{section}\n    sections: [a]\n",
		"duplicate":        "providers:\n  - id: x\n    url_template: https://x/{section}\n    sections: [a, a]\n",
		"inverted delay":   "providers:\n  - id: x\n    url_template: https://x/{section}\n    sections: [a]\n    delay: {min: 2, max: 1}\n",
		"bad profile path": "providers:\n  - id: x\n    url_template: https://x/{section}\n    sections: [a]\n    profile:\n      fields:\n        title: zz:title\n",
		"not yaml":         "providers: [",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(raw), ".yaml")
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogExpandsEnv(t *testing.T) {
	t.Setenv("FEED_HOST", "feeds.example.com")

	path := filepath.Join(t.TempDir(), "providers.yaml")
	content := "providers:\n  - id: Local\n    url_template: https://${FEED_HOST}/{section}\n    sections: [top]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	p, ok := cat.ByID("local")
	require.True(t, ok)
	assert.Equal(t, "https://feeds.example.com/top", p.Sources()[0].URL)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = LoadCatalog("  ")
	assert.Error(t, err)
}

func TestCatalogSelect(t *testing.T) {
	raw := "providers:\n" +
		"  - id: A\n    url_template: https://a/{section}\n    sections: [x]\n" +
		"  - id: B\n    url_template: https://b/{section}\n    sections: [x]\n    enabled: false\n" +
		"  - id: C\n    url_template: https://c/{section}\n    sections: [x]\n"
	cat, err := ParseCatalog([]byte(raw), ".yaml")
	require.NoError(t, err)

	all, err := cat.Select(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].ID)
	assert.Equal(t, "C", all[1].ID)

	only, err := cat.Select([]string{"c", "b"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "C", only[0].ID)

	_, err = cat.Select([]string{"zzz"})
	assert.Error(t, err)
}

func TestHeadersMergeProviderValues(t *testing.T) {
	p := Provider{UserAgent: "agent/1", Headers: map[string]string{"Accept": "application/xml", "X-Key": "v"}}
	h := Headers(p)
	assert.Equal(t, "agent/1", h["User-Agent"])
	assert.Equal(t, "application/xml", h["Accept"])
	assert.Equal(t, "v", h["X-Key"])
}

// builtinArticles runs a sample document through the built-in profile of provider id.
func builtinArticles(t *testing.T, id, body string) []domain.Article {
	t.Helper()
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	p, ok := cat.ByID(id)
	require.True(t, ok)
	profile := p.Sources()[0].Profile
	require.NotNil(t, profile)

	doc, err := feedtree.Parse([]byte(body))
	require.NoError(t, err)
	articles, err := extract.Extract(doc, profile)
	require.NoError(t, err)
	return articles
}

func TestBuiltinNPRProfile(t *testing.T) {
	articles := builtinArticles(t, "NPR", `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>NPR Topics: News</title>
  <item>
    <title>Budget talks resume</title>
    <link>https://www.npr.org/2024/05/01/budget</link>
    <description>Lawmakers return to the table.</description>
    <pubDate>Wed, 01 May 2024 10:00:00 -0400</pubDate>
    <dc:creator>Jane Reporter</dc:creator>
    <guid>npr-1</guid>
    <content:encoded><![CDATA[<p><img src="https://media.npr.org/assets/img/budget.jpg" alt="The Capitol at dusk" /></p><p>(Image credit: Kevin Dietsch/Getty Images)</p>]]></content:encoded>
  </item>
  <item>
    <title>Pixel only</title>
    <content:encoded><![CDATA[<img src="https://www.npr.org/tracking/npr-rss-pixel.png" /><img src="https://media.npr.org/assets/img/second.jpg" />]]></content:encoded>
  </item>
</channel>
</rss>`)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "Budget talks resume", first.Title)
	assert.Equal(t, domain.DescriptionKeyDescription, first.DescriptionKey)
	assert.Equal(t, "Lawmakers return to the table.", first.Description)
	require.NotNil(t, first.Author)
	assert.Equal(t, "Jane Reporter", *first.Author)
	require.Len(t, first.Images, 1)
	img := first.Images[0]
	assert.Equal(t, "https://media.npr.org/assets/img/budget.jpg", img.URL)
	assert.Equal(t, domain.ImageTypeEmbedded, img.Type)
	require.NotNil(t, img.AltText)
	assert.Equal(t, "The Capitol at dusk", *img.AltText)
	require.NotNil(t, img.Credit)
	assert.Equal(t, "Kevin Dietsch/Getty Images", *img.Credit)

	assert.Empty(t, articles[1].Images)
	assert.Equal(t, domain.DefaultDescription, articles[1].Description)

	raw, err := json.Marshal(first)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"description":"Lawmakers return to the table."`)
	assert.NotContains(t, string(raw), `"subline"`)
}

func TestBuiltinWashingtonPostProfile(t *testing.T) {
	articles := builtinArticles(t, "WashingtonPost", `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <item>
    <title>Senate passes bill</title>
    <link>https://www.washingtonpost.com/politics/2024/05/01/senate/</link>
    <description>The measure now heads to the House.</description>
    <dc:creator>Sam Writer</dc:creator>
    <category>Politics</category>
    <category domain="https://www.washingtonpost.com/politics/">Congress</category>
    <media:content url="https://img.washingtonpost.com/senate.jpg" medium="image" width="1440" height="960">
      <media:description>The Senate chamber.</media:description>
    </media:content>
    <media:content url="https://video.washingtonpost.com/senate.mp4" medium="video" />
    <media:thumbnail url="https://img.washingtonpost.com/senate-thumb.jpg" width="120" height="80" />
  </item>
</channel>
</rss>`)
	require.Len(t, articles, 1)

	a := articles[0]
	assert.Equal(t, "Senate passes bill", a.Title)
	assert.Equal(t, "The measure now heads to the House.", a.Description)
	assert.Equal(t, []domain.Category{{Name: "Congress", Domain: "https://www.washingtonpost.com/politics/"}}, a.Categories)

	require.Len(t, a.Images, 2)
	content := a.Images[0]
	assert.Equal(t, "https://img.washingtonpost.com/senate.jpg", content.URL)
	assert.Equal(t, domain.ImageTypeContent, content.Type)
	require.NotNil(t, content.Width)
	assert.Equal(t, "1440", *content.Width)
	require.NotNil(t, content.Description)
	assert.Equal(t, "The Senate chamber.", *content.Description)

	thumb := a.Images[1]
	assert.Equal(t, "https://img.washingtonpost.com/senate-thumb.jpg", thumb.URL)
	assert.Equal(t, domain.ImageTypeThumbnail, thumb.Type)
	assert.Nil(t, thumb.Description)
}
