package summarize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreplay/internal/entity"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd" version="2.0">
<channel>
<title>Serial Killers Weekly</title>
<item>
  <title>Episode 3</title>
  <guid>ep-3</guid>
  <pubDate>Mon, 17 Nov 2014 21:00:00 +0000</pubDate>
  <enclosure url="http://cdn/ep3.mp3" type="audio/mpeg" length="1"/>
</item>
<item>
  <title>Episode 2</title>
  <guid>ep-2</guid>
  <pubDate>Mon, 10 Nov 2014 21:00:00 +0000</pubDate>
  <enclosure url="http://cdn/ep2.mp3" type="audio/mpeg" length="1"/>
</item>
<item>
  <title>Episode 1</title>
  <guid>ep-1</guid>
  <pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate>
  <enclosure url="http://cdn/ep1.mp3" type="audio/mpeg" length="1"/>
</item>
</channel>
</rss>`

func TestSummarizeRSSSortsAscendingByTimestamp(t *testing.T) {
	summary, err := Summarize(strings.NewReader(rssFeed))
	require.NoError(t, err)

	assert.Equal(t, "Serial Killers Weekly", summary.Title)
	assert.False(t, summary.MarkedPrivate)

	require.Len(t, summary.Items, 3)
	assert.Equal(t, "ep-1", summary.Items[0].ID)
	assert.Equal(t, "ep-2", summary.Items[1].ID)
	assert.Equal(t, "ep-3", summary.Items[2].ID)
	assert.Equal(t,
		time.Date(2014, 11, 3, 21, 0, 0, 0, time.UTC),
		summary.Items[0].Timestamp)
}

func TestSummarizeAtomLinkEnclosure(t *testing.T) {
	src := `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Atom Show</title>
<entry>
  <id>urn:e1</id>
  <title>First</title>
  <updated>2014-11-03T21:00:00Z</updated>
  <link rel="enclosure" type="audio/mpeg" href="http://cdn/e1.mp3"/>
</entry>
<entry>
  <id>urn:e2</id>
  <title>No audio</title>
  <updated>2014-11-04T21:00:00Z</updated>
  <link rel="alternate" type="text/html" href="http://site/e2"/>
</entry>
</feed>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "Atom Show", summary.Title)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, "urn:e1", summary.Items[0].ID)
	assert.Equal(t, "First", summary.Items[0].Title)
}

func TestSummarizeDropsItemsMissingRequiredFields(t *testing.T) {
	src := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><guid>no-date</guid><enclosure url="a" type="audio/mpeg"/></item>
<item><pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate><enclosure url="b" type="audio/mpeg"/></item>
<item><guid>no-audio</guid><pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate><enclosure url="c" type="video/mp4"/></item>
<item><guid>bad-date</guid><pubDate>not a date</pubDate><enclosure url="d" type="audio/mpeg"/></item>
<item><guid>ok</guid><pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate><enclosure url="e" type="audio/mpeg"/></item>
</channel></rss>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, "ok", summary.Items[0].ID)
}

func TestSummarizeMarkedPrivate(t *testing.T) {
	src := `<?xml version="1.0"?>
<rss xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd" version="2.0">
<channel><title>T</title><itunes:block>YES</itunes:block></channel></rss>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)
	assert.True(t, summary.MarkedPrivate)
}

func TestSummarizeCDATATitleIsUnescaped(t *testing.T) {
	src := `<?xml version="1.0"?>
<rss version="2.0"><channel><title><![CDATA[Tom & Jerry]]></title>
<item><title><![CDATA[Ep <1>]]></title><guid>1</guid><pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate><enclosure url="a" type="audio/mpeg"/></item>
</channel></rss>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "Tom & Jerry", summary.Title)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, "Ep <1>", summary.Items[0].Title)
}

func TestSummarizeDescriptionFallbackTruncated(t *testing.T) {
	long := strings.Repeat("a", 150)
	src := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><guid>1</guid><description>` + long + `</description><pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate><enclosure url="a" type="audio/mpeg"/></item>
</channel></rss>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, strings.Repeat("a", 90)+"...", summary.Items[0].Title)
}

func TestSummarizeDescriptionFallbackShortKeptWhole(t *testing.T) {
	src := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><guid>1</guid><description>a short description</description><pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate><enclosure url="a" type="audio/mpeg"/></item>
</channel></rss>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, "a short description", summary.Items[0].Title)
}

func TestSummarizeItemTitleWinsOverDescription(t *testing.T) {
	src := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><title>Real Title</title><description>desc</description><guid>1</guid><pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate><enclosure url="a" type="audio/mpeg"/></item>
</channel></rss>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, "Real Title", summary.Items[0].Title)
}

func TestSummarizeNotAFeed(t *testing.T) {
	_, err := Summarize(strings.NewReader(`<html><body>hello</body></html>`))
	assert.ErrorIs(t, err, entity.ErrNotAFeed)
}

func TestSummarizeEmptyFeedWithDeclarationIsNotAnError(t *testing.T) {
	src := `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "Empty", summary.Title)
	assert.Empty(t, summary.Items)
}

func TestSummarizeRFC3339DatesInRSS(t *testing.T) {
	src := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><guid>1</guid><pubDate>2014-11-03T21:00:00-05:00</pubDate><enclosure url="a" type="audio/mpeg"/></item>
</channel></rss>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t,
		time.Date(2014, 11, 4, 2, 0, 0, 0, time.UTC),
		summary.Items[0].Timestamp)
}

func TestSummarizeStableOrderForEqualTimestamps(t *testing.T) {
	// Upstream is newest-first; two items sharing one timestamp must
	// come out in their original relative order once the feed has been
	// reversed to oldest-first.
	src := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><guid>b</guid><pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate><enclosure url="x" type="audio/mpeg"/></item>
<item><guid>a</guid><pubDate>Mon, 03 Nov 2014 21:00:00 +0000</pubDate><enclosure url="y" type="audio/mpeg"/></item>
</channel></rss>`

	summary, err := Summarize(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, summary.Items, 2)
	assert.Equal(t, "a", summary.Items[0].ID)
	assert.Equal(t, "b", summary.Items[1].ID)
}
