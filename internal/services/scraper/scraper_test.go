package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/tamilarr/internal/models"
)

const (
	hashA = "abcdef0123456789abcdef0123456789abcdef01"
	hashB = "1111111111111111111111111111111111111111"
)

func magnetPage(hash, name string) string {
	return fmt.Sprintf(`<html><body><a href="magnet:?xt=urn:btih:%s&dn=%s">magnet</a></body></html>`, hash, name)
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)

	page, ok := f.pages[url]
	if !ok {
		return nil, errors.New("page request failed with status 404")
	}
	return []byte(page), nil
}

func TestHTTPFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BrowserUserAgent, r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "<html>ok</html>")
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(zerolog.Nop())

	body, err := fetcher.Fetch(context.Background(), server.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestCategoryFromFeedURL(t *testing.T) {
	assert.Equal(t, models.CategoryPreDVD, CategoryFromFeedURL("https://www.1tamilmv.fi/index.php?/forums/forum/10-predvd-dvdscr-cam-tc.xml"))
	assert.Equal(t, models.CategoryHollywoodMulti, CategoryFromFeedURL("https://host/forums/forum/17-hollywood.xml"))
	assert.Equal(t, models.CategorySeries, CategoryFromFeedURL("https://host/forums/forum/19-web-series.xml"))
	assert.Equal(t, models.CategoryOther, CategoryFromFeedURL("https://host/forums/forum/99-misc.xml"))
}

func TestRSSScraper(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forums/forum/11-web-hd.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>WEB-HD</title>
<item><title>Leo (2023) Tamil 1080p WEB-DL</title><link>%[1]s/topic/1</link><pubDate>Mon, 02 Oct 2023 15:04:05 +0000</pubDate></item>
<item><title>No Magnets (2023)</title><link>%[1]s/topic/2</link></item>
<item><title>Broken (2023)</title><link>%[1]s/topic/3</link></item>
</channel></rss>`, server.URL)
		case "/forums/forum/19-series.xml":
			fmt.Fprintf(w, `<rss version="2.0"><channel>
<item><title>Vadhandhi Tamil 720p</title><link>%s/topic/4</link></item>
</channel></rss>`, server.URL)
		case "/topic/1":
			_, _ = io.WriteString(w, magnetPage(hashA, "Leo.1080p"))
		case "/topic/2":
			_, _ = io.WriteString(w, "<html><body>nothing here</body></html>")
		case "/topic/4":
			_, _ = io.WriteString(w, magnetPage(hashB, "Vadhandhi"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	feeds := []string{
		server.URL + "/forums/forum/11-web-hd.xml",
		server.URL + "/forums/forum/12-unreachable.xml",
		server.URL + "/forums/forum/19-series.xml",
	}
	scraper := NewRSSScraper(NewHTTPFetcher(zerolog.Nop()), feeds, zerolog.Nop())
	assert.Equal(t, models.SourceTamilMV, scraper.Source())

	items, err := scraper.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	leo := items[0]
	assert.Equal(t, "Leo (2023) Tamil 1080p WEB-DL", leo.SourceTitle)
	assert.Equal(t, models.CategoryWebHD, leo.Category)
	assert.Equal(t, models.SourceTamilMV, leo.Source)
	assert.Equal(t, 2023, leo.Parsed.Year)
	require.NotNil(t, leo.PublishedAt)
	assert.Equal(t, 2023, leo.PublishedAt.Year())
	require.Len(t, leo.Magnets, 1)
	assert.Equal(t, hashA, leo.Magnets[0].InfoHash)
	assert.NoError(t, leo.Validate())

	series := items[1]
	assert.Equal(t, models.CategorySeries, series.Category)
	assert.Equal(t, models.ContentTypeSeries, series.Parsed.Type, "series forum forces the type")
	assert.Nil(t, series.PublishedAt)
}

func TestRSSScraperLimitsItemsPerFeed(t *testing.T) {
	feed := `<rss version="2.0"><channel>`
	pages := map[string]string{}
	for i := 0; i < ItemsPerFeed+5; i++ {
		link := fmt.Sprintf("https://forum/topic/%d", i)
		feed += fmt.Sprintf(`<item><title>Movie %d (2024)</title><link>%s</link></item>`, i, link)
		pages[link] = magnetPage(fmt.Sprintf("%040d", i), "m")
	}
	feed += `</channel></rss>`
	pages["https://forum/forums/forum/10.xml"] = feed

	fetcher := &fakeFetcher{pages: pages}
	scraper := NewRSSScraper(fetcher, []string{"https://forum/forums/forum/10.xml"}, zerolog.Nop())

	items, err := scraper.Scrape(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, ItemsPerFeed)
	assert.Len(t, fetcher.calls, ItemsPerFeed+1)
}

func TestTamilBlastersScraper(t *testing.T) {
	const base = "https://www.1tamilblasters.fi"
	fetcher := &fakeFetcher{pages: map[string]string{
		base: `<html><body>
			<article><h2><a href="` + base + `/leo-2023/">Leo (2023) Tamil 1080p WEB-DL</a></h2></article>
			<a href="` + base + `/category/tamil/">Tamil Movies</a>
			<a href="https://mirror.example/kanguva-2024/">Kanguva (2024) Tamil 720p HDRip</a>
			<a href="` + base + `/broken/">Broken (2024) Tamil 720p</a>
			<h3><a href="` + base + `/vadhandhi/">Vadhandhi S01 EP (01-08) Tamil</a></h3>
			<a href="magnet:?xt=urn:btih:` + hashA + `&dn=Front">Front page magnet</a>
		</body></html>`,
		base + "/leo-2023/":                    magnetPage(hashA, "Leo"),
		"https://mirror.example/kanguva-2024/": magnetPage("2222222222222222222222222222222222222222", "Kanguva"),
		base + "/vadhandhi/":                   magnetPage(hashB, "Vadhandhi"),
	}}

	scraper := NewTamilBlastersScraper(fetcher, base, zerolog.Nop())
	scraper.delay = 0
	assert.Equal(t, models.SourceTamilBlasters, scraper.Source())

	items, err := scraper.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, MainPageTitle, items[0].SourceTitle)
	assert.Equal(t, models.CategoryMain, items[0].Category)

	assert.Equal(t, base+"/leo-2023/", items[1].SourceURL)
	assert.Equal(t, models.CategoryMovies, items[1].Category)

	assert.Equal(t, base+"/vadhandhi/", items[2].SourceURL)
	assert.Equal(t, models.CategorySeries, items[2].Category)
	assert.Equal(t, models.ContentTypeSeries, items[2].Parsed.Type)

	assert.Equal(t, "https://mirror.example/kanguva-2024/", items[3].SourceURL)
	assert.NotContains(t, fetcher.calls, base+"/category/tamil/")
}

func TestTamilBlastersScraperFrontPageFailure(t *testing.T) {
	scraper := NewTamilBlastersScraper(&fakeFetcher{}, "https://down.example", zerolog.Nop())

	items, err := scraper.Scrape(context.Background())
	assert.Error(t, err)
	assert.Empty(t, items)
}

func TestLooksLikeRelease(t *testing.T) {
	assert.True(t, looksLikeRelease("Kanguva (2024) Tamil HQ"))
	assert.True(t, looksLikeRelease("Some Film 2024 1080p"))
	assert.False(t, looksLikeRelease("Tamil Movies Archive"))
	assert.False(t, looksLikeRelease("Contact us 2024"))
}
