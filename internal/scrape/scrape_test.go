package scrape_test

import (
	"context"
	"errors"
	"testing"

	"auction_watch/internal/browser"
	"auction_watch/internal/browser/browsertest"
	"auction_watch/internal/scrape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	listingURL = "https://example.test/search?aid=52163&lid=3598G"
	lotURL     = "https://example.test/auction/52163/lot/3598G"
)

const listingHTML = `<html><body>
<a href="/">Home</a>
<a href="#top">Top</a>
<a href="javascript:void(0)">Menu</a>
<a href="/auction/52163/lot/3598G">Cordless drill</a>
<a href="/auction/52163/lot/9999">Other lot</a>
</body></html>`

const lotHTML = `<html><body>
<div class="h1 font-weight-normal text-accent mb-0"><span>$</span><span>129.99</span></div>
<div class="carousel-item active"><img src="/img/3598G-1.JPG?w=600"></div>
</body></html>`

const bareHTML = `<html><body><p>Nothing to see</p><img src="/logo.svg"></body></html>`

func newExtractor(mode scrape.ImageMode) *scrape.Extractor {
	price := scrape.DefaultPositionalPrice()
	price.WaitTimeout = 0
	image := scrape.DefaultPrioritizedImage()
	image.WaitTimeout = 0
	return scrape.NewExtractor(price, image, mode)
}

func openPage(t *testing.T, site *browsertest.Site) browser.Page {
	t.Helper()
	page, err := site.NewPage(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { page.Close() })
	return page
}

func TestResolveFollowsFirstDetailLink(t *testing.T) {
	site := browsertest.NewSite()
	site.Pages[listingURL] = listingHTML
	site.Pages[lotURL] = lotHTML
	page := openPage(t, site)

	nav := scrape.NewNavigator(scrape.DefaultNavigatorConfig())
	final, err := nav.Resolve(context.Background(), page, listingURL)
	require.NoError(t, err)
	assert.Equal(t, lotURL, final)
	assert.Equal(t, []string{listingURL, lotURL}, site.Visits)

	res, err := newExtractor(scrape.ImageURL).Extract(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "129.99", res.Price)
	assert.Equal(t, "https://example.test/img/3598G-1.JPG?w=600", res.ImageRef)
}

func TestResolveDetailPageIsNotRedirected(t *testing.T) {
	site := browsertest.NewSite()
	site.Pages[lotURL] = lotHTML
	page := openPage(t, site)

	final, err := scrape.NewNavigator(scrape.DefaultNavigatorConfig()).Resolve(context.Background(), page, lotURL)
	require.NoError(t, err)
	assert.Equal(t, lotURL, final)
	assert.Len(t, site.Visits, 1)
}

func TestResolveListingWithoutDetailLinkStaysPut(t *testing.T) {
	site := browsertest.NewSite()
	site.Pages[listingURL] = bareHTML
	page := openPage(t, site)

	final, err := scrape.NewNavigator(scrape.DefaultNavigatorConfig()).Resolve(context.Background(), page, listingURL)
	require.NoError(t, err)
	assert.Equal(t, listingURL, final)

	res, err := newExtractor(scrape.ImageFormula).Extract(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, scrape.PriceUnavailable, res.Price)
	assert.False(t, res.PriceFound)
	assert.Equal(t, scrape.NoImage, res.ImageRef)
}

func TestResolveLoadTimeoutIsSoft(t *testing.T) {
	site := browsertest.NewSite()
	site.Pages[lotURL] = lotHTML
	site.Slow[lotURL] = true
	page := openPage(t, site)

	final, err := scrape.NewNavigator(scrape.DefaultNavigatorConfig()).Resolve(context.Background(), page, lotURL)
	require.NoError(t, err)
	assert.Equal(t, lotURL, final)
}

func TestResolveNavigationFailurePropagates(t *testing.T) {
	site := browsertest.NewSite()
	site.NavErrors[lotURL] = errors.New("net::ERR_NAME_NOT_RESOLVED")
	page := openPage(t, site)

	_, err := scrape.NewNavigator(scrape.DefaultNavigatorConfig()).Resolve(context.Background(), page, lotURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrNavigation)
	assert.Len(t, site.Visits, 1)
}

func TestIsListing(t *testing.T) {
	nav := scrape.NewNavigator(scrape.DefaultNavigatorConfig())
	assert.True(t, nav.IsListing(listingURL))
	assert.False(t, nav.IsListing(lotURL))
	assert.False(t, nav.IsListing("https://example.test/searches-archive/lot/1"))
}

func TestFirstDetailLinkResolvesRelative(t *testing.T) {
	nav := scrape.NewNavigator(scrape.DefaultNavigatorConfig())
	link, ok := nav.FirstDetailLink(listingURL, []string{"mailto:lot/x@example.test", "lot/12"})
	require.True(t, ok)
	assert.Equal(t, "https://example.test/lot/12", link)

	_, ok = nav.FirstDetailLink(listingURL, []string{"/about", "/help"})
	assert.False(t, ok)

	link, ok = nav.FirstDetailLink(listingURL, []string{"/a/lot/12", "/b/lot/13"})
	require.True(t, ok)
	assert.Equal(t, "https://example.test/a/lot/12", link)
}

func TestExtractFormulaImage(t *testing.T) {
	site := browsertest.NewSite()
	site.Pages[lotURL] = lotHTML
	page := openPage(t, site)
	require.NoError(t, page.Goto(context.Background(), lotURL, 0))

	res, err := newExtractor(scrape.ImageFormula).Extract(context.Background(), page)
	require.NoError(t, err)
	assert.True(t, res.PriceFound)
	assert.Equal(t,
		`=IFERROR(IMAGE("https://example.test/img/3598G-1.JPG?w=600"),HYPERLINK("https://example.test/img/3598G-1.JPG?w=600","View image"))`,
		res.ImageRef)
}

func TestExtractImageOff(t *testing.T) {
	site := browsertest.NewSite()
	site.Pages[lotURL] = lotHTML
	page := openPage(t, site)
	require.NoError(t, page.Goto(context.Background(), lotURL, 0))

	ex := newExtractor(scrape.ImageOff)
	assert.False(t, ex.WritesImage())
	res, err := ex.Extract(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "129.99", res.Price)
	assert.Empty(t, res.ImageRef)
}

func TestPositionalPriceNeedsSecondFragment(t *testing.T) {
	site := browsertest.NewSite()
	site.Pages[lotURL] = `<div class="h1 font-weight-normal text-accent mb-0"><span>$</span></div>`
	page := openPage(t, site)
	require.NoError(t, page.Goto(context.Background(), lotURL, 0))

	res, err := newExtractor(scrape.ImageFormula).Extract(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, scrape.PriceUnavailable, res.Price)
	assert.Equal(t, scrape.NoImage, res.ImageRef)
}

func TestCleanPrice(t *testing.T) {
	assert.Equal(t, "129.99", scrape.CleanPrice("  $129.99 "))
	assert.Equal(t, "1,250.00", scrape.CleanPrice("€1,250.00"))
	assert.Equal(t, "", scrape.CleanPrice(" £ "))
}

func TestImageCellEscapesQuotes(t *testing.T) {
	got := scrape.ImageCell(`https://x.test/a"b.png`, scrape.ImageFormula)
	assert.Equal(t, `=IFERROR(IMAGE("https://x.test/a""b.png"),HYPERLINK("https://x.test/a""b.png","View image"))`, got)
	assert.Equal(t, "https://x.test/a.png", scrape.ImageCell("https://x.test/a.png", scrape.ImageURL))
}

func TestParseImageMode(t *testing.T) {
	m, err := scrape.ParseImageMode("")
	require.NoError(t, err)
	assert.Equal(t, scrape.ImageFormula, m)
	m, err = scrape.ParseImageMode("URL")
	require.NoError(t, err)
	assert.Equal(t, scrape.ImageURL, m)
	_, err = scrape.ParseImageMode("thumbnail")
	assert.Error(t, err)
}

func TestPositionalPriceRejectsFormulaText(t *testing.T) {
	for _, fragment := range []string{
		`=IMPORTXML("https://evil.test","//a")`,
		`+1+2`,
		`-SUM(A1:A9)`,
		`@cmd`,
	} {
		t.Run(fragment, func(t *testing.T) {
			site := browsertest.NewSite()
			site.Pages[lotURL] = `<div class="h1 font-weight-normal text-accent mb-0"><span>$</span><span>` + fragment + `</span></div>`
			page := openPage(t, site)
			require.NoError(t, page.Goto(context.Background(), lotURL, 0))

			res, err := newExtractor(scrape.ImageFormula).Extract(context.Background(), page)
			require.NoError(t, err)
			assert.False(t, res.PriceFound)
			assert.Equal(t, scrape.PriceUnavailable, res.Price)
		})
	}
}

func TestIsFormulaLike(t *testing.T) {
	assert.True(t, scrape.IsFormulaLike(" =1"))
	assert.True(t, scrape.IsFormulaLike("@x"))
	assert.False(t, scrape.IsFormulaLike("129.99"))
	assert.False(t, scrape.IsFormulaLike(""))
}
