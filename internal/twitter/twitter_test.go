package twitter

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/videah/twitter-archive-server/internal/session"
	"github.com/videah/twitter-archive-server/internal/utils"
)

type fakeStore struct {
	token       *session.Token
	saves       int
	invalidates int
}

func (f *fakeStore) Load() (*session.Token, error) {
	return f.token, nil
}

func (f *fakeStore) Save(token *session.Token) error {
	f.token = token
	f.saves++
	return nil
}

func (f *fakeStore) Invalidate() error {
	f.token = nil
	f.invalidates++
	return nil
}

// fakeBackend plays the role of the scraping endpoints: it hands out a fixed
// guest token and answers searches only for requests carrying a token it
// considers valid.
type fakeBackend struct {
	mu            sync.Mutex
	freshToken    string
	validTokens   map[string]bool
	statuses      func(query string) string // JSON array of statuses
	failSearches  bool
	activateCalls int
	searchCalls   int
	queries       []string
}

func (b *fakeBackend) handler(ctx *fasthttp.RequestCtx) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch string(ctx.Path()) {
	case "/1.1/guest/activate.json":
		b.activateCalls++
		fmt.Fprintf(ctx, `{"guest_token":%q}`, b.freshToken)
	case "/1.1/search/tweets.json":
		b.searchCalls++
		if b.failSearches {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			return
		}
		query := string(ctx.QueryArgs().Peek("q"))
		b.queries = append(b.queries, query)
		if !b.validTokens[string(ctx.Request.Header.Peek("x-guest-token"))] {
			ctx.SetBodyString(`{"statuses":[]}`)
			return
		}
		ctx.SetBodyString(`{"statuses":[` + b.statuses(query) + `]}`)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (b *fakeBackend) counts() (activates, searches int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activateCalls, b.searchCalls
}

func newTestScraper(t *testing.T, store session.Store, backend *fakeBackend) *Scraper {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: backend.handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown()
		ln.Close()
	})

	return &Scraper{
		Store: store,
		Caller: &utils.FastHTTPCaller{
			Client: &fasthttp.Client{
				Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
			},
			Timeout: time.Second,
		},
		BaseURL: "http://twitter.test",
	}
}

const tweetJSON = `{"full_text":"hello","user":{"screen_name":"videah"},"extended_entities":{"media":[]}}`

func TestFetchTweetZeroID(t *testing.T) {
	store := &fakeStore{}
	scraper := &Scraper{Store: store}

	_, err := scraper.FetchTweet(0)
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.Zero(t, store.invalidates)
	assert.Zero(t, store.saves)
}

func TestFetchTweetReusesValidSession(t *testing.T) {
	store := &fakeStore{token: &session.Token{GuestToken: "valid", CreatedAt: time.Now()}}
	backend := &fakeBackend{
		freshToken:  "unused",
		validTokens: map[string]bool{"valid": true},
		statuses:    func(string) string { return tweetJSON },
	}
	scraper := newTestScraper(t, store, backend)

	for i := 0; i < 2; i++ {
		tweet, err := scraper.FetchTweet(42)
		require.NoError(t, err)
		assert.Equal(t, "videah", tweet.User.ScreenName)
		assert.Equal(t, "hello", tweet.FullText)
	}

	activates, _ := backend.counts()
	assert.Zero(t, activates, "a valid persisted session must not be renegotiated")
	assert.Zero(t, store.saves)
	assert.Zero(t, store.invalidates)
}

func TestFetchTweetNegotiatesWhenSessionAbsent(t *testing.T) {
	store := &fakeStore{}
	backend := &fakeBackend{
		freshToken:  "fresh",
		validTokens: map[string]bool{"fresh": true},
		statuses:    func(string) string { return tweetJSON },
	}
	scraper := newTestScraper(t, store, backend)

	_, err := scraper.FetchTweet(42)
	require.NoError(t, err)

	activates, _ := backend.counts()
	assert.Equal(t, 1, activates)
	assert.Equal(t, 1, store.saves)
	require.NotNil(t, store.token)
	assert.Equal(t, "fresh", store.token.GuestToken)
}

func TestFetchTweetQueryBracketsID(t *testing.T) {
	store := &fakeStore{token: &session.Token{GuestToken: "valid"}}
	backend := &fakeBackend{
		validTokens: map[string]bool{"valid": true},
		statuses:    func(string) string { return tweetJSON },
	}
	scraper := newTestScraper(t, store, backend)

	_, err := scraper.FetchTweet(42)
	require.NoError(t, err)

	require.NotEmpty(t, backend.queries)
	assert.Equal(t, "since_id:41 max_id:42 filter:safe", backend.queries[0])
}

func TestFetchTweetFallsBackToUnsafeQuery(t *testing.T) {
	store := &fakeStore{token: &session.Token{GuestToken: "valid"}}
	backend := &fakeBackend{
		validTokens: map[string]bool{"valid": true},
		// The safe branch comes back empty; only the inverted filter hits.
		statuses: func(query string) string {
			if strings.Contains(query, "-filter:safe") {
				return tweetJSON
			}
			return ""
		},
	}
	scraper := newTestScraper(t, store, backend)

	tweet, err := scraper.FetchTweet(42)
	require.NoError(t, err)
	assert.Equal(t, "videah", tweet.User.ScreenName)

	require.Len(t, backend.queries, 2)
	assert.Equal(t, "since_id:41 max_id:42 -filter:safe", backend.queries[1])
	assert.Zero(t, store.invalidates, "an unsafe-branch hit must not trash the session")
}

func TestFetchTweetRecoversFromExpiredSession(t *testing.T) {
	store := &fakeStore{token: &session.Token{GuestToken: "stale", CreatedAt: time.Now().Add(-6 * time.Hour)}}
	backend := &fakeBackend{
		freshToken:  "fresh",
		validTokens: map[string]bool{"fresh": true},
		statuses:    func(string) string { return tweetJSON },
	}
	scraper := newTestScraper(t, store, backend)

	tweet, err := scraper.FetchTweet(42)
	require.NoError(t, err)
	assert.Equal(t, "hello", tweet.FullText)

	assert.Equal(t, 1, store.invalidates)
	assert.Equal(t, 1, store.saves)
	require.NotNil(t, store.token)
	assert.Equal(t, "fresh", store.token.GuestToken, "recovery must leave a freshly persisted session")

	activates, _ := backend.counts()
	assert.Equal(t, 1, activates)
}

func TestFetchTweetNotFound(t *testing.T) {
	store := &fakeStore{token: &session.Token{GuestToken: "valid"}}
	backend := &fakeBackend{
		freshToken:  "fresh",
		validTokens: map[string]bool{},
		statuses:    func(string) string { return tweetJSON },
	}
	scraper := newTestScraper(t, store, backend)

	_, err := scraper.FetchTweet(42)
	assert.ErrorIs(t, err, ErrNotFound)

	// Both attempts ran both query branches.
	_, searches := backend.counts()
	assert.Equal(t, 4, searches)
	assert.Equal(t, 1, store.invalidates)
}

func TestFetchTweetBackendError(t *testing.T) {
	store := &fakeStore{token: &session.Token{GuestToken: "valid"}}
	backend := &fakeBackend{
		freshToken:   "fresh",
		failSearches: true,
	}
	scraper := newTestScraper(t, store, backend)

	_, err := scraper.FetchTweet(42)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, 1, store.invalidates, "the first failure must still trigger one retry")
}
