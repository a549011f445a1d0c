// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/refcheck/internal/httputil"
	"github.com/pdiddy/refcheck/internal/index"
	"github.com/pdiddy/refcheck/pkg/types"
)

// swapBase points an API base var at a test server for one test.
func swapBase(t *testing.T, base *string, url string) {
	t.Helper()
	orig := *base
	*base = url
	t.Cleanup(func() { *base = orig })
}

func testAdapter(q querier) *adapter {
	return newAdapter(q, newPacer(0), 0, 0)
}

var attentionRef = types.Reference{
	Title:   "Attention Is All You Need",
	Authors: []string{"Ashish Vaswani", "Noam Shazeer"},
}

const crossrefAttention = `{"message":{"items":[
	{"title":["Attention Is All You Need"],
	 "author":[{"given":"Ashish","family":"Vaswani"},{"given":"Noam","family":"Shazeer"}]}
]}}`

func TestCrossrefMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Attention Is All You Need", r.URL.Query().Get("query.bibliographic"))
		assert.Equal(t, "dev@meshintel.example", r.URL.Query().Get("mailto"))
		fmt.Fprint(w, crossrefAttention)
	}))
	defer ts.Close()
	swapBase(t, &crossrefAPIBase, ts.URL)

	a := testAdapter(&crossrefQuerier{client: ts.Client(), mailto: "dev@meshintel.example"})
	res := a.Query(context.Background(), attentionRef, time.Second)

	assert.Equal(t, types.KindMatch, res.Kind)
	assert.Equal(t, "crossref", res.Backend)
	assert.Equal(t, "Attention Is All You Need", res.MatchedTitle)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, res.MatchedAuthors)
}

func TestCrossrefAuthorMismatchIsTitleOnly(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"items":[
			{"title":["Attention Is All You Need"],
			 "author":[{"given":"Alice","family":"Johnson"},{"given":"Bob","family":"Smith"}]}
		]}}`)
	}))
	defer ts.Close()
	swapBase(t, &crossrefAPIBase, ts.URL)

	a := testAdapter(&crossrefQuerier{client: ts.Client()})
	res := a.Query(context.Background(), attentionRef, time.Second)
	assert.Equal(t, types.KindTitleOnly, res.Kind)
}

func TestDBLPOnline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, `{"result":{"hits":{"hit":[
			{"info":{"title":"Attention Is All You Need","authors":{}}},
			{"info":{"title":"Attention Is All You Need","authors":{"author":[
				{"text":"Ashish Vaswani"},{"text":"Noam Shazeer 0001"}]}}}
		]}}}`)
	}))
	defer ts.Close()
	swapBase(t, &dblpAPIBase, ts.URL)

	a := testAdapter(&dblpQuerier{client: ts.Client()})
	res := a.Query(context.Background(), attentionRef, time.Second)

	// First hit has no authors and is skipped; the second matches with its
	// disambiguation suffix stripped.
	assert.Equal(t, types.KindMatch, res.Kind)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, res.MatchedAuthors)
}

func TestDBLPSingleAuthorObject(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"hits":{"hit":[
			{"info":{"title":"Deep Residual Learning","authors":{"author":{"text":"Kaiming He"}}}}
		]}}}`)
	}))
	defer ts.Close()
	swapBase(t, &dblpAPIBase, ts.URL)

	a := testAdapter(&dblpQuerier{client: ts.Client()})
	ref := types.Reference{Title: "Deep Residual Learning", Authors: []string{"Kaiming He"}}
	res := a.Query(context.Background(), ref, time.Second)
	assert.Equal(t, types.KindMatch, res.Kind)
}

func TestArxivMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v5</id>
    <title>Attention Is All You Need</title>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
</feed>`)
	}))
	defer ts.Close()
	swapBase(t, &arxivAPIBase, ts.URL)

	a := testAdapter(&arxivQuerier{client: ts.Client()})
	res := a.Query(context.Background(), attentionRef, time.Second)
	assert.Equal(t, types.KindMatch, res.Kind)
}

func TestSemanticScholarSendsAPIKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ss_123", r.Header.Get("x-api-key"))
		fmt.Fprint(w, `{"data":[{"title":"Attention Is All You Need","authors":[
			{"name":"Ashish Vaswani"},{"name":"Noam Shazeer"}]}]}`)
	}))
	defer ts.Close()
	swapBase(t, &semanticScholarAPIBase, ts.URL)

	a := testAdapter(&semanticScholarQuerier{client: ts.Client(), apiKey: "ss_123"})
	res := a.Query(context.Background(), attentionRef, time.Second)
	assert.Equal(t, types.KindMatch, res.Kind)
}

func TestPubMedTwoStepLookup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"esearchresult":{"idlist":["12345"]}}`)
	})
	mux.HandleFunc("/esummary", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12345", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"result":{"uids":["12345"],"12345":
			{"title":"Attention Is All You Need","authors":[{"name":"Vaswani A"},{"name":"Shazeer N"}]}}}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	swapBase(t, &pubmedSearchAPIBase, ts.URL+"/esearch")
	swapBase(t, &pubmedSummaryAPIBase, ts.URL+"/esummary")

	a := testAdapter(&pubmedQuerier{client: ts.Client()})
	res := a.Query(context.Background(), attentionRef, time.Second)

	// "Vaswani A" is reordered so the surname lands last.
	assert.Equal(t, types.KindMatch, res.Kind)
	assert.Equal(t, []string{"A Vaswani", "N Shazeer"}, res.MatchedAuthors)
}

func TestEuropePMCMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultList":{"result":[
			{"title":"Attention Is All You Need","authorString":"Vaswani A, Shazeer N."}
		]}}`)
	}))
	defer ts.Close()
	swapBase(t, &europePMCAPIBase, ts.URL)

	a := testAdapter(&europePMCQuerier{client: ts.Client()})
	res := a.Query(context.Background(), attentionRef, time.Second)
	assert.Equal(t, types.KindMatch, res.Kind)
}

func TestSurnameFirstToName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Vaswani A", "A Vaswani"},
		{"Shazeer N.", "N Shazeer"},
		{"van der Berg JM", "JM van der Berg"},
		{"Ashish Vaswani", "Ashish Vaswani"},
		{"Vaswani", "Vaswani"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, surnameFirstToName(tt.in), "input %q", tt.in)
	}
}

func TestNeuripsScrape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><ul>
			<li><a href="/paper_files/paper/2017/hash/abc">Attention Is All You Need</a>
				<i>Ashish Vaswani, Noam Shazeer</i></li>
			<li><a href="/paper_files/paper/2016/hash/def">Some Other Paper</a>
				<i>Alice Johnson</i></li>
		</ul></body></html>`)
	}))
	defer ts.Close()
	swapBase(t, &neuripsAPIBase, ts.URL)

	a := testAdapter(&neuripsQuerier{client: ts.Client()})
	res := a.Query(context.Background(), attentionRef, time.Second)

	assert.Equal(t, types.KindMatch, res.Kind)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, res.MatchedAuthors)
}

func TestWebSearchNeverCarriesAuthors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ws_123", r.Header.Get("X-API-Key"))
		fmt.Fprint(w, `{"organic_results":[{"title":"Attention Is All You Need - ACM"}]}`)
	}))
	defer ts.Close()

	a := testAdapter(&webSearcher{client: ts.Client(), endpoint: ts.URL, apiKey: "ws_123"})
	res := a.Query(context.Background(), attentionRef, time.Second)

	// A web hit confirms existence only: title matched, no author evidence.
	assert.Equal(t, types.KindTitleOnly, res.Kind)
	assert.Empty(t, res.MatchedAuthors)
}

func TestWebSearchDecoratedTitles(t *testing.T) {
	tests := []struct {
		name     string
		hitTitle string
		want     types.ResultKind
	}{
		{"suffixed hit", "Attention Is All You Need - ACM Digital Library", types.KindTitleOnly},
		{"prefixed hit", "[PDF] Attention Is All You Need | NeurIPS Proceedings", types.KindTitleOnly},
		{"exact hit", "Attention Is All You Need", types.KindTitleOnly},
		{"unrelated hit", "Attention Mechanisms: A Survey", types.KindNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"results":[{"title":%q}]}`, tt.hitTitle)
			}))
			defer ts.Close()

			a := testAdapter(&webSearcher{client: ts.Client(), endpoint: ts.URL})
			res := a.Query(context.Background(), attentionRef, time.Second)
			assert.Equal(t, tt.want, res.Kind)
		})
	}
}

func TestAdapterCachesAnswers(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, crossrefAttention)
	}))
	defer ts.Close()
	swapBase(t, &crossrefAPIBase, ts.URL)

	a := testAdapter(&crossrefQuerier{client: ts.Client()})
	for n := 0; n < 3; n++ {
		res := a.Query(context.Background(), attentionRef, time.Second)
		assert.Equal(t, types.KindMatch, res.Kind)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestAdapterTimeoutNotCached(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, crossrefAttention)
	}))
	defer ts.Close()
	swapBase(t, &crossrefAPIBase, ts.URL)

	a := testAdapter(&crossrefQuerier{client: ts.Client()})
	res := a.Query(context.Background(), attentionRef, 20*time.Millisecond)
	assert.Equal(t, types.KindTimeout, res.Kind)

	// Timeouts are not cached, so a retry reaches the source again.
	a.Query(context.Background(), attentionRef, 20*time.Millisecond)
	assert.Equal(t, int64(2), calls.Load())
}

func TestAdapterRetriesOn429(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, crossrefAttention)
	}))
	defer ts.Close()
	swapBase(t, &crossrefAPIBase, ts.URL)

	origDelay := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = 10 * time.Millisecond
	t.Cleanup(func() { httputil.RetryBaseDelay = origDelay })

	p := newPacer(0)
	a := newAdapter(&crossrefQuerier{client: ts.Client(), notify: p.backoff}, p, 0, 0)
	res := a.Query(context.Background(), attentionRef, 10*time.Second)

	assert.Equal(t, types.KindMatch, res.Kind)
	assert.Equal(t, int64(2), calls.Load())

	// The 429 pushed the pacer's next slot forward.
	p.mu.Lock()
	pushed := !p.notBefore.IsZero()
	p.mu.Unlock()
	assert.True(t, pushed)
}

func TestAdapterErrorKind(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()
	swapBase(t, &crossrefAPIBase, ts.URL)

	a := testAdapter(&crossrefQuerier{client: ts.Client()})
	res := a.Query(context.Background(), attentionRef, time.Second)

	assert.Equal(t, types.KindError, res.Kind)
	assert.Contains(t, res.Err, "HTTP 500")
}

const aclTestDump = `<?xml version="1.0" encoding="UTF-8"?>
<collection id="P17">
  <volume id="1">
    <paper id="1">
      <title>Attention Is All You Need</title>
      <author><first>Ashish</first><last>Vaswani</last></author>
      <author><first>Noam</first><last>Shazeer</last></author>
      <booktitle>NIPS</booktitle>
      <year>2017</year>
    </paper>
  </volume>
</collection>`

func buildACLIndex(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dump := filepath.Join(dir, "anthology.xml")
	require.NoError(t, os.WriteFile(dump, []byte(aclTestDump), 0o644))
	indexPath := filepath.Join(dir, "acl.db")
	_, err := index.BuildACL(indexPath, dump, 0, nil)
	require.NoError(t, err)
	return indexPath
}

func TestRegistryOfflineReplacesOnline(t *testing.T) {
	indexPath := buildACLIndex(t)

	reg, err := NewRegistry(types.BackendConfig{ACLIndexPath: indexPath})
	require.NoError(t, err)
	defer reg.Close()

	var acl Backend
	for _, b := range reg.Backends() {
		if b.Name() == "acl" {
			acl = b
		}
	}
	require.NotNil(t, acl)

	res := acl.Query(context.Background(), attentionRef, time.Second)
	assert.Equal(t, types.KindMatch, res.Kind)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, res.MatchedAuthors)
}

func TestRegistryEnablement(t *testing.T) {
	reg, err := NewRegistry(types.BackendConfig{
		Disabled: []string{"pubmed", "europe_pmc"},
		Timeouts: map[string]time.Duration{"neurips": 3 * time.Second},
	})
	require.NoError(t, err)
	defer reg.Close()

	names := make(map[string]bool)
	for _, b := range reg.Backends() {
		names[b.Name()] = true
	}
	for _, want := range []string{"crossref", "arxiv", "semantic_scholar", "neurips", "dblp", "openalex"} {
		assert.True(t, names[want], "missing backend %s", want)
	}
	assert.False(t, names["pubmed"])
	assert.False(t, names["europe_pmc"])
	assert.False(t, names["acl"], "ACL has no online API; it requires a local index")

	// Web search never joins the main fan-out.
	assert.Nil(t, reg.WebSearch())
	assert.Equal(t, 3*time.Second, reg.Timeout("neurips"))
	assert.Equal(t, types.DefaultTimeout, reg.Timeout("crossref"))
}

func TestRegistryWebSearch(t *testing.T) {
	reg, err := NewRegistry(types.BackendConfig{WebSearchURL: "https://search.example.com/api"})
	require.NoError(t, err)
	defer reg.Close()

	require.NotNil(t, reg.WebSearch())
	assert.Equal(t, "web_search", reg.WebSearch().Name())
	for _, b := range reg.Backends() {
		assert.NotEqual(t, "web_search", b.Name())
	}
}

func TestRegistryMissingIndexErrors(t *testing.T) {
	_, err := NewRegistry(types.BackendConfig{
		DBLPIndexPath: filepath.Join(t.TempDir(), "missing.db"),
	})
	assert.Error(t, err)
}
