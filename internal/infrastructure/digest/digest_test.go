package digest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const markupJSON = `{"cards":[{"widgets":[
	{"type":"LINK","title":"Hospital chain hit by ransomware",
	 "url":"https://www.google.com/url?rct=j&url=https%3A%2F%2Fexample.com%2Fhospital&ct=ga",
	 "description":"Attackers encrypted patient systems overnight."},
	{"type":"HEADER","title":"Daily digest"},
	{"type":"LINK","title":"New CVE under exploitation",
	 "url":"https://example.com/cve-direct",
	 "description":"A critical flaw is being exploited in the wild."}
]}]}`

func digestEmail(body string) []byte {
	msg := "From: alerts-noreply@example.com\r\n" +
		"Date: Tue, 11 Aug 2026 07:15:00 +0000\r\n" +
		"Subject: Daily digest\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
		"\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"See the HTML version.\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		body + "\r\n" +
		"--BOUNDARY--\r\n"
	return []byte(msg)
}

func htmlWithMarkup(markup string) string {
	return `<html><body><div>digest body</div>` +
		`<script type=3D"application/json" data-scope=3D"inboxmarkup">` +
		strings.ReplaceAll(markup, "=", "=3D") +
		`</script></body></html>`
}

func TestParseDigest(t *testing.T) {
	t.Parallel()

	candidates, err := ParseDigest(digestEmail(htmlWithMarkup(markupJSON)))
	require.NoError(t, err)
	require.Len(t, candidates, 2, "only LINK widgets become candidates")

	first := candidates[0]
	require.Equal(t, "Hospital chain hit by ransomware", first.Title)
	require.Equal(t, "https://example.com/hospital", first.URL, "redirect wrapper unwrapped")
	require.Equal(t, "Attackers encrypted patient systems overnight.", first.Description)
	require.Equal(t, "Google Alert", first.SourceName)
	require.Equal(t, 2026, first.SuggestedDate.Year())

	require.Equal(t, "https://example.com/cve-direct", candidates[1].URL)
}

func TestParseDigestWithoutMarkupBlock(t *testing.T) {
	t.Parallel()

	candidates, err := ParseDigest(digestEmail(`<html><body><p>No data block here.</p></body></html>`))
	require.NoError(t, err, "absence of the block is not an error")
	require.Empty(t, candidates)
}

func TestParseDigestMalformedMarkupDegrades(t *testing.T) {
	t.Parallel()

	candidates, err := ParseDigest(digestEmail(htmlWithMarkup(`{"cards": [not json`)))
	require.NoError(t, err, "malformed block degrades to zero candidates")
	require.Empty(t, candidates)
}

func TestAlertProviderAggregatesDigests(t *testing.T) {
	t.Parallel()

	fetcher := stubMailFetcher{
		digestEmail(htmlWithMarkup(markupJSON)),
		[]byte("not an email at all"),
	}
	provider := NewAlertProvider(fetcher, nil)
	require.Equal(t, "Google Alert", provider.Name())

	candidates, err := provider.FetchCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2, "unparseable digest skipped, not fatal")
}

func TestAlertProviderPropagatesTransportError(t *testing.T) {
	t.Parallel()

	provider := NewAlertProvider(failingMailFetcher{}, nil)
	_, err := provider.FetchCandidates(context.Background())
	require.Error(t, err)
}

type stubMailFetcher [][]byte

func (s stubMailFetcher) FetchDigests(context.Context) ([][]byte, error) {
	return s, nil
}

type failingMailFetcher struct{}

func (failingMailFetcher) FetchDigests(context.Context) ([][]byte, error) {
	return nil, fmt.Errorf("mailbox unreachable")
}
